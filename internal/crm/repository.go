package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

const clientColumns = `id, tenant_id, lead_id, name, contact_name, email, phone, address_line1, address_line2, city, province,
	postal_code, country, status, lifecycle_stage, notes, created_at, updated_at`

// Repository handles clients, leads and interactions.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a CRM repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	var status string
	if err := row.Scan(&c.ID, &c.TenantID, &c.LeadID, &c.Name, &c.ContactName, &c.Email, &c.Phone, &c.AddressLine1,
		&c.AddressLine2, &c.City, &c.Province, &c.PostalCode, &c.Country, &status, &c.LifecycleStage, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = models.ClientStatus(status)
	return &c, nil
}

// ClientFilter narrows ListClients.
type ClientFilter struct {
	Status *models.ClientStatus
	Search string
}

func (r *Repository) ListClients(ctx context.Context, tenantID uuid.UUID, f ClientFilter) ([]models.Client, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR contact_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE `+strings.Join(where, " AND ")+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *Repository) GetClient(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "client")
	}
	return c, nil
}

func (r *Repository) CreateClient(ctx context.Context, c *models.Client) error {
	err := r.db.QueryRow(ctx, `INSERT INTO clients (tenant_id, lead_id, name, contact_name, email, phone, address_line1,
		address_line2, city, province, postal_code, country, status, lifecycle_stage, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id, created_at, updated_at`,
		c.TenantID, c.LeadID, c.Name, c.ContactName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2, c.City, c.Province,
		c.PostalCode, c.Country, string(c.Status), c.LifecycleStage, c.Notes).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return apperr.FromDB(err, "client")
}

func (r *Repository) UpdateClient(ctx context.Context, c *models.Client) error {
	err := r.db.QueryRow(ctx, `UPDATE clients SET name = $3, contact_name = $4, email = $5, phone = $6, address_line1 = $7,
		address_line2 = $8, city = $9, province = $10, postal_code = $11, country = $12, status = $13,
		lifecycle_stage = $14, notes = $15, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		c.ID, c.TenantID, c.Name, c.ContactName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2, c.City, c.Province,
		c.PostalCode, c.Country, string(c.Status), c.LifecycleStage, c.Notes).Scan(&c.UpdatedAt)
	return apperr.FromDB(err, "client")
}
