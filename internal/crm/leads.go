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

const leadColumns = `id, tenant_id, organization, contact_name, email, phone, source, source_details, status, notes, created_at, updated_at`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	var status string
	var details []byte
	if err := row.Scan(&l.ID, &l.TenantID, &l.Organization, &l.ContactName, &l.Email, &l.Phone, &l.Source, &details,
		&status, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = models.LeadStatus(status)
	if len(details) > 0 {
		l.SourceDetails = details
	}
	return &l, nil
}

func detailsOrEmpty(l *models.Lead) []byte {
	if len(l.SourceDetails) == 0 {
		return []byte(`{}`)
	}
	return l.SourceDetails
}

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	Status *models.LeadStatus
	Source string
	Search string
}

func (r *Repository) ListLeads(ctx context.Context, tenantID uuid.UUID, f LeadFilter) ([]models.Lead, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(organization ILIKE $%d OR contact_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+leadColumns+` FROM leads WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}

func (r *Repository) GetLead(ctx context.Context, tenantID, id uuid.UUID) (*models.Lead, error) {
	l, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "lead")
	}
	return l, nil
}

func (r *Repository) CreateLead(ctx context.Context, l *models.Lead) error {
	err := r.db.QueryRow(ctx, `INSERT INTO leads (tenant_id, organization, contact_name, email, phone, source, source_details, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`,
		l.TenantID, l.Organization, l.ContactName, l.Email, l.Phone, l.Source, detailsOrEmpty(l), string(l.Status), l.Notes).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return apperr.FromDB(err, "lead")
}

func (r *Repository) UpdateLead(ctx context.Context, l *models.Lead) error {
	err := r.db.QueryRow(ctx, `UPDATE leads SET organization = $3, contact_name = $4, email = $5, phone = $6, source = $7,
		source_details = $8, status = $9, notes = $10, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		l.ID, l.TenantID, l.Organization, l.ContactName, l.Email, l.Phone, l.Source, detailsOrEmpty(l), string(l.Status), l.Notes).
		Scan(&l.UpdatedAt)
	return apperr.FromDB(err, "lead")
}

// ConvertLead creates a client from the lead and marks the lead converted, in one transaction.
func (r *Repository) ConvertLead(ctx context.Context, tenantID, leadID uuid.UUID, overrides func(*models.Client)) (*models.Client, error) {
	var client *models.Client
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txr := r.WithTx(tx)
		l, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, leadID, tenantID))
		if err != nil {
			return apperr.FromDB(err, "lead")
		}
		if l.Status == models.LeadStatusConverted {
			return apperr.Conflict("lead is already converted")
		}
		client = ClientFromLead(l)
		if overrides != nil {
			overrides(client)
		}
		if err := txr.CreateClient(ctx, client); err != nil {
			return err
		}
		l.Status = models.LeadStatusConverted
		return txr.UpdateLead(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ClientFromLead maps a lead's contact fields onto a new active client.
func ClientFromLead(l *models.Lead) *models.Client {
	name := l.Organization
	if name == "" {
		name = l.ContactName
	}
	leadID := l.ID
	return &models.Client{
		TenantID:       l.TenantID,
		LeadID:         &leadID,
		Name:           name,
		ContactName:    l.ContactName,
		Email:          l.Email,
		Phone:          l.Phone,
		Status:         models.ClientStatusActive,
		LifecycleStage: "customer",
		Notes:          l.Notes,
	}
}

// KnownOrganizations returns which of names already exist as lead organizations, lowercased.
func (r *Repository) KnownOrganizations(ctx context.Context, tenantID uuid.UUID, names []string) (map[string]bool, error) {
	lowered := make([]string, 0, len(names))
	for _, n := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(n)))
	}
	rows, err := r.db.Query(ctx, `SELECT DISTINCT LOWER(organization) FROM leads
		WHERE tenant_id = $1 AND LOWER(organization) = ANY($2)`, tenantID, lowered)
	if err != nil {
		return nil, err
	}
	names, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return known, nil
}

// CreateLeads inserts leads in one transaction.
func (r *Repository) CreateLeads(ctx context.Context, leads []*models.Lead) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txr := r.WithTx(tx)
		for _, l := range leads {
			if err := txr.CreateLead(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
}
