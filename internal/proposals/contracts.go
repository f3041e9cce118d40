package proposals

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
)

const contractColumns = `id, tenant_id, proposal_id, lead_id, client_id, title, status, total_amount, terms, sent_at, signed_at,
	created_at, updated_at`

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	var status string
	if err := row.Scan(&c.ID, &c.TenantID, &c.ProposalID, &c.LeadID, &c.ClientID, &c.Title, &status, &c.TotalAmount,
		&c.Terms, &c.SentAt, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = models.ContractStatus(status)
	return &c, nil
}

// ContractFilter narrows ListContracts.
type ContractFilter struct {
	Status   *models.ContractStatus
	ClientID *uuid.UUID
}

func (r *Repository) ListContracts(ctx context.Context, tenantID uuid.UUID, f ContractFilter) ([]models.Contract, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ClientID != nil {
		args = append(args, *f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+contractColumns+` FROM contracts WHERE `+strings.Join(where, " AND ")+
		` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *Repository) GetContract(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 AND tenant_id = $2`,
		id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "contract")
	}
	return c, nil
}

// RequireContractRefs checks the optional proposal, lead and client belong to tenantID.
func (r *Repository) RequireContractRefs(ctx context.Context, c *models.Contract) error {
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Proposal, c.TenantID, c.ProposalID); err != nil {
		return err
	}
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Lead, c.TenantID, c.LeadID); err != nil {
		return err
	}
	return tenancy.RequireOptional(ctx, r.db, tenancy.Client, c.TenantID, c.ClientID)
}

func (r *Repository) CreateContract(ctx context.Context, c *models.Contract) error {
	err := r.db.QueryRow(ctx, `INSERT INTO contracts
		(tenant_id, proposal_id, lead_id, client_id, title, status, total_amount, terms, sent_at, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		c.TenantID, c.ProposalID, c.LeadID, c.ClientID, c.Title, string(c.Status), c.TotalAmount, c.Terms, c.SentAt, c.SignedAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return apperr.FromDB(err, "contract")
}

func (r *Repository) UpdateContract(ctx context.Context, c *models.Contract) error {
	err := r.db.QueryRow(ctx, `UPDATE contracts SET lead_id = $3, client_id = $4, title = $5, status = $6, total_amount = $7,
		terms = $8, sent_at = $9, signed_at = $10, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`,
		c.ID, c.TenantID, c.LeadID, c.ClientID, c.Title, string(c.Status), c.TotalAmount, c.Terms, c.SentAt, c.SignedAt,
	).Scan(&c.UpdatedAt)
	return apperr.FromDB(err, "contract")
}
