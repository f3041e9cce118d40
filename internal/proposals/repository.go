package proposals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const proposalColumns = `id, tenant_id, template_id, lead_id, client_name, client_email, status, responses, subtotal, tax,
	total, notes, submitted_at, reviewed_at, created_at, updated_at`

const lineItemColumns = `id, proposal_id, description, quantity, unit_price, total, sort_order`

// Repository persists proposals, their line items and contracts.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a proposal repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var status string
	var responses []byte
	if err := row.Scan(&p.ID, &p.TenantID, &p.TemplateID, &p.LeadID, &p.ClientName, &p.ClientEmail, &status, &responses,
		&p.Subtotal, &p.Tax, &p.Total, &p.Notes, &p.SubmittedAt, &p.ReviewedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProposalStatus(status)
	if len(responses) > 0 {
		p.Responses = responses
	}
	return &p, nil
}

// Filter narrows List.
type Filter struct {
	Status     *models.ProposalStatus
	LeadID     *uuid.UUID
	TemplateID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Proposal, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.LeadID != nil {
		args = append(args, *f.LeadID)
		where = append(where, fmt.Sprintf("lead_id = $%d", len(args)))
	}
	if f.TemplateID != nil {
		args = append(args, *f.TemplateID)
		where = append(where, fmt.Sprintf("template_id = $%d", len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE `+strings.Join(where, " AND ")+
		` ORDER BY submitted_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// GetByID returns a proposal with its line items.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Proposal, error) {
	return r.get(ctx, tenantID, id, "")
}

func (r *Repository) get(ctx context.Context, tenantID, id uuid.UUID, lock string) (*models.Proposal, error) {
	p, err := scanProposal(r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 AND tenant_id = $2`+lock,
		id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "proposal")
	}
	if p.LineItems, err = r.lineItems(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) lineItems(ctx context.Context, proposalID uuid.UUID) ([]models.ProposalLineItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+lineItemColumns+` FROM proposal_line_items WHERE proposal_id = $1
		ORDER BY sort_order, id`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []models.ProposalLineItem{}
	for rows.Next() {
		var li models.ProposalLineItem
		if err := rows.Scan(&li.ID, &li.ProposalID, &li.Description, &li.Quantity, &li.UnitPrice, &li.Total, &li.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// RequireRefs checks the optional template and lead belong to tenantID.
func (r *Repository) RequireRefs(ctx context.Context, tenantID uuid.UUID, templateID, leadID *uuid.UUID) error {
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Template, tenantID, templateID); err != nil {
		return err
	}
	return tenancy.RequireOptional(ctx, r.db, tenancy.Lead, tenantID, leadID)
}

// Create inserts p and its line items in one transaction.
func (r *Repository) Create(ctx context.Context, p *models.Proposal) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		responses := []byte(p.Responses)
		if len(responses) == 0 {
			responses = []byte(`{}`)
		}
		err := tx.QueryRow(ctx, `INSERT INTO proposals
			(tenant_id, template_id, lead_id, client_name, client_email, status, responses, subtotal, tax, total, notes, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at`,
			p.TenantID, p.TemplateID, p.LeadID, p.ClientName, p.ClientEmail, string(p.Status), responses, p.Subtotal, p.Tax,
			p.Total, p.Notes, p.SubmittedAt,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return apperr.FromDB(err, "proposal")
		}
		for i := range p.LineItems {
			li := &p.LineItems[i]
			li.ProposalID = p.ID
			if err := insertLineItem(ctx, tx, p.TenantID, li); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertLineItem(ctx context.Context, db database.DBTX, tenantID uuid.UUID, li *models.ProposalLineItem) error {
	err := db.QueryRow(ctx, `INSERT INTO proposal_line_items (tenant_id, proposal_id, description, quantity, unit_price, total, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		tenantID, li.ProposalID, li.Description, li.Quantity, li.UnitPrice, li.Total, li.SortOrder).Scan(&li.ID)
	return apperr.FromDB(err, "proposal line item")
}

func (r *Repository) Update(ctx context.Context, p *models.Proposal) error {
	responses := []byte(p.Responses)
	if len(responses) == 0 {
		responses = []byte(`{}`)
	}
	err := r.db.QueryRow(ctx, `UPDATE proposals SET template_id = $3, lead_id = $4, client_name = $5, client_email = $6,
		status = $7, responses = $8, subtotal = $9, tax = $10, total = $11, notes = $12, reviewed_at = $13, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`,
		p.ID, p.TenantID, p.TemplateID, p.LeadID, p.ClientName, p.ClientEmail, string(p.Status), responses, p.Subtotal,
		p.Tax, p.Total, p.Notes, p.ReviewedAt,
	).Scan(&p.UpdatedAt)
	return apperr.FromDB(err, "proposal")
}

// AddLineItem appends li to a proposal and stores the recomputed totals, in one transaction.
func (r *Repository) AddLineItem(ctx context.Context, tenantID, proposalID uuid.UUID, li *models.ProposalLineItem) (*models.Proposal, error) {
	var out *models.Proposal
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txr := &Repository{db: tx}
		p, err := txr.get(ctx, tenantID, proposalID, " FOR UPDATE")
		if err != nil {
			return err
		}
		li.ProposalID = p.ID
		li.SortOrder = len(p.LineItems)
		if err := insertLineItem(ctx, tx, tenantID, li); err != nil {
			return err
		}
		p.LineItems = append(p.LineItems, *li)
		Recompute(p)
		if err := txr.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// HasContract reports whether a contract was already made from proposalID.
func (r *Repository) HasContract(ctx context.Context, tenantID, proposalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE tenant_id = $1 AND proposal_id = $2)`,
		tenantID, proposalID).Scan(&exists)
	return exists, err
}

// ClientForLead returns the client converted from leadID, if any.
func (r *Repository) ClientForLead(ctx context.Context, tenantID uuid.UUID, leadID *uuid.UUID) (*uuid.UUID, error) {
	if leadID == nil {
		return nil, nil
	}
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM clients WHERE tenant_id = $1 AND lead_id = $2 ORDER BY created_at LIMIT 1`,
		tenantID, *leadID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ConvertToContract creates a draft contract from an accepted proposal in one transaction.
func (r *Repository) ConvertToContract(ctx context.Context, tenantID, proposalID uuid.UUID, title string) (*models.Contract, error) {
	var out *models.Contract
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txr := &Repository{db: tx}
		p, err := txr.get(ctx, tenantID, proposalID, " FOR UPDATE")
		if err != nil {
			return err
		}
		exists, err := txr.HasContract(ctx, tenantID, proposalID)
		if err != nil {
			return err
		}
		clientID, err := txr.ClientForLead(ctx, tenantID, p.LeadID)
		if err != nil {
			return err
		}
		c, err := ContractFromProposal(p, title, clientID, exists)
		if err != nil {
			return err
		}
		if err := txr.CreateContract(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}
