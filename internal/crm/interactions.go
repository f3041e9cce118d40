package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
)

const interactionColumns = `id, tenant_id, client_id, lead_id, type, summary, occurred_at, created_by, created_at`

func scanInteraction(row pgx.Row) (*models.Interaction, error) {
	var i models.Interaction
	var typ string
	if err := row.Scan(&i.ID, &i.TenantID, &i.ClientID, &i.LeadID, &typ, &i.Summary, &i.OccurredAt, &i.CreatedBy, &i.CreatedAt); err != nil {
		return nil, err
	}
	i.Type = models.InteractionType(typ)
	return &i, nil
}

// LogInteraction verifies the referenced client or lead and inserts the interaction.
func (r *Repository) LogInteraction(ctx context.Context, i *models.Interaction) error {
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Client, i.TenantID, i.ClientID); err != nil {
		return err
	}
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Lead, i.TenantID, i.LeadID); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx, `INSERT INTO crm_interactions (tenant_id, client_id, lead_id, type, summary, occurred_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		i.TenantID, i.ClientID, i.LeadID, string(i.Type), i.Summary, i.OccurredAt, i.CreatedBy).Scan(&i.ID, &i.CreatedAt)
	return apperr.FromDB(err, "interaction")
}

// ListInteractions returns a client's or lead's interactions, newest first. limit <= 0 means all.
func (r *Repository) ListInteractions(ctx context.Context, tenantID uuid.UUID, clientID, leadID *uuid.UUID, limit int) ([]models.Interaction, error) {
	q := `SELECT ` + interactionColumns + ` FROM crm_interactions
		WHERE tenant_id = $1 AND ($2::uuid IS NULL OR client_id = $2) AND ($3::uuid IS NULL OR lead_id = $3)
		ORDER BY occurred_at DESC`
	args := []interface{}{tenantID, clientID, leadID}
	if limit > 0 {
		q += ` LIMIT $4`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Interaction{}
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *i)
	}
	return list, rows.Err()
}
