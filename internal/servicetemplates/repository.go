// Package servicetemplates manages reusable service packages: default duration, price,
// crew size and deliverables for a kind of event.
package servicetemplates

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

const columns = `id, tenant_id, name, description, default_duration_hours, default_price, default_operator_count,
	deliverable_types, event_type, is_active, created_at, updated_at`

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row) (*models.ServiceTemplate, error) {
	var s models.ServiceTemplate
	var eventType *string
	if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.DefaultDurationHours, &s.DefaultPrice,
		&s.DefaultOperatorCount, &s.DeliverableTypes, &eventType, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if eventType != nil {
		t := models.EventType(*eventType)
		s.EventType = &t
	}
	if s.DeliverableTypes == nil {
		s.DeliverableTypes = []string{}
	}
	return &s, nil
}

func eventTypeArg(t *models.EventType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

// List returns templates ordered by name. Inactive templates are hidden unless includeInactive.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]models.ServiceTemplate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM service_templates
		WHERE tenant_id = $1 AND ($2 OR is_active) ORDER BY name`, tenantID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ServiceTemplate{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.ServiceTemplate, error) {
	s, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM service_templates WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "service template")
	}
	return s, nil
}

func (r *Repository) Create(ctx context.Context, s *models.ServiceTemplate) error {
	err := r.db.QueryRow(ctx, `INSERT INTO service_templates (tenant_id, name, description, default_duration_hours,
		default_price, default_operator_count, deliverable_types, event_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`,
		s.TenantID, s.Name, s.Description, s.DefaultDurationHours, s.DefaultPrice, s.DefaultOperatorCount,
		s.DeliverableTypes, eventTypeArg(s.EventType), s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return apperr.FromDB(err, "service template")
}

func (r *Repository) Update(ctx context.Context, s *models.ServiceTemplate) error {
	err := r.db.QueryRow(ctx, `UPDATE service_templates SET name = $3, description = $4, default_duration_hours = $5,
		default_price = $6, default_operator_count = $7, deliverable_types = $8, event_type = $9, is_active = $10,
		updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		s.ID, s.TenantID, s.Name, s.Description, s.DefaultDurationHours, s.DefaultPrice, s.DefaultOperatorCount,
		s.DeliverableTypes, eventTypeArg(s.EventType), s.IsActive,
	).Scan(&s.UpdatedAt)
	return apperr.FromDB(err, "service template")
}

// SetActive archives or restores a template.
func (r *Repository) SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*models.ServiceTemplate, error) {
	s, err := scan(r.db.QueryRow(ctx, `UPDATE service_templates SET is_active = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING `+columns, id, tenantID, active))
	if err != nil {
		return nil, apperr.FromDB(err, "service template")
	}
	return s, nil
}
