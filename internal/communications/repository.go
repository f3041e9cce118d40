// Package communications tracks client lifecycle touchpoints and the tenant's
// automated email configuration.
package communications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const touchpointColumns = `id, tenant_id, event_id, client_id, lead_id, type, status, completed_at, notes, created_at, updated_at`

const emailConfigColumns = `id, tenant_id, email_type, subject, body_template, is_active, send_delay_hours, created_at, updated_at`

// Repository handles touchpoints and automated email configs.
type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanTouchpoint(row pgx.Row) (*models.Touchpoint, error) {
	var t models.Touchpoint
	var typ, status string
	if err := row.Scan(&t.ID, &t.TenantID, &t.EventID, &t.ClientID, &t.LeadID, &typ, &status, &t.CompletedAt,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Type = models.TouchpointType(typ)
	t.Status = models.TouchpointStatus(status)
	return &t, nil
}

// TouchpointFilter narrows ListTouchpoints. Nil fields are ignored.
type TouchpointFilter struct {
	EventID  *uuid.UUID
	ClientID *uuid.UUID
	LeadID   *uuid.UUID
	Type     *models.TouchpointType
	Status   *models.TouchpointStatus
}

// ListTouchpoints returns matching touchpoints, newest first.
func (r *Repository) ListTouchpoints(ctx context.Context, tenantID uuid.UUID, f TouchpointFilter) ([]models.Touchpoint, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	add := func(col string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.EventID != nil {
		add("event_id", *f.EventID)
	}
	if f.ClientID != nil {
		add("client_id", *f.ClientID)
	}
	if f.LeadID != nil {
		add("lead_id", *f.LeadID)
	}
	if f.Type != nil {
		add("type", string(*f.Type))
	}
	if f.Status != nil {
		add("status", string(*f.Status))
	}
	rows, err := r.db.Query(ctx, `SELECT `+touchpointColumns+` FROM communication_touchpoints
		WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Touchpoint{}
	for rows.Next() {
		t, err := scanTouchpoint(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func (r *Repository) GetTouchpoint(ctx context.Context, tenantID, id uuid.UUID) (*models.Touchpoint, error) {
	t, err := scanTouchpoint(r.db.QueryRow(ctx, `SELECT `+touchpointColumns+` FROM communication_touchpoints
		WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "touchpoint")
	}
	return t, nil
}

// CreateTouchpoint verifies every reference belongs to the tenant and inserts the touchpoint.
func (r *Repository) CreateTouchpoint(ctx context.Context, t *models.Touchpoint) error {
	if t.EventID == nil && t.ClientID == nil && t.LeadID == nil {
		return apperr.Validation("one of event_id, client_id or lead_id is required")
	}
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Event, t.TenantID, t.EventID); err != nil {
		return err
	}
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Client, t.TenantID, t.ClientID); err != nil {
		return err
	}
	if err := tenancy.RequireOptional(ctx, r.db, tenancy.Lead, t.TenantID, t.LeadID); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx, `INSERT INTO communication_touchpoints (tenant_id, event_id, client_id, lead_id, type, status, completed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		t.TenantID, t.EventID, t.ClientID, t.LeadID, string(t.Type), string(t.Status), t.CompletedAt, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return apperr.FromDB(err, "touchpoint")
}

// UpdateTouchpoint saves status, completion time and notes. References and type are fixed.
func (r *Repository) UpdateTouchpoint(ctx context.Context, t *models.Touchpoint) error {
	err := r.db.QueryRow(ctx, `UPDATE communication_touchpoints SET status = $3, completed_at = $4, notes = $5, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		t.ID, t.TenantID, string(t.Status), t.CompletedAt, t.Notes).Scan(&t.UpdatedAt)
	return apperr.FromDB(err, "touchpoint")
}

func scanEmailConfig(row pgx.Row) (*models.EmailConfig, error) {
	var e models.EmailConfig
	var typ string
	if err := row.Scan(&e.ID, &e.TenantID, &typ, &e.Subject, &e.BodyTemplate, &e.IsActive, &e.SendDelayHours,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.EmailType = models.EmailType(typ)
	return &e, nil
}

// ListEmailConfigs returns configs ordered by email type. Nil filters are ignored.
func (r *Repository) ListEmailConfigs(ctx context.Context, tenantID uuid.UUID, emailType *models.EmailType, active *bool) ([]models.EmailConfig, error) {
	var typ *string
	if emailType != nil {
		s := string(*emailType)
		typ = &s
	}
	rows, err := r.db.Query(ctx, `SELECT `+emailConfigColumns+` FROM automated_email_configs
		WHERE tenant_id = $1 AND ($2::text IS NULL OR email_type = $2) AND ($3::boolean IS NULL OR is_active = $3)
		ORDER BY email_type`, tenantID, typ, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.EmailConfig{}
	for rows.Next() {
		e, err := scanEmailConfig(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *Repository) GetEmailConfig(ctx context.Context, tenantID, id uuid.UUID) (*models.EmailConfig, error) {
	e, err := scanEmailConfig(r.db.QueryRow(ctx, `SELECT `+emailConfigColumns+` FROM automated_email_configs
		WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "email config")
	}
	return e, nil
}

// CreateEmailConfig inserts a config. A tenant holds at most one config per email type.
func (r *Repository) CreateEmailConfig(ctx context.Context, e *models.EmailConfig) error {
	err := r.db.QueryRow(ctx, `INSERT INTO automated_email_configs (tenant_id, email_type, subject, body_template, is_active, send_delay_hours)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		e.TenantID, string(e.EmailType), e.Subject, e.BodyTemplate, e.IsActive, e.SendDelayHours,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	err = apperr.FromDB(err, "email config")
	if apperr.IsConflict(err) {
		return apperr.Conflict("an email config for %s already exists", e.EmailType)
	}
	return err
}

func (r *Repository) UpdateEmailConfig(ctx context.Context, e *models.EmailConfig) error {
	err := r.db.QueryRow(ctx, `UPDATE automated_email_configs
		SET subject = $3, body_template = $4, is_active = $5, send_delay_hours = $6, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		e.ID, e.TenantID, e.Subject, e.BodyTemplate, e.IsActive, e.SendDelayHours).Scan(&e.UpdatedAt)
	return apperr.FromDB(err, "email config")
}
