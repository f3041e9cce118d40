package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) count(ctx context.Context, q string, args ...interface{}) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}

// UpcomingEventCount counts live events loading in after now.
func (r *Repository) UpcomingEventCount(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM events WHERE tenant_id = $1 AND load_in_time >= $2
		AND status NOT IN ('CANCELLED', 'ARCHIVED', 'COMPLETED')`, tenantID, now)
}

func (r *Repository) ActiveOperatorCount(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM operators WHERE tenant_id = $1 AND is_active`, tenantID)
}

func (r *Repository) AvailableGearCount(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM gear WHERE tenant_id = $1 AND status = 'AVAILABLE'`, tenantID)
}

// PendingDeliverableCount counts deliverables not yet completed or cancelled.
func (r *Repository) PendingDeliverableCount(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM deliverables WHERE tenant_id = $1 AND status IN ('PENDING', 'IN_PROGRESS')`, tenantID)
}

// OpenLeadCount counts leads neither converted nor lost.
func (r *Repository) OpenLeadCount(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM leads WHERE tenant_id = $1 AND status NOT IN ('CONVERTED', 'LOST')`, tenantID)
}

// Revenue sums projected and actual revenue of non-cancelled events loading in within [from, to).
func (r *Repository) Revenue(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var projected, actual decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(projected_revenue), 0), COALESCE(SUM(actual_revenue), 0)
		FROM events WHERE tenant_id = $1 AND load_in_time >= $2 AND load_in_time < $3 AND status <> 'CANCELLED'`,
		tenantID, from, to).Scan(&projected, &actual)
	return projected, actual, err
}

// RecentActivity returns the latest touched events, deliverables, proposals and leads.
func (r *Repository) RecentActivity(ctx context.Context, tenantID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT 'event', id, name, status, created_at, updated_at FROM events WHERE tenant_id = $1
		UNION ALL
		SELECT 'deliverable', id, title, status, created_at, updated_at FROM deliverables WHERE tenant_id = $1
		UNION ALL
		SELECT 'proposal', id, COALESCE(NULLIF(client_name, ''), client_email), status, created_at, updated_at FROM proposals WHERE tenant_id = $1
		UNION ALL
		SELECT 'lead', id, COALESCE(NULLIF(organization, ''), contact_name), status, created_at, updated_at FROM leads WHERE tenant_id = $1
		ORDER BY 6 DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		var a Activity
		var created time.Time
		err := row.Scan(&a.Kind, &a.ID, &a.Title, &a.Status, &created, &a.At)
		a.Action = ActionUpdated
		if !a.At.After(created) {
			a.Action = ActionCreated
		}
		return a, err
	})
}

// UpcomingEvents returns the next limit live events.
func (r *Repository) UpcomingEvents(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, event_type, status, venue_name, load_in_time, load_out_time
		FROM events WHERE tenant_id = $1 AND load_in_time >= $2 AND status NOT IN ('CANCELLED', 'ARCHIVED', 'COMPLETED')
		ORDER BY load_in_time LIMIT $3`, tenantID, now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		var e models.Event
		var eventType, status string
		err := row.Scan(&e.ID, &e.Name, &eventType, &status, &e.VenueName, &e.LoadInTime, &e.LoadOutTime)
		e.TenantID = tenantID
		e.EventType = models.EventType(eventType)
		e.Status = models.EventStatus(status)
		return e, err
	})
}

// Preferences returns the user's saved layout, or nil when none is saved.
func (r *Repository) Preferences(ctx context.Context, tenantID, userID uuid.UUID) (*Preferences, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT widgets FROM dashboard_preferences WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Preferences
	if err := json.Unmarshal(raw, &p.Widgets); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SavePreferences(ctx context.Context, tenantID, userID uuid.UUID, p *Preferences) error {
	raw, err := json.Marshal(p.Widgets)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO dashboard_preferences (tenant_id, user_id, widgets) VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET widgets = EXCLUDED.widgets, updated_at = NOW()`,
		tenantID, userID, raw)
	return err
}
