package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// RevenueEvents returns events loading in within [from, to). Cancelled events are left out unless
// withCancelled is set.
func (r *Repository) RevenueEvents(ctx context.Context, tenantID uuid.UUID, from, to time.Time, withCancelled bool) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, event_type, status, load_in_time, load_out_time, projected_revenue, actual_revenue
		FROM events WHERE tenant_id = $1 AND load_in_time >= $2 AND load_in_time < $3 AND ($4 OR status <> 'CANCELLED')
		ORDER BY load_in_time`, tenantID, from, to, withCancelled)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		var e models.Event
		var eventType, status string
		err := row.Scan(&e.ID, &e.Name, &eventType, &status, &e.LoadInTime, &e.LoadOutTime, &e.ProjectedRevenue, &e.ActualRevenue)
		e.TenantID = tenantID
		e.EventType = models.EventType(eventType)
		e.Status = models.EventStatus(status)
		return e, err
	})
}

// UtilizationGear returns every non-retired item.
func (r *Repository) UtilizationGear(ctx context.Context, tenantID uuid.UUID) ([]models.Gear, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, category, status FROM gear
		WHERE tenant_id = $1 AND status <> 'RETIRED' ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Gear, error) {
		var g models.Gear
		var category, status string
		err := row.Scan(&g.ID, &g.Name, &category, &status)
		g.TenantID = tenantID
		g.Category = models.GearCategory(category)
		g.Status = models.GearStatus(status)
		return g, err
	})
}

// AssignmentWindows returns the event windows of gear assignments overlapping [from, to).
func (r *Repository) AssignmentWindows(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Window, error) {
	rows, err := r.db.Query(ctx, `SELECT ga.gear_id, e.load_in_time, e.load_out_time
		FROM gear_assignments ga JOIN events e ON e.id = ga.event_id
		WHERE ga.tenant_id = $1 AND e.status <> 'CANCELLED' AND e.load_in_time < $3 AND e.load_out_time > $2`,
		tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Window, error) {
		var w Window
		err := row.Scan(&w.GearID, &w.Start, &w.End)
		return w, err
	})
}

// PayAssignments returns assignments whose shift starts in [from, to).
func (r *Repository) PayAssignments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.ShiftAssignment, error) {
	rows, err := r.db.Query(ctx, `SELECT sa.id, sa.shift_id, sa.operator_id, o.name, sa.estimated_hours, sa.actual_hours, sa.calculated_pay
		FROM shift_assignments sa JOIN shifts s ON s.id = sa.shift_id JOIN operators o ON o.id = sa.operator_id
		WHERE sa.tenant_id = $1 AND s.start_time >= $2 AND s.start_time < $3`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ShiftAssignment, error) {
		var a models.ShiftAssignment
		err := row.Scan(&a.ID, &a.ShiftID, &a.OperatorID, &a.OperatorName, &a.EstimatedHours, &a.ActualHours, &a.CalculatedPay)
		a.TenantID = tenantID
		return a, err
	})
}

// DeliverableCounts is the deliverable pipeline by status.
type DeliverableCounts struct {
	ByStatus map[models.DeliverableStatus]int `json:"by_status"`
	Overdue  int                              `json:"overdue"`
	Total    int                              `json:"total"`
}

// DeliverableCounts counts deliverables by status. Overdue are open ones past their due date.
func (r *Repository) DeliverableCounts(ctx context.Context, tenantID uuid.UUID, now time.Time) (*DeliverableCounts, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*),
		COUNT(*) FILTER (WHERE due_date < $2 AND status IN ('PENDING', 'IN_PROGRESS'))
		FROM deliverables WHERE tenant_id = $1 GROUP BY status`, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := &DeliverableCounts{ByStatus: map[models.DeliverableStatus]int{
		models.DeliverablePending: 0, models.DeliverableInProgress: 0, models.DeliverableCompleted: 0, models.DeliverableCancelled: 0,
	}}
	for rows.Next() {
		var status string
		var n, overdue int
		if err := rows.Scan(&status, &n, &overdue); err != nil {
			return nil, err
		}
		out.ByStatus[models.DeliverableStatus(status)] = n
		out.Total += n
		out.Overdue += overdue
	}
	return out, rows.Err()
}
