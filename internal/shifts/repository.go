package shifts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const shiftColumns = `id, tenant_id, event_id, name, start_time, end_time, notes, created_at, updated_at`

const assignmentColumns = `sa.id, sa.tenant_id, sa.shift_id, sa.operator_id, sa.role, sa.pay_type, sa.hourly_rate,
	sa.estimated_hours, sa.actual_hours, sa.flat_rate, sa.calculated_pay, sa.notes, sa.created_at, sa.updated_at, o.name`

// Repository handles shift and shift assignment persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a shifts repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// RunInTx runs fn against a transaction-bound store. fn's error rolls everything back.
func (r *Repository) RunInTx(ctx context.Context, fn func(Store) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(r.WithTx(tx))
	})
}

func scanShift(row pgx.Row) (*models.Shift, error) {
	var s models.Shift
	if err := row.Scan(&s.ID, &s.TenantID, &s.EventID, &s.Name, &s.StartTime, &s.EndTime, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanAssignment(row pgx.Row) (*models.ShiftAssignment, error) {
	var a models.ShiftAssignment
	var payType string
	if err := row.Scan(&a.ID, &a.TenantID, &a.ShiftID, &a.OperatorID, &a.Role, &payType, &a.HourlyRate,
		&a.EstimatedHours, &a.ActualHours, &a.FlatRate, &a.CalculatedPay, &a.Notes, &a.CreatedAt, &a.UpdatedAt, &a.OperatorName); err != nil {
		return nil, err
	}
	a.PayType = models.PayType(payType)
	return &a, nil
}

// RequireEvent checks that the event belongs to the tenant.
func (r *Repository) RequireEvent(ctx context.Context, tenantID, eventID uuid.UUID) error {
	return tenancy.Require(ctx, r.db, tenancy.Event, tenantID, eventID)
}

// RequireOperator checks that the operator belongs to the tenant.
func (r *Repository) RequireOperator(ctx context.Context, tenantID, operatorID uuid.UUID) error {
	return tenancy.Require(ctx, r.db, tenancy.Operator, tenantID, operatorID)
}

// ListByEvent returns the event's shifts in start order, each with its assignments.
func (r *Repository) ListByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]models.Shift, error) {
	rows, err := r.db.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE tenant_id = $1 AND event_id = $2 ORDER BY start_time, name`, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	list := []models.Shift{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[s.ID] = len(list)
		s.Assignments = []models.ShiftAssignment{}
		list = append(list, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	arows, err := r.db.Query(ctx, `SELECT `+assignmentColumns+` FROM shift_assignments sa
		JOIN operators o ON o.id = sa.operator_id
		JOIN shifts s ON s.id = sa.shift_id
		WHERE sa.tenant_id = $1 AND s.event_id = $2 ORDER BY o.name`, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		a, err := scanAssignment(arows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.ShiftID]; ok {
			list[i].Assignments = append(list[i].Assignments, *a)
		}
	}
	return list, arows.Err()
}

// GetShift returns a shift of the tenant.
func (r *Repository) GetShift(ctx context.Context, tenantID, id uuid.UUID) (*models.Shift, error) {
	s, err := scanShift(r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "shift")
	}
	return s, nil
}

// FirstShift returns the event's earliest shift, or nil when it has none.
func (r *Repository) FirstShift(ctx context.Context, tenantID, eventID uuid.UUID) (*models.Shift, error) {
	s, err := scanShift(r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE tenant_id = $1 AND event_id = $2 ORDER BY start_time, created_at LIMIT 1`, tenantID, eventID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateShift inserts a shift.
func (r *Repository) CreateShift(ctx context.Context, s *models.Shift) error {
	err := r.db.QueryRow(ctx, `INSERT INTO shifts (tenant_id, event_id, name, start_time, end_time, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		s.TenantID, s.EventID, s.Name, s.StartTime, s.EndTime, s.Notes).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return apperr.FromDB(err, "shift")
}

// UpdateShift writes a shift's name, window and notes.
func (r *Repository) UpdateShift(ctx context.Context, s *models.Shift) error {
	err := r.db.QueryRow(ctx, `UPDATE shifts SET name = $3, start_time = $4, end_time = $5, notes = $6, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		s.ID, s.TenantID, s.Name, s.StartTime, s.EndTime, s.Notes).Scan(&s.UpdatedAt)
	return apperr.FromDB(err, "shift")
}

// DeleteShift removes a shift. Its assignments cascade.
func (r *Repository) DeleteShift(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shifts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("shift")
	}
	return nil
}

// GetAssignment returns an assignment of the tenant.
func (r *Repository) GetAssignment(ctx context.Context, tenantID, id uuid.UUID) (*models.ShiftAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM shift_assignments sa
		JOIN operators o ON o.id = sa.operator_id WHERE sa.id = $1 AND sa.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "shift assignment")
	}
	return a, nil
}

// AssignmentExists reports whether the operator is already on the shift.
func (r *Repository) AssignmentExists(ctx context.Context, shiftID, operatorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM shift_assignments WHERE shift_id = $1 AND operator_id = $2)`,
		shiftID, operatorID).Scan(&exists)
	return exists, err
}

// CreateAssignment inserts an assignment. The (shift, operator) unique index turns a race into a conflict.
func (r *Repository) CreateAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	err := r.db.QueryRow(ctx, `INSERT INTO shift_assignments (tenant_id, shift_id, operator_id, role, pay_type,
		hourly_rate, estimated_hours, actual_hours, flat_rate, calculated_pay, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at, updated_at`,
		a.TenantID, a.ShiftID, a.OperatorID, a.Role, string(a.PayType), a.HourlyRate, a.EstimatedHours,
		a.ActualHours, a.FlatRate, a.CalculatedPay, a.Notes).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return apperr.FromDB(err, "shift assignment")
}

// UpdateAssignment writes role, pay fields, calculated pay and notes.
func (r *Repository) UpdateAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	err := r.db.QueryRow(ctx, `UPDATE shift_assignments SET role = $3, pay_type = $4, hourly_rate = $5,
		estimated_hours = $6, actual_hours = $7, flat_rate = $8, calculated_pay = $9, notes = $10, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		a.ID, a.TenantID, a.Role, string(a.PayType), a.HourlyRate, a.EstimatedHours, a.ActualHours, a.FlatRate,
		a.CalculatedPay, a.Notes).Scan(&a.UpdatedAt)
	return apperr.FromDB(err, "shift assignment")
}

// DeleteAssignment removes an assignment.
func (r *Repository) DeleteAssignment(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shift_assignments WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("shift assignment")
	}
	return nil
}

// BookedShifts returns the operator's assignments whose shift overlaps window.
func (r *Repository) BookedShifts(ctx context.Context, tenantID, operatorID uuid.UUID, window scheduling.Window) ([]scheduling.BookedShift, error) {
	rows, err := r.db.Query(ctx, `SELECT sa.id, s.id, s.name, e.id, e.name, s.start_time, s.end_time
		FROM shift_assignments sa
		JOIN shifts s ON s.id = sa.shift_id
		JOIN events e ON e.id = s.event_id
		WHERE sa.tenant_id = $1 AND sa.operator_id = $2 AND s.start_time < $4 AND s.end_time > $3
			AND e.status NOT IN ('CANCELLED', 'ARCHIVED')
		ORDER BY s.start_time`, tenantID, operatorID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []scheduling.BookedShift
	for rows.Next() {
		var b scheduling.BookedShift
		if err := rows.Scan(&b.AssignmentID, &b.ShiftID, &b.ShiftName, &b.EventID, &b.EventName, &b.Window.Start, &b.Window.End); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// BlackoutDates returns the operator's blackout records touching window.
func (r *Repository) BlackoutDates(ctx context.Context, tenantID, operatorID uuid.UUID, window scheduling.Window) ([]models.BlackoutDate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, operator_id, start_date, end_date, reason, created_at
		FROM operator_blackout_dates
		WHERE tenant_id = $1 AND operator_id = $2 AND start_date < $4 AND end_date >= $3::date
		ORDER BY start_date`, tenantID, operatorID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.BlackoutDate
	for rows.Next() {
		var b models.BlackoutDate
		if err := rows.Scan(&b.ID, &b.TenantID, &b.OperatorID, &b.StartDate, &b.EndDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
