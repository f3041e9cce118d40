package operators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const operatorColumns = `id, tenant_id, name, email, phone, hourly_rate, primary_role, is_active, notes, created_at, updated_at`

// Repository handles operator persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an operators repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanOperator(row pgx.Row) (*models.Operator, error) {
	var o models.Operator
	if err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Email, &o.Phone, &o.HourlyRate, &o.PrimaryRole,
		&o.IsActive, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// Filter narrows List.
type Filter struct {
	Active *bool
	Search string
}

// List returns the tenant's operators by name.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Operator, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR primary_role ILIKE $%d)", len(args), len(args), len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+operatorColumns+` FROM operators WHERE `+strings.Join(where, " AND ")+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Operator{}
	for rows.Next() {
		o, err := scanOperator(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// GetByID returns an operator with skills.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Operator, error) {
	o, err := scanOperator(r.db.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "operator")
	}
	if o.Skills, err = r.ListSkills(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts an operator.
func (r *Repository) Create(ctx context.Context, o *models.Operator) error {
	err := r.db.QueryRow(ctx, `INSERT INTO operators (tenant_id, name, email, phone, hourly_rate, primary_role, is_active, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		o.TenantID, o.Name, o.Email, o.Phone, o.HourlyRate, o.PrimaryRole, o.IsActive, o.Notes).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return apperr.FromDB(err, "operator")
}

// Update writes an operator's mutable fields.
func (r *Repository) Update(ctx context.Context, o *models.Operator) error {
	err := r.db.QueryRow(ctx, `UPDATE operators SET name = $3, email = $4, phone = $5, hourly_rate = $6, primary_role = $7,
		is_active = $8, notes = $9, updated_at = NOW() WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		o.ID, o.TenantID, o.Name, o.Email, o.Phone, o.HourlyRate, o.PrimaryRole, o.IsActive, o.Notes).Scan(&o.UpdatedAt)
	return apperr.FromDB(err, "operator")
}

// Deactivate soft-deletes an operator.
func (r *Repository) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE operators SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("operator")
	}
	return nil
}

// ListSkills returns an operator's skills.
func (r *Repository) ListSkills(ctx context.Context, operatorID uuid.UUID) ([]models.OperatorSkill, error) {
	rows, err := r.db.Query(ctx, `SELECT id, operator_id, name, level FROM operator_skills WHERE operator_id = $1 ORDER BY name`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OperatorSkill{}
	for rows.Next() {
		var s models.OperatorSkill
		if err := rows.Scan(&s.ID, &s.OperatorID, &s.Name, &s.Level); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ReplaceSkills swaps an operator's skill set in one transaction.
func (r *Repository) ReplaceSkills(ctx context.Context, tenantID, operatorID uuid.UUID, skills []models.OperatorSkill) ([]models.OperatorSkill, error) {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tenancy.Require(ctx, tx, tenancy.Operator, tenantID, operatorID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM operator_skills WHERE operator_id = $1`, operatorID); err != nil {
			return err
		}
		for i := range skills {
			skills[i].OperatorID = operatorID
			if err := tx.QueryRow(ctx, `INSERT INTO operator_skills (operator_id, name, level) VALUES ($1, $2, $3) RETURNING id`,
				operatorID, skills[i].Name, skills[i].Level).Scan(&skills[i].ID); err != nil {
				return apperr.FromDB(err, "skill")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skills, nil
}

const availabilityColumns = `id, tenant_id, operator_id, date, type, start_time, end_time, notes, created_at`

func scanAvailability(row pgx.Row) (*models.OperatorAvailability, error) {
	var a models.OperatorAvailability
	var typ string
	if err := row.Scan(&a.ID, &a.TenantID, &a.OperatorID, &a.Date, &typ, &a.StartTime, &a.EndTime, &a.Notes, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = models.AvailabilityType(typ)
	return &a, nil
}

// ListAvailability returns availability records in [from, to] by date.
func (r *Repository) ListAvailability(ctx context.Context, tenantID, operatorID uuid.UUID, from, to time.Time) ([]models.OperatorAvailability, error) {
	rows, err := r.db.Query(ctx, `SELECT `+availabilityColumns+` FROM operator_availability
		WHERE tenant_id = $1 AND operator_id = $2 AND date >= $3::date AND date <= $4::date ORDER BY date, start_time`,
		tenantID, operatorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OperatorAvailability{}
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// CreateAvailability inserts availability records in one transaction.
func (r *Repository) CreateAvailability(ctx context.Context, tenantID, operatorID uuid.UUID, items []models.OperatorAvailability) ([]models.OperatorAvailability, error) {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tenancy.Require(ctx, tx, tenancy.Operator, tenantID, operatorID); err != nil {
			return err
		}
		for i := range items {
			a := &items[i]
			a.TenantID, a.OperatorID = tenantID, operatorID
			if err := tx.QueryRow(ctx, `INSERT INTO operator_availability (tenant_id, operator_id, date, type, start_time, end_time, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
				a.TenantID, a.OperatorID, a.Date, string(a.Type), a.StartTime, a.EndTime, a.Notes).Scan(&a.ID, &a.CreatedAt); err != nil {
				return apperr.FromDB(err, "availability")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteAvailability removes an availability record.
func (r *Repository) DeleteAvailability(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.deleteScoped(ctx, "operator_availability", "availability", tenantID, id)
}

// ListBlackouts returns an operator's blackout dates.
func (r *Repository) ListBlackouts(ctx context.Context, tenantID, operatorID uuid.UUID) ([]models.BlackoutDate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, operator_id, start_date, end_date, reason, created_at
		FROM operator_blackout_dates WHERE tenant_id = $1 AND operator_id = $2 ORDER BY start_date`, tenantID, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.BlackoutDate{}
	for rows.Next() {
		var b models.BlackoutDate
		if err := rows.Scan(&b.ID, &b.TenantID, &b.OperatorID, &b.StartDate, &b.EndDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// AddBlackout inserts a blackout range for an operator of the tenant.
func (r *Repository) AddBlackout(ctx context.Context, b *models.BlackoutDate) error {
	if err := tenancy.Require(ctx, r.db, tenancy.Operator, b.TenantID, b.OperatorID); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx, `INSERT INTO operator_blackout_dates (tenant_id, operator_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		b.TenantID, b.OperatorID, b.StartDate, b.EndDate, b.Reason).Scan(&b.ID, &b.CreatedAt)
	return apperr.FromDB(err, "blackout date")
}

// DeleteBlackout removes a blackout range.
func (r *Repository) DeleteBlackout(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.deleteScoped(ctx, "operator_blackout_dates", "blackout date", tenantID, id)
}

func (r *Repository) deleteScoped(ctx context.Context, table, entity string, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// Assignments returns the operator's assignments that ended before now (past) or end after now (upcoming).
func (r *Repository) Assignments(ctx context.Context, tenantID, operatorID uuid.UUID, now time.Time, upcoming bool, limit int) ([]models.OperatorAssignment, error) {
	cond, order := "s.end_time <= $3", "s.start_time DESC"
	if upcoming {
		cond, order = "s.end_time > $3", "s.start_time"
	}
	rows, err := r.db.Query(ctx, `SELECT sa.id, s.id, s.name, e.id, e.name, s.start_time, s.end_time, sa.role, sa.pay_type, sa.calculated_pay
		FROM shift_assignments sa
		JOIN shifts s ON s.id = sa.shift_id
		JOIN events e ON e.id = s.event_id
		WHERE sa.tenant_id = $1 AND sa.operator_id = $2 AND `+cond+`
		ORDER BY `+order+` LIMIT $4`, tenantID, operatorID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OperatorAssignment{}
	for rows.Next() {
		var a models.OperatorAssignment
		var payType string
		if err := rows.Scan(&a.AssignmentID, &a.ShiftID, &a.ShiftName, &a.EventID, &a.EventName, &a.StartTime, &a.EndTime,
			&a.Role, &payType, &a.CalculatedPay); err != nil {
			return nil, err
		}
		a.PayType = models.PayType(payType)
		list = append(list, a)
	}
	return list, rows.Err()
}
