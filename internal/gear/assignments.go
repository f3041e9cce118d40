package gear

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

const assignmentColumns = `ga.id, ga.tenant_id, ga.gear_id, ga.event_id, ga.kit_id, ga.shift_id, ga.pack_status, ga.notes,
	ga.created_at, ga.updated_at, g.name, e.name, e.load_in_time, e.load_out_time`

const assignmentFrom = ` FROM gear_assignments ga JOIN gear g ON g.id = ga.gear_id JOIN events e ON e.id = ga.event_id`

func scanAssignment(row pgx.Row) (*models.GearAssignment, error) {
	var a models.GearAssignment
	var pack string
	if err := row.Scan(&a.ID, &a.TenantID, &a.GearID, &a.EventID, &a.KitID, &a.ShiftID, &pack, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt, &a.GearName, &a.EventName, &a.LoadInTime, &a.LoadOutTime); err != nil {
		return nil, err
	}
	a.PackStatus = models.PackStatus(pack)
	return &a, nil
}

// AssignmentFilter narrows ListAssignments.
type AssignmentFilter struct {
	EventID *uuid.UUID
	GearID  *uuid.UUID
	KitID   *uuid.UUID
	From    *time.Time
	To      *time.Time
}

// ListAssignments returns gear assignments by event load-in.
func (r *Repository) ListAssignments(ctx context.Context, tenantID uuid.UUID, f AssignmentFilter) ([]models.GearAssignment, error) {
	where := []string{"ga.tenant_id = $1"}
	args := []interface{}{tenantID}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.EventID != nil {
		add("ga.event_id = $%d", *f.EventID)
	}
	if f.GearID != nil {
		add("ga.gear_id = $%d", *f.GearID)
	}
	if f.KitID != nil {
		add("ga.kit_id = $%d", *f.KitID)
	}
	if f.From != nil {
		add("e.load_out_time > $%d", *f.From)
	}
	if f.To != nil {
		add("e.load_in_time < $%d", *f.To)
	}
	rows, err := r.db.Query(ctx, `SELECT `+assignmentColumns+assignmentFrom+` WHERE `+strings.Join(where, " AND ")+
		` ORDER BY e.load_in_time, g.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.GearAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetAssignment returns one gear assignment.
func (r *Repository) GetAssignment(ctx context.Context, tenantID, id uuid.UUID) (*models.GearAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, `SELECT `+assignmentColumns+assignmentFrom+` WHERE ga.id = $1 AND ga.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "gear assignment")
	}
	return a, nil
}

// Assign commits an item to an event after checking every reference. An item may appear once per event.
func (r *Repository) Assign(ctx context.Context, a *models.GearAssignment) error {
	if err := tenancy.Require(ctx, r.db, tenancy.Gear, a.TenantID, a.GearID); err != nil {
		return err
	}
	if err := tenancy.Require(ctx, r.db, tenancy.Event, a.TenantID, a.EventID); err != nil {
		return err
	}
	if err := r.requireKitMember(ctx, a.TenantID, a.KitID, a.GearID); err != nil {
		return err
	}
	if err := r.requireEventShift(ctx, a.TenantID, a.EventID, a.ShiftID); err != nil {
		return err
	}
	if a.PackStatus == "" {
		a.PackStatus = models.PackStatusNeedsPacking
	}
	err := r.db.QueryRow(ctx, `INSERT INTO gear_assignments (tenant_id, gear_id, event_id, kit_id, shift_id, pack_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		a.TenantID, a.GearID, a.EventID, a.KitID, a.ShiftID, string(a.PackStatus), a.Notes).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err = apperr.FromDB(err, "gear assignment"); apperr.IsConflict(err) {
			return apperr.Conflict("gear is already assigned to this event")
		}
		return err
	}
	return nil
}

// requireKitMember checks that the kit belongs to the tenant and contains the item.
func (r *Repository) requireKitMember(ctx context.Context, tenantID uuid.UUID, kitID *uuid.UUID, gearID uuid.UUID) error {
	if kitID == nil {
		return nil
	}
	if err := tenancy.Require(ctx, r.db, tenancy.Kit, tenantID, *kitID); err != nil {
		return err
	}
	var member bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM kit_gear WHERE kit_id = $1 AND gear_id = $2)`,
		*kitID, gearID).Scan(&member); err != nil {
		return err
	}
	if !member {
		return apperr.BadRequest("gear is not part of this kit")
	}
	return nil
}

// requireEventShift checks that the shift belongs to the tenant and to the assigned event.
func (r *Repository) requireEventShift(ctx context.Context, tenantID, eventID uuid.UUID, shiftID *uuid.UUID) error {
	if shiftID == nil {
		return nil
	}
	var shiftEvent uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT event_id FROM shifts WHERE id = $1 AND tenant_id = $2`, *shiftID, tenantID).Scan(&shiftEvent)
	if err != nil {
		return apperr.FromDB(err, "shift")
	}
	if shiftEvent != eventID {
		return apperr.BadRequest("shift belongs to another event")
	}
	return nil
}

// AssignKit assigns every item of a kit to an event in one transaction.
func (r *Repository) AssignKit(ctx context.Context, tenantID, kitID, eventID uuid.UUID, shiftID *uuid.UUID) ([]models.GearAssignment, error) {
	var out []models.GearAssignment
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txr := r.WithTx(tx)
		kit, err := txr.GetKit(ctx, tenantID, kitID)
		if err != nil {
			return err
		}
		if len(kit.GearIDs) == 0 {
			return apperr.BadRequest("kit %q has no gear", kit.Name)
		}
		out = make([]models.GearAssignment, 0, len(kit.GearIDs))
		for _, gearID := range kit.GearIDs {
			a := models.GearAssignment{TenantID: tenantID, GearID: gearID, EventID: eventID, KitID: &kitID, ShiftID: shiftID}
			if err := txr.Assign(ctx, &a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unassign removes a gear assignment.
func (r *Repository) Unassign(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gear_assignments WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("gear assignment")
	}
	return nil
}

// Reassign moves an assignment to another event of the tenant and resets its shift.
func (r *Repository) Reassign(ctx context.Context, tenantID, id, eventID uuid.UUID) (*models.GearAssignment, error) {
	if err := tenancy.Require(ctx, r.db, tenancy.Event, tenantID, eventID); err != nil {
		return nil, err
	}
	tag, err := r.db.Exec(ctx, `UPDATE gear_assignments SET event_id = $3, shift_id = NULL, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID, eventID)
	if err != nil {
		if err = apperr.FromDB(err, "gear assignment"); apperr.IsConflict(err) {
			return nil, apperr.Conflict("gear is already assigned to this event")
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("gear assignment")
	}
	return r.GetAssignment(ctx, tenantID, id)
}

// SetPackStatus records packing progress.
func (r *Repository) SetPackStatus(ctx context.Context, tenantID, id uuid.UUID, status models.PackStatus) (*models.GearAssignment, error) {
	tag, err := r.db.Exec(ctx, `UPDATE gear_assignments SET pack_status = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, string(status))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("gear assignment")
	}
	return r.GetAssignment(ctx, tenantID, id)
}

// Booked returns assignments of the given gear whose event window overlaps [from, to).
func (r *Repository) Booked(ctx context.Context, tenantID uuid.UUID, gearIDs []uuid.UUID, from, to time.Time) ([]models.GearAssignment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assignmentColumns+assignmentFrom+`
		WHERE ga.tenant_id = $1 AND ga.gear_id = ANY($2) AND e.status NOT IN ('CANCELLED', 'ARCHIVED')
		AND e.load_in_time < $4 AND e.load_out_time > $3 ORDER BY e.load_in_time`, tenantID, gearIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.GearAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
