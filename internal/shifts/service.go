package shifts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	scheduling.ConflictSource

	RequireEvent(ctx context.Context, tenantID, eventID uuid.UUID) error
	RequireOperator(ctx context.Context, tenantID, operatorID uuid.UUID) error

	ListByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]models.Shift, error)
	GetShift(ctx context.Context, tenantID, id uuid.UUID) (*models.Shift, error)
	FirstShift(ctx context.Context, tenantID, eventID uuid.UUID) (*models.Shift, error)
	CreateShift(ctx context.Context, s *models.Shift) error
	UpdateShift(ctx context.Context, s *models.Shift) error
	DeleteShift(ctx context.Context, tenantID, id uuid.UUID) error

	GetAssignment(ctx context.Context, tenantID, id uuid.UUID) (*models.ShiftAssignment, error)
	AssignmentExists(ctx context.Context, shiftID, operatorID uuid.UUID) (bool, error)
	CreateAssignment(ctx context.Context, a *models.ShiftAssignment) error
	UpdateAssignment(ctx context.Context, a *models.ShiftAssignment) error
	DeleteAssignment(ctx context.Context, tenantID, id uuid.UUID) error

	RunInTx(ctx context.Context, fn func(Store) error) error
}

// Service holds the shift and assignment rules.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a shift service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ShiftInput describes a new shift.
type ShiftInput struct {
	EventID   uuid.UUID `json:"event_id" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Notes     string    `json:"notes"`
}

func (in ShiftInput) shift(tenantID uuid.UUID) (*models.Shift, error) {
	s := &models.Shift{TenantID: tenantID, EventID: in.EventID, Name: strings.TrimSpace(in.Name),
		StartTime: in.StartTime, EndTime: in.EndTime, Notes: in.Notes}
	if s.Name == "" {
		return nil, apperr.Validation("shift name is required")
	}
	if err := (scheduling.Window{Start: s.StartTime, End: s.EndTime}).Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AssignInput describes a new assignment.
type AssignInput struct {
	ShiftID        uuid.UUID           `json:"shift_id"`
	OperatorID     uuid.UUID           `json:"operator_id" binding:"required"`
	Role           string              `json:"role"`
	PayType        models.PayType      `json:"pay_type" binding:"required"`
	HourlyRate     decimal.NullDecimal `json:"hourly_rate"`
	EstimatedHours decimal.NullDecimal `json:"estimated_hours"`
	ActualHours    decimal.NullDecimal `json:"actual_hours"`
	FlatRate       decimal.NullDecimal `json:"flat_rate"`
	Notes          string              `json:"notes"`
}

// AssignInputFrom copies the operator, role and pay fields of a.
func AssignInputFrom(a *models.ShiftAssignment) AssignInput {
	return AssignInput{
		ShiftID:        a.ShiftID,
		OperatorID:     a.OperatorID,
		Role:           a.Role,
		PayType:        a.PayType,
		HourlyRate:     a.HourlyRate,
		EstimatedHours: a.EstimatedHours,
		ActualHours:    a.ActualHours,
		FlatRate:       a.FlatRate,
		Notes:          a.Notes,
	}
}

func (in AssignInput) assignment(tenantID uuid.UUID) *models.ShiftAssignment {
	return &models.ShiftAssignment{
		TenantID:       tenantID,
		ShiftID:        in.ShiftID,
		OperatorID:     in.OperatorID,
		Role:           in.Role,
		PayType:        in.PayType,
		HourlyRate:     in.HourlyRate,
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
		FlatRate:       in.FlatRate,
		Notes:          in.Notes,
	}
}

// AssignResult is a stored assignment with the advisory conflict report for its operator.
type AssignResult struct {
	Assignment *models.ShiftAssignment   `json:"assignment"`
	Shift      *models.Shift             `json:"shift,omitempty"`
	Conflicts  scheduling.ConflictReport `json:"conflicts"`
}

// ListByEvent returns the event's shifts with assignments.
func (s *Service) ListByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]models.Shift, error) {
	if err := s.store.RequireEvent(ctx, tenantID, eventID); err != nil {
		return nil, err
	}
	return s.store.ListByEvent(ctx, tenantID, eventID)
}

// GetShift returns one shift.
func (s *Service) GetShift(ctx context.Context, tenantID, id uuid.UUID) (*models.Shift, error) {
	return s.store.GetShift(ctx, tenantID, id)
}

// CreateShift validates the window and the event's tenant, then inserts.
func (s *Service) CreateShift(ctx context.Context, tenantID uuid.UUID, in ShiftInput) (*models.Shift, error) {
	return createShift(ctx, s.store, tenantID, in)
}

func createShift(ctx context.Context, store Store, tenantID uuid.UUID, in ShiftInput) (*models.Shift, error) {
	shift, err := in.shift(tenantID)
	if err != nil {
		return nil, err
	}
	if err := store.RequireEvent(ctx, tenantID, in.EventID); err != nil {
		return nil, err
	}
	if err := store.CreateShift(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// ShiftPatch holds the fields of a shift update. Nil fields are unchanged.
type ShiftPatch struct {
	Name      *string    `json:"name"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Notes     *string    `json:"notes"`
}

// UpdateShift applies patch to a shift.
func (s *Service) UpdateShift(ctx context.Context, tenantID, id uuid.UUID, patch ShiftPatch) (*models.Shift, error) {
	shift, err := s.store.GetShift(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		shift.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.StartTime != nil {
		shift.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		shift.EndTime = *patch.EndTime
	}
	if patch.Notes != nil {
		shift.Notes = *patch.Notes
	}
	if shift.Name == "" {
		return nil, apperr.Validation("shift name is required")
	}
	if err := (scheduling.Window{Start: shift.StartTime, End: shift.EndTime}).Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateShift(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// DeleteShift removes a shift and its assignments.
func (s *Service) DeleteShift(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.store.DeleteShift(ctx, tenantID, id)
}

// Assign puts an operator on a shift. Both must belong to the tenant and the pair must be new.
// Overlapping bookings are reported but do not block.
func (s *Service) Assign(ctx context.Context, tenantID uuid.UUID, in AssignInput) (*AssignResult, error) {
	a, shift, err := assign(ctx, s.store, tenantID, in)
	if err != nil {
		return nil, err
	}
	return s.withConflicts(ctx, tenantID, a, shift)
}

func assign(ctx context.Context, store Store, tenantID uuid.UUID, in AssignInput) (*models.ShiftAssignment, *models.Shift, error) {
	shift, err := store.GetShift(ctx, tenantID, in.ShiftID)
	if err != nil {
		return nil, nil, err
	}
	if err := store.RequireOperator(ctx, tenantID, in.OperatorID); err != nil {
		return nil, nil, err
	}
	exists, err := store.AssignmentExists(ctx, shift.ID, in.OperatorID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, apperr.Conflict("operator is already assigned to this shift")
	}
	a := in.assignment(tenantID)
	if err := scheduling.ApplyPay(a); err != nil {
		return nil, nil, err
	}
	if err := store.CreateAssignment(ctx, a); err != nil {
		return nil, nil, err
	}
	return a, shift, nil
}

func (s *Service) withConflicts(ctx context.Context, tenantID uuid.UUID, a *models.ShiftAssignment, shift *models.Shift) (*AssignResult, error) {
	window := scheduling.Window{Start: shift.StartTime, End: shift.EndTime}
	report, err := scheduling.NewConflictChecker(s.store).Check(ctx, tenantID, a.OperatorID, window, &shift.ID)
	if err != nil {
		// the assignment is stored; a failed advisory check is not worth failing the request
		s.logger.Warn("conflict check failed", zap.String("assignment_id", a.ID.String()), zap.Error(err))
		report = scheduling.ConflictReport{Shifts: []scheduling.ShiftConflict{}, Blackouts: []scheduling.BlackoutConflict{}}
	}
	if report.HasConflict {
		s.logger.Info("assignment overlaps existing bookings",
			zap.String("operator_id", a.OperatorID.String()),
			zap.Int("shift_conflicts", len(report.Shifts)),
			zap.Int("blackout_conflicts", len(report.Blackouts)))
	}
	return &AssignResult{Assignment: a, Shift: shift, Conflicts: report}, nil
}

// AssignmentPatch holds the fields of an assignment update. Nil fields are unchanged.
type AssignmentPatch struct {
	Role           *string              `json:"role"`
	PayType        *models.PayType      `json:"pay_type"`
	HourlyRate     *decimal.NullDecimal `json:"hourly_rate"`
	EstimatedHours *decimal.NullDecimal `json:"estimated_hours"`
	ActualHours    *decimal.NullDecimal `json:"actual_hours"`
	FlatRate       *decimal.NullDecimal `json:"flat_rate"`
	Notes          *string              `json:"notes"`
}

// UpdateAssignment applies patch and recomputes pay.
func (s *Service) UpdateAssignment(ctx context.Context, tenantID, id uuid.UUID, patch AssignmentPatch) (*models.ShiftAssignment, error) {
	a, err := s.store.GetAssignment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	if patch.PayType != nil {
		a.PayType = *patch.PayType
	}
	if patch.HourlyRate != nil {
		a.HourlyRate = *patch.HourlyRate
	}
	if patch.EstimatedHours != nil {
		a.EstimatedHours = *patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		a.ActualHours = *patch.ActualHours
	}
	if patch.FlatRate != nil {
		a.FlatRate = *patch.FlatRate
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if err := scheduling.ApplyPay(a); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Unassign removes an assignment.
func (s *Service) Unassign(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.store.DeleteAssignment(ctx, tenantID, id)
}

// CreateShiftAndAssign creates a shift and assigns an operator to it in one transaction.
// If the assignment fails no shift is left behind.
func (s *Service) CreateShiftAndAssign(ctx context.Context, tenantID uuid.UUID, shiftIn ShiftInput, in AssignInput) (*AssignResult, error) {
	var a *models.ShiftAssignment
	var shift *models.Shift
	err := s.store.RunInTx(ctx, func(tx Store) error {
		var err error
		if shift, err = createShift(ctx, tx, tenantID, shiftIn); err != nil {
			return err
		}
		in.ShiftID = shift.ID
		a, _, err = assign(ctx, tx, tenantID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.withConflicts(ctx, tenantID, a, shift)
}

// Move reassigns an operator from their current shift to toShiftID, carrying role and pay fields.
// The old assignment is removed and the new one created in one transaction.
func (s *Service) Move(ctx context.Context, tenantID, assignmentID, toShiftID uuid.UUID) (*AssignResult, error) {
	var a *models.ShiftAssignment
	var shift *models.Shift
	err := s.store.RunInTx(ctx, func(tx Store) error {
		old, err := tx.GetAssignment(ctx, tenantID, assignmentID)
		if err != nil {
			return err
		}
		if old.ShiftID == toShiftID {
			return apperr.BadRequest("assignment is already on this shift")
		}
		if err := tx.DeleteAssignment(ctx, tenantID, old.ID); err != nil {
			return err
		}
		in := AssignInputFrom(old)
		in.ShiftID = toShiftID
		a, shift, err = assign(ctx, tx, tenantID, in)
		if err != nil {
			return fmt.Errorf("moving assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.withConflicts(ctx, tenantID, a, shift)
}

// FirstShift returns the event's earliest shift or nil.
func (s *Service) FirstShift(ctx context.Context, tenantID, eventID uuid.UUID) (*models.Shift, error) {
	return s.store.FirstShift(ctx, tenantID, eventID)
}

// CheckConflicts reports overlaps of window with the operator's bookings.
func (s *Service) CheckConflicts(ctx context.Context, tenantID, operatorID uuid.UUID, window scheduling.Window, excludeShiftID *uuid.UUID) (scheduling.ConflictReport, error) {
	if err := s.store.RequireOperator(ctx, tenantID, operatorID); err != nil {
		return scheduling.ConflictReport{}, err
	}
	return scheduling.NewConflictChecker(s.store).Check(ctx, tenantID, operatorID, window, excludeShiftID)
}
