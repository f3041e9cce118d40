package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/config"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
	"github.com/commandcentered/backend/internal/shifts"
)

// Outcome names what a drop did.
type Outcome string

const (
	OutcomeAssigned     Outcome = "assigned"
	OutcomeShiftCreated Outcome = "shift_created"
	OutcomeKitAssigned  Outcome = "kit_assigned"
	OutcomeMoved        Outcome = "moved"
	OutcomeNoEvent      Outcome = "no_event"
)

// Result reports a drop or move.
type Result struct {
	Outcome         Outcome                 `json:"outcome"`
	Event           *models.Event           `json:"event,omitempty"`
	Assignment      *shifts.AssignResult    `json:"assignment,omitempty"`
	GearAssignments []models.GearAssignment `json:"gear_assignments,omitempty"`
	DefaultsApplied bool                    `json:"defaults_applied"`
}

type EventFinder interface {
	EventOnDay(ctx context.Context, tenantID uuid.UUID, day time.Time) (*models.Event, error)
}

// ShiftService is the part of *shifts.Service the planner drives.
type ShiftService interface {
	GetShift(ctx context.Context, tenantID, id uuid.UUID) (*models.Shift, error)
	FirstShift(ctx context.Context, tenantID, eventID uuid.UUID) (*models.Shift, error)
	Assign(ctx context.Context, tenantID uuid.UUID, in shifts.AssignInput) (*shifts.AssignResult, error)
	CreateShiftAndAssign(ctx context.Context, tenantID uuid.UUID, shiftIn shifts.ShiftInput, in shifts.AssignInput) (*shifts.AssignResult, error)
	Move(ctx context.Context, tenantID, assignmentID, toShiftID uuid.UUID) (*shifts.AssignResult, error)
}

// KitAssigner assigns a whole kit in one transaction. *gear.Repository implements it.
type KitAssigner interface {
	AssignKit(ctx context.Context, tenantID, kitID, eventID uuid.UUID, shiftID *uuid.UUID) ([]models.GearAssignment, error)
}

// Defaults are the placeholder values of a planner drop.
type Defaults struct {
	Pay        scheduling.PayDefaults
	ShiftStart time.Duration
	ShiftEnd   time.Duration
	ShiftName  string
}

// DefaultsFrom parses the planner config.
func DefaultsFrom(cfg config.PlannerConfig) (Defaults, error) {
	start, err := clock(cfg.DefaultShiftStart)
	if err != nil {
		return Defaults{}, fmt.Errorf("default shift start: %w", err)
	}
	end, err := clock(cfg.DefaultShiftEnd)
	if err != nil {
		return Defaults{}, fmt.Errorf("default shift end: %w", err)
	}
	if end <= start {
		return Defaults{}, fmt.Errorf("default shift ends at %s, before it starts at %s", cfg.DefaultShiftEnd, cfg.DefaultShiftStart)
	}
	name := cfg.DefaultShiftName
	if name == "" {
		name = "Main Shift"
	}
	return Defaults{
		Pay:        scheduling.PayDefaults{HourlyRate: cfg.DefaultHourlyRate, Hours: cfg.DefaultHours},
		ShiftStart: start,
		ShiftEnd:   end,
		ShiftName:  name,
	}, nil
}

func clock(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Service applies drops. Each flow is one transaction in the layer below it.
type Service struct {
	events   EventFinder
	shifts   ShiftService
	kits     KitAssigner
	defaults Defaults
	logger   *zap.Logger
}

func NewService(events EventFinder, shiftSvc ShiftService, kits KitAssigner, defaults Defaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: events, shifts: shiftSvc, kits: kits, defaults: defaults, logger: logger}
}

// assignInput builds an HOURLY assignment for a dropped operator with the placeholder rate and hours.
func (s *Service) assignInput(operatorID uuid.UUID) (shifts.AssignInput, bool) {
	a := &models.ShiftAssignment{OperatorID: operatorID, PayType: models.PayTypeHourly}
	applied := s.defaults.Pay.Apply(a)
	return shifts.AssignInputFrom(a), applied
}

func (s *Service) defaultShift(event *models.Event, day time.Time) shifts.ShiftInput {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return shifts.ShiftInput{
		EventID:   event.ID,
		Name:      s.defaults.ShiftName,
		StartTime: midnight.Add(s.defaults.ShiftStart),
		EndTime:   midnight.Add(s.defaults.ShiftEnd),
	}
}

// DropOnDay finds the event loading in on day and applies p to it. A free day changes nothing.
func (s *Service) DropOnDay(ctx context.Context, tenantID uuid.UUID, p Payload, day time.Time) (*Result, error) {
	event, err := s.events.EventOnDay(ctx, tenantID, day)
	if err != nil {
		return nil, err
	}
	if event == nil {
		s.logger.Info("planner drop on a day without an event",
			zap.String("tenant_id", tenantID.String()),
			zap.String("payload_type", string(p.Type)),
			zap.String("payload_id", p.ID.String()),
			zap.String("day", day.Format("2006-01-02")))
		return &Result{Outcome: OutcomeNoEvent}, nil
	}

	if p.Type == PayloadKit {
		items, err := s.kits.AssignKit(ctx, tenantID, p.ID, event.ID, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeKitAssigned, Event: event, GearAssignments: items}, nil
	}

	shift, err := s.shifts.FirstShift(ctx, tenantID, event.ID)
	if err != nil {
		return nil, err
	}
	in, applied := s.assignInput(p.ID)
	if shift != nil {
		in.ShiftID = shift.ID
		res, err := s.shifts.Assign(ctx, tenantID, in)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeAssigned, Event: event, Assignment: res, DefaultsApplied: applied}, nil
	}
	res, err := s.shifts.CreateShiftAndAssign(ctx, tenantID, s.defaultShift(event, day), in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("planner created default shift",
		zap.String("event_id", event.ID.String()), zap.String("shift_id", res.Shift.ID.String()))
	return &Result{Outcome: OutcomeShiftCreated, Event: event, Assignment: res, DefaultsApplied: applied}, nil
}

// DropOnShift applies p to one shift. A kit is assigned to the shift's event for that shift.
func (s *Service) DropOnShift(ctx context.Context, tenantID uuid.UUID, p Payload, shiftID uuid.UUID) (*Result, error) {
	if p.Type == PayloadKit {
		shift, err := s.shifts.GetShift(ctx, tenantID, shiftID)
		if err != nil {
			return nil, err
		}
		items, err := s.kits.AssignKit(ctx, tenantID, p.ID, shift.EventID, &shift.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeKitAssigned, GearAssignments: items}, nil
	}
	in, applied := s.assignInput(p.ID)
	in.ShiftID = shiftID
	res, err := s.shifts.Assign(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeAssigned, Assignment: res, DefaultsApplied: applied}, nil
}

// Move drags an assignment onto another shift, keeping its role and pay fields.
func (s *Service) Move(ctx context.Context, tenantID, assignmentID, toShiftID uuid.UUID) (*Result, error) {
	res, err := s.shifts.Move(ctx, tenantID, assignmentID, toShiftID)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeMoved, Assignment: res}, nil
}
