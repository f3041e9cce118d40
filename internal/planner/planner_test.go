package planner

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/commandcentered/backend/config"
	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/shifts"
	"github.com/commandcentered/backend/internal/testutil"
)

type fakeEvents struct{ event *models.Event }

func (f fakeEvents) EventOnDay(context.Context, uuid.UUID, time.Time) (*models.Event, error) {
	return f.event, nil
}

type fakeShifts struct {
	first    *models.Shift
	shift    *models.Shift
	assigned []shifts.AssignInput
	created  []shifts.ShiftInput
	moved    []uuid.UUID
	err      error
}

func (f *fakeShifts) GetShift(_ context.Context, _, id uuid.UUID) (*models.Shift, error) {
	if f.shift == nil || f.shift.ID != id {
		return nil, apperr.NotFound("shift")
	}
	return f.shift, nil
}

func (f *fakeShifts) FirstShift(context.Context, uuid.UUID, uuid.UUID) (*models.Shift, error) {
	return f.first, nil
}

func (f *fakeShifts) Assign(_ context.Context, _ uuid.UUID, in shifts.AssignInput) (*shifts.AssignResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.assigned = append(f.assigned, in)
	return &shifts.AssignResult{Assignment: &models.ShiftAssignment{ShiftID: in.ShiftID, OperatorID: in.OperatorID}}, nil
}

func (f *fakeShifts) CreateShiftAndAssign(_ context.Context, _ uuid.UUID, sh shifts.ShiftInput, in shifts.AssignInput) (*shifts.AssignResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, sh)
	f.assigned = append(f.assigned, in)
	shift := &models.Shift{ID: uuid.New(), EventID: sh.EventID, Name: sh.Name, StartTime: sh.StartTime, EndTime: sh.EndTime}
	return &shifts.AssignResult{Assignment: &models.ShiftAssignment{ShiftID: shift.ID, OperatorID: in.OperatorID}, Shift: shift}, nil
}

func (f *fakeShifts) Move(_ context.Context, _, assignmentID, toShiftID uuid.UUID) (*shifts.AssignResult, error) {
	f.moved = append(f.moved, assignmentID, toShiftID)
	return &shifts.AssignResult{Assignment: &models.ShiftAssignment{ShiftID: toShiftID}}, nil
}

type fakeKits struct {
	calls   int
	shiftID *uuid.UUID
}

func (f *fakeKits) AssignKit(_ context.Context, tenantID, kitID, eventID uuid.UUID, shiftID *uuid.UUID) ([]models.GearAssignment, error) {
	f.calls++
	f.shiftID = shiftID
	return []models.GearAssignment{{GearID: uuid.New(), EventID: eventID, KitID: &kitID}}, nil
}

func testDefaults(t *testing.T) Defaults {
	d, err := DefaultsFrom(config.PlannerConfig{
		DefaultHourlyRate: decimal.NewFromInt(50),
		DefaultHours:      decimal.NewFromInt(8),
		DefaultShiftStart: "09:00",
		DefaultShiftEnd:   "17:00",
		DefaultShiftName:  "Main Shift",
	})
	require.NoError(t, err)
	return d
}

var dropDay = time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC)

func TestDropOnFreeDayChangesNothing(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sh := &fakeShifts{}
	kits := &fakeKits{}
	svc := NewService(fakeEvents{}, sh, kits, testDefaults(t), zap.New(core))

	for _, p := range []Payload{{Type: PayloadOperator, ID: uuid.New()}, {Type: PayloadKit, ID: uuid.New()}} {
		res, err := svc.DropOnDay(context.Background(), uuid.New(), p, dropDay)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoEvent, res.Outcome)
		assert.False(t, res.DefaultsApplied)
	}
	assert.Empty(t, sh.assigned)
	assert.Empty(t, sh.created)
	assert.Zero(t, kits.calls)
	assert.Equal(t, 2, logs.FilterMessage("planner drop on a day without an event").Len())
}

func TestDropOperatorCreatesDefaultShift(t *testing.T) {
	event := &models.Event{ID: uuid.New(), Name: "Spring Recital"}
	sh := &fakeShifts{}
	svc := NewService(fakeEvents{event: event}, sh, &fakeKits{}, testDefaults(t), nil)
	operator := uuid.New()

	res, err := svc.DropOnDay(context.Background(), uuid.New(), Payload{Type: PayloadOperator, ID: operator}, dropDay)
	require.NoError(t, err)
	assert.Equal(t, OutcomeShiftCreated, res.Outcome)
	assert.True(t, res.DefaultsApplied)

	require.Len(t, sh.created, 1)
	assert.Equal(t, "Main Shift", sh.created[0].Name)
	assert.Equal(t, event.ID, sh.created[0].EventID)
	assert.Equal(t, dropDay.Add(9*time.Hour), sh.created[0].StartTime)
	assert.Equal(t, dropDay.Add(17*time.Hour), sh.created[0].EndTime)

	require.Len(t, sh.assigned, 1)
	in := sh.assigned[0]
	assert.Equal(t, operator, in.OperatorID)
	assert.Equal(t, models.PayTypeHourly, in.PayType)
	assert.True(t, decimal.NewFromInt(50).Equal(in.HourlyRate.Decimal))
	assert.True(t, decimal.NewFromInt(8).Equal(in.EstimatedHours.Decimal))
}

func TestDropOperatorUsesFirstShift(t *testing.T) {
	first := &models.Shift{ID: uuid.New()}
	sh := &fakeShifts{first: first}
	svc := NewService(fakeEvents{event: &models.Event{ID: uuid.New()}}, sh, &fakeKits{}, testDefaults(t), nil)

	res, err := svc.DropOnDay(context.Background(), uuid.New(), Payload{Type: PayloadOperator, ID: uuid.New()}, dropDay)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, res.Outcome)
	assert.Empty(t, sh.created)
	require.Len(t, sh.assigned, 1)
	assert.Equal(t, first.ID, sh.assigned[0].ShiftID)
}

func TestDropDuplicateIsConflict(t *testing.T) {
	sh := &fakeShifts{first: &models.Shift{ID: uuid.New()}, err: apperr.Conflict("operator is already assigned to this shift")}
	svc := NewService(fakeEvents{event: &models.Event{ID: uuid.New()}}, sh, &fakeKits{}, testDefaults(t), nil)
	_, err := svc.DropOnDay(context.Background(), uuid.New(), Payload{Type: PayloadOperator, ID: uuid.New()}, dropDay)
	assert.True(t, apperr.IsConflict(err))
}

func TestDropKitOnShiftUsesShiftEvent(t *testing.T) {
	shift := &models.Shift{ID: uuid.New(), EventID: uuid.New()}
	kits := &fakeKits{}
	svc := NewService(fakeEvents{}, &fakeShifts{shift: shift}, kits, testDefaults(t), nil)

	res, err := svc.DropOnShift(context.Background(), uuid.New(), Payload{Type: PayloadKit, ID: uuid.New()}, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeKitAssigned, res.Outcome)
	require.Len(t, res.GearAssignments, 1)
	assert.Equal(t, shift.EventID, res.GearAssignments[0].EventID)
	require.NotNil(t, kits.shiftID)
	assert.Equal(t, shift.ID, *kits.shiftID)
}

func TestDropOperatorOnShiftFillsPayDefaults(t *testing.T) {
	sh := &fakeShifts{}
	defaults := testDefaults(t)
	defaults.Pay.HourlyRate = decimal.NewFromInt(65)
	svc := NewService(fakeEvents{}, sh, &fakeKits{}, defaults, nil)
	shiftID := uuid.New()

	res, err := svc.DropOnShift(context.Background(), uuid.New(), Payload{Type: PayloadOperator, ID: uuid.New()}, shiftID)
	require.NoError(t, err)
	assert.True(t, res.DefaultsApplied)
	require.Len(t, sh.assigned, 1)
	assert.Equal(t, shiftID, sh.assigned[0].ShiftID)
	assert.True(t, decimal.NewFromInt(65).Equal(sh.assigned[0].HourlyRate.Decimal))
	assert.True(t, decimal.NewFromInt(8).Equal(sh.assigned[0].EstimatedHours.Decimal))
}

func TestDefaultsFromRejectsBadClock(t *testing.T) {
	_, err := DefaultsFrom(config.PlannerConfig{DefaultShiftStart: "9am", DefaultShiftEnd: "17:00"})
	assert.Error(t, err)
	_, err = DefaultsFrom(config.PlannerConfig{DefaultShiftStart: "17:00", DefaultShiftEnd: "09:00"})
	assert.Error(t, err)
}

type countingDropper struct{ days, shifts int }

func (d *countingDropper) DropOnDay(context.Context, uuid.UUID, Payload, time.Time) (*Result, error) {
	d.days++
	return &Result{Outcome: OutcomeNoEvent}, nil
}

func (d *countingDropper) DropOnShift(context.Context, uuid.UUID, Payload, uuid.UUID) (*Result, error) {
	d.shifts++
	return &Result{Outcome: OutcomeAssigned}, nil
}

func TestControllerStates(t *testing.T) {
	d := &countingDropper{}
	ctl := NewController(uuid.New(), d)
	assert.Equal(t, Idle, ctl.State())

	_, err := ctl.DropOnDay(context.Background(), dropDay)
	assert.ErrorIs(t, err, ErrNoPayload)
	assert.Zero(t, d.days)

	require.NoError(t, ctl.BeginDrag(Payload{Type: PayloadOperator, ID: uuid.New(), Name: "Ana"}))
	assert.Equal(t, Dragging, ctl.State())
	kit := Payload{Type: PayloadKit, ID: uuid.New(), Name: "A-cam kit"}
	require.NoError(t, ctl.BeginDrag(kit))
	got, ok := ctl.Payload()
	require.True(t, ok)
	assert.Equal(t, kit, got)

	ctl.Cancel()
	assert.Equal(t, Idle, ctl.State())
	_, err = ctl.DropOnShift(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoPayload)
	assert.Zero(t, d.shifts)

	require.NoError(t, ctl.BeginDrag(kit))
	_, err = ctl.DropOnShift(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, d.shifts)
	assert.Equal(t, Idle, ctl.State())
	_, ok = ctl.Payload()
	assert.False(t, ok)

	assert.True(t, apperr.IsValidation(ctl.BeginDrag(Payload{Type: "client", ID: uuid.New()})))
}

type blockingDropper struct {
	countingDropper
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDropper) DropOnDay(ctx context.Context, tenantID uuid.UUID, p Payload, day time.Time) (*Result, error) {
	close(d.entered)
	<-d.release
	return d.countingDropper.DropOnDay(ctx, tenantID, p, day)
}

func TestControllerRejectsDragDuringDrop(t *testing.T) {
	d := &blockingDropper{entered: make(chan struct{}), release: make(chan struct{})}
	ctl := NewController(uuid.New(), d)
	require.NoError(t, ctl.BeginDrag(Payload{Type: PayloadOperator, ID: uuid.New()}))

	done := make(chan error)
	go func() {
		_, err := ctl.DropOnDay(context.Background(), dropDay)
		done <- err
	}()
	<-d.entered
	assert.Equal(t, Dropped, ctl.State())
	assert.ErrorIs(t, ctl.BeginDrag(Payload{Type: PayloadKit, ID: uuid.New()}), ErrDropInProgress)
	close(d.release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, ctl.State())
}

func TestHandlerDrop(t *testing.T) {
	sh := &fakeShifts{}
	h := NewHandler(NewService(fakeEvents{}, sh, &fakeKits{}, testDefaults(t), nil), nil)
	r := testutil.Router(uuid.New())
	r.POST("/planner/drop", h.Drop)
	r.POST("/planner/move", h.Move)

	w := testutil.Do(r, http.MethodPost, "/planner/drop", map[string]interface{}{
		"payload": map[string]interface{}{"type": "operator", "id": uuid.NewString(), "name": "Ana"},
		"day":     "2026-06-13",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res Result
	require.NoError(t, testutil.Decode(w, &res))
	assert.Equal(t, OutcomeNoEvent, res.Outcome)
	assert.Empty(t, sh.assigned)

	w = testutil.Do(r, http.MethodPost, "/planner/drop", map[string]interface{}{
		"payload": map[string]interface{}{"type": "operator", "id": uuid.NewString()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPost, "/planner/drop", map[string]interface{}{
		"payload": map[string]interface{}{"type": "operator", "id": uuid.NewString()},
		"day":     "June 13",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assignment, target := uuid.New(), uuid.New()
	w = testutil.Do(r, http.MethodPost, "/planner/move", map[string]string{"assignment_id": assignment.String(), "to_shift_id": target.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []uuid.UUID{assignment, target}, sh.moved)
}
