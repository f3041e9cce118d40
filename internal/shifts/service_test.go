package shifts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
)

type memStore struct {
	events      map[uuid.UUID]uuid.UUID
	operators   map[uuid.UUID]uuid.UUID
	shifts      map[uuid.UUID]models.Shift
	assignments map[uuid.UUID]models.ShiftAssignment
	failCreate  error
}

func newMemStore() *memStore {
	return &memStore{
		events:      map[uuid.UUID]uuid.UUID{},
		operators:   map[uuid.UUID]uuid.UUID{},
		shifts:      map[uuid.UUID]models.Shift{},
		assignments: map[uuid.UUID]models.ShiftAssignment{},
	}
}

func (m *memStore) RequireEvent(_ context.Context, tenantID, id uuid.UUID) error {
	if m.events[id] != tenantID {
		return apperr.NotFound("event")
	}
	return nil
}

func (m *memStore) RequireOperator(_ context.Context, tenantID, id uuid.UUID) error {
	if m.operators[id] != tenantID {
		return apperr.NotFound("operator")
	}
	return nil
}

func (m *memStore) ListByEvent(_ context.Context, tenantID, eventID uuid.UUID) ([]models.Shift, error) {
	var out []models.Shift
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.EventID == eventID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetShift(_ context.Context, tenantID, id uuid.UUID) (*models.Shift, error) {
	s, ok := m.shifts[id]
	if !ok || s.TenantID != tenantID {
		return nil, apperr.NotFound("shift")
	}
	return &s, nil
}

func (m *memStore) FirstShift(_ context.Context, tenantID, eventID uuid.UUID) (*models.Shift, error) {
	var first *models.Shift
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.EventID == eventID && (first == nil || s.StartTime.Before(first.StartTime)) {
			cp := s
			first = &cp
		}
	}
	return first, nil
}

func (m *memStore) CreateShift(_ context.Context, s *models.Shift) error {
	s.ID = uuid.New()
	m.shifts[s.ID] = *s
	return nil
}

func (m *memStore) UpdateShift(_ context.Context, s *models.Shift) error {
	m.shifts[s.ID] = *s
	return nil
}

func (m *memStore) DeleteShift(_ context.Context, tenantID, id uuid.UUID) error {
	if s, ok := m.shifts[id]; !ok || s.TenantID != tenantID {
		return apperr.NotFound("shift")
	}
	delete(m.shifts, id)
	for aid, a := range m.assignments {
		if a.ShiftID == id {
			delete(m.assignments, aid)
		}
	}
	return nil
}

func (m *memStore) GetAssignment(_ context.Context, tenantID, id uuid.UUID) (*models.ShiftAssignment, error) {
	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperr.NotFound("shift assignment")
	}
	return &a, nil
}

func (m *memStore) AssignmentExists(_ context.Context, shiftID, operatorID uuid.UUID) (bool, error) {
	for _, a := range m.assignments {
		if a.ShiftID == shiftID && a.OperatorID == operatorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateAssignment(_ context.Context, a *models.ShiftAssignment) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	a.ID = uuid.New()
	m.assignments[a.ID] = *a
	return nil
}

func (m *memStore) UpdateAssignment(_ context.Context, a *models.ShiftAssignment) error {
	m.assignments[a.ID] = *a
	return nil
}

func (m *memStore) DeleteAssignment(_ context.Context, tenantID, id uuid.UUID) error {
	if a, ok := m.assignments[id]; !ok || a.TenantID != tenantID {
		return apperr.NotFound("shift assignment")
	}
	delete(m.assignments, id)
	return nil
}

func (m *memStore) BookedShifts(_ context.Context, tenantID, operatorID uuid.UUID, _ scheduling.Window) ([]scheduling.BookedShift, error) {
	var out []scheduling.BookedShift
	for _, a := range m.assignments {
		if a.TenantID != tenantID || a.OperatorID != operatorID {
			continue
		}
		s := m.shifts[a.ShiftID]
		out = append(out, scheduling.BookedShift{AssignmentID: a.ID, ShiftID: s.ID, ShiftName: s.Name, EventID: s.EventID,
			Window: scheduling.Window{Start: s.StartTime, End: s.EndTime}})
	}
	return out, nil
}

func (m *memStore) BlackoutDates(context.Context, uuid.UUID, uuid.UUID, scheduling.Window) ([]models.BlackoutDate, error) {
	return nil, nil
}

// RunInTx snapshots the maps and restores them when fn fails.
func (m *memStore) RunInTx(_ context.Context, fn func(Store) error) error {
	shifts := make(map[uuid.UUID]models.Shift, len(m.shifts))
	for k, v := range m.shifts {
		shifts[k] = v
	}
	assignments := make(map[uuid.UUID]models.ShiftAssignment, len(m.assignments))
	for k, v := range m.assignments {
		assignments[k] = v
	}
	if err := fn(m); err != nil {
		m.shifts, m.assignments = shifts, assignments
		return err
	}
	return nil
}

type fixture struct {
	store    *memStore
	svc      *Service
	tenantID uuid.UUID
	eventID  uuid.UUID
	opID     uuid.UUID
	day      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), tenantID: uuid.New(), eventID: uuid.New(), opID: uuid.New(),
		day: time.Date(2026, 4, 18, 0, 0, 0, 0, time.UTC)}
	f.store.events[f.eventID] = f.tenantID
	f.store.operators[f.opID] = f.tenantID
	f.svc = NewService(f.store, nil)
	return f
}

func (f *fixture) shift(t *testing.T, startHour, endHour int) *models.Shift {
	t.Helper()
	s, err := f.svc.CreateShift(context.Background(), f.tenantID, ShiftInput{EventID: f.eventID, Name: "Shift",
		StartTime: f.day.Add(time.Duration(startHour) * time.Hour), EndTime: f.day.Add(time.Duration(endHour) * time.Hour)})
	require.NoError(t, err)
	return s
}

func hourly(rate, hours int64) AssignInput {
	return AssignInput{PayType: models.PayTypeHourly,
		HourlyRate:     decimal.NewNullDecimal(decimal.NewFromInt(rate)),
		EstimatedHours: decimal.NewNullDecimal(decimal.NewFromInt(hours))}
}

func TestCreateShiftRejectsForeignEventAndBadWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateShift(ctx, uuid.New(), ShiftInput{EventID: f.eventID, Name: "x", StartTime: f.day, EndTime: f.day.Add(time.Hour)})
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.CreateShift(ctx, f.tenantID, ShiftInput{EventID: f.eventID, Name: "x", StartTime: f.day, EndTime: f.day})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, f.store.shifts)
}

func TestAssignComputesPayAndRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shift(t, 9, 17)

	in := hourly(50, 8)
	in.ShiftID, in.OperatorID = s.ID, f.opID
	res, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(400).Equal(res.Assignment.CalculatedPay))
	assert.False(t, res.Conflicts.HasConflict)

	_, err = f.svc.Assign(ctx, f.tenantID, in)
	assert.True(t, apperr.IsConflict(err))
	assert.Len(t, f.store.assignments, 1)
}

func TestAssignMissingPayFieldIsValidation(t *testing.T) {
	f := newFixture(t)
	s := f.shift(t, 9, 17)
	_, err := f.svc.Assign(context.Background(), f.tenantID, AssignInput{ShiftID: s.ID, OperatorID: f.opID, PayType: models.PayTypeFlat})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, f.store.assignments)
}

func TestAssignForeignReferencesAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shift(t, 9, 17)

	foreignOp := uuid.New()
	f.store.operators[foreignOp] = uuid.New()
	in := hourly(50, 8)
	in.ShiftID, in.OperatorID = s.ID, foreignOp
	_, err := f.svc.Assign(ctx, f.tenantID, in)
	assert.True(t, apperr.IsNotFound(err))

	in.OperatorID = f.opID
	_, err = f.svc.Assign(ctx, uuid.New(), in)
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, f.store.assignments)
}

func TestAssignReportsOverlapWithoutBlocking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	morning := f.shift(t, 9, 13)
	midday := f.shift(t, 12, 16)
	evening := f.shift(t, 13, 17)

	in := hourly(40, 4)
	in.OperatorID = f.opID
	in.ShiftID = morning.ID
	_, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)

	in.ShiftID = evening.ID
	res, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)
	assert.False(t, res.Conflicts.HasConflict, "touching shifts do not overlap")

	in.ShiftID = midday.ID
	res, err = f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)
	assert.True(t, res.Conflicts.HasConflict)
	assert.Len(t, res.Conflicts.Shifts, 2)
	assert.Len(t, f.store.assignments, 3)
}

func TestUpdateAssignmentRecomputesPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shift(t, 9, 17)
	in := hourly(50, 8)
	in.ShiftID, in.OperatorID = s.ID, f.opID
	res, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)

	actual := decimal.NewNullDecimal(decimal.RequireFromString("9.5"))
	a, err := f.svc.UpdateAssignment(ctx, f.tenantID, res.Assignment.ID, AssignmentPatch{ActualHours: &actual})
	require.NoError(t, err)
	assert.Equal(t, "475", a.CalculatedPay.String())

	flat := models.PayTypeFlat
	_, err = f.svc.UpdateAssignment(ctx, f.tenantID, res.Assignment.ID, AssignmentPatch{PayType: &flat})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "475", f.store.assignments[a.ID].CalculatedPay.String())
}

func TestCreateShiftAndAssignRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shiftIn := ShiftInput{EventID: f.eventID, Name: "Main Shift", StartTime: f.day.Add(9 * time.Hour), EndTime: f.day.Add(17 * time.Hour)}

	in := hourly(50, 8)
	in.OperatorID = uuid.New()
	_, err := f.svc.CreateShiftAndAssign(ctx, f.tenantID, shiftIn, in)
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, f.store.shifts, "shift must not survive a failed assignment")

	in.OperatorID = f.opID
	res, err := f.svc.CreateShiftAndAssign(ctx, f.tenantID, shiftIn, in)
	require.NoError(t, err)
	assert.Equal(t, res.Shift.ID, res.Assignment.ShiftID)
	assert.Len(t, f.store.shifts, 1)
}

func TestMoveCarriesPayAndRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.shift(t, 9, 12)
	to := f.shift(t, 13, 17)

	in := hourly(60, 3)
	in.ShiftID, in.OperatorID, in.Role = from.ID, f.opID, "Camera A"
	res, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)

	moved, err := f.svc.Move(ctx, f.tenantID, res.Assignment.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.Assignment.ShiftID)
	assert.Equal(t, "Camera A", moved.Assignment.Role)
	assert.True(t, decimal.NewFromInt(180).Equal(moved.Assignment.CalculatedPay))
	require.Len(t, f.store.assignments, 1)

	f.store.failCreate = errors.New("boom")
	_, err = f.svc.Move(ctx, f.tenantID, moved.Assignment.ID, from.ID)
	require.Error(t, err)
	_, stillThere := f.store.assignments[moved.Assignment.ID]
	assert.True(t, stillThere, "failed move must keep the original assignment")
}

func TestDeleteShiftRemovesAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.shift(t, 9, 17)
	in := hourly(50, 8)
	in.ShiftID, in.OperatorID = s.ID, f.opID
	_, err := f.svc.Assign(ctx, f.tenantID, in)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteShift(ctx, f.tenantID, s.ID))
	assert.Empty(t, f.store.assignments)
}
