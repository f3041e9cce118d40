package events

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

type fakeStore struct {
	events  map[uuid.UUID]*models.Event
	clients map[uuid.UUID]uuid.UUID // client -> tenant
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[uuid.UUID]*models.Event{}, clients: map[uuid.UUID]uuid.UUID{}}
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, _ Filter) ([]models.Event, error) {
	out := []models.Event{}
	for _, e := range f.events {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok || e.TenantID != tenantID {
		return nil, apperr.NotFound("event")
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) Create(_ context.Context, e *models.Event) error {
	e.ID = uuid.New()
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, e *models.Event) error {
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.EventStatus) (*models.Event, error) {
	e, err := f.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	e.Status = status
	f.events[id] = e
	return e, nil
}

func (f *fakeStore) MonthView(context.Context, uuid.UUID, int, time.Month) ([]models.CalendarEvent, error) {
	return nil, nil
}

func (f *fakeStore) RequireClient(_ context.Context, tenantID uuid.UUID, clientID *uuid.UUID) error {
	if clientID == nil {
		return nil
	}
	if owner, ok := f.clients[*clientID]; !ok || owner != tenantID {
		return apperr.NotFound("client")
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestValidate(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	base := func() *models.Event {
		return &models.Event{Name: "Spring Recital", EventType: models.EventTypeRecital, Status: models.EventStatusBooked,
			LoadInTime: start, LoadOutTime: start.Add(8 * time.Hour)}
	}
	require.NoError(t, Validate(base()))

	e := base()
	e.LoadOutTime = e.LoadInTime
	assert.True(t, apperr.IsValidation(Validate(e)))

	e = base()
	e.Name = ""
	assert.True(t, apperr.IsValidation(Validate(e)))

	e = base()
	e.Status = "DONE"
	assert.True(t, apperr.IsValidation(Validate(e)))

	e = base()
	e.ActualRevenue = decimal.NewNullDecimal(decimal.NewFromInt(-1))
	assert.True(t, apperr.IsValidation(Validate(e)))
}

func TestCreateWithForeignClientIsNotFound(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	foreignClient := uuid.New()
	store.clients[foreignClient] = uuid.New()

	r := testutil.Router(tenantID)
	h := NewHandler(store, nil, nil)
	r.POST("/events", h.Create)

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	w := testutil.Do(r, http.MethodPost, "/events", EventRequest{
		Name: ptr("Gala"), LoadInTime: ptr(start), LoadOutTime: ptr(start.Add(4 * time.Hour)), ClientID: &foreignClient,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.events)

	ownClient := uuid.New()
	store.clients[ownClient] = tenantID
	w = testutil.Do(r, http.MethodPost, "/events", EventRequest{
		Name: ptr("Gala"), LoadInTime: ptr(start), LoadOutTime: ptr(start.Add(4 * time.Hour)), ClientID: &ownClient,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Event
	require.NoError(t, testutil.Decode(w, &created))
	assert.Equal(t, models.EventStatusTentative, created.Status)
	assert.Equal(t, tenantID, created.TenantID)
}

func TestUpdateAndDeleteAreTenantScoped(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	other := &models.Event{TenantID: uuid.New(), Name: "Theirs", EventType: models.EventTypeOther,
		Status: models.EventStatusBooked, LoadInTime: start, LoadOutTime: start.Add(time.Hour)}
	require.NoError(t, store.Create(context.Background(), other))

	r := testutil.Router(uuid.New())
	h := NewHandler(store, nil, nil)
	r.PATCH("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)

	w := testutil.Do(r, http.MethodPatch, "/events/"+other.ID.String(), EventRequest{Name: ptr("Mine now")})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = testutil.Do(r, http.MethodDelete, "/events/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, "Theirs", store.events[other.ID].Name)
	assert.Equal(t, models.EventStatusBooked, store.events[other.ID].Status)
}

func TestDeleteCancels(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	e := &models.Event{TenantID: tenantID, Name: "Mine", EventType: models.EventTypeOther,
		Status: models.EventStatusBooked, LoadInTime: start, LoadOutTime: start.Add(time.Hour)}
	require.NoError(t, store.Create(context.Background(), e))

	r := testutil.Router(tenantID)
	r.DELETE("/events/:id", NewHandler(store, nil, nil).Delete)
	w := testutil.Do(r, http.MethodDelete, "/events/"+e.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EventStatusCancelled, store.events[e.ID].Status)
}
