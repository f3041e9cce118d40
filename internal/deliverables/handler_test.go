package deliverables

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

type fakeStore struct {
	items     map[uuid.UUID]models.Deliverable
	operators map[uuid.UUID]uuid.UUID
	updates   int
}

func (f *fakeStore) List(context.Context, uuid.UUID, Filter) ([]models.Deliverable, error) {
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Deliverable, error) {
	d, ok := f.items[id]
	if !ok || d.TenantID != tenantID {
		return nil, apperr.NotFound("deliverable")
	}
	return &d, nil
}

func (f *fakeStore) RequireRefs(_ context.Context, tenantID, _ uuid.UUID, editorID *uuid.UUID) error {
	if editorID != nil && f.operators[*editorID] != tenantID {
		return apperr.NotFound("operator")
	}
	return nil
}

func (f *fakeStore) Create(_ context.Context, d *models.Deliverable) error {
	d.ID = uuid.New()
	f.items[d.ID] = *d
	return nil
}

func (f *fakeStore) Update(_ context.Context, d *models.Deliverable) error {
	f.updates++
	f.items[d.ID] = *d
	return nil
}

func TestTransition(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		from, to models.DeliverableStatus
		ok       bool
	}{
		{models.DeliverablePending, models.DeliverableInProgress, true},
		{models.DeliverablePending, models.DeliverableCancelled, true},
		{models.DeliverablePending, models.DeliverableCompleted, false},
		{models.DeliverableInProgress, models.DeliverableCompleted, true},
		{models.DeliverableInProgress, models.DeliverablePending, true},
		{models.DeliverableCompleted, models.DeliverableInProgress, false},
		{models.DeliverableCancelled, models.DeliverablePending, false},
	}
	for _, tc := range cases {
		d := &models.Deliverable{Status: tc.from}
		err := Transition(d, tc.to, now)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, d.Status)
		} else {
			assert.True(t, apperr.IsBadRequest(err), "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.from, d.Status)
		}
	}

	d := &models.Deliverable{Status: models.DeliverableInProgress, CompletionPercentage: 40}
	require.NoError(t, Transition(d, models.DeliverableCompleted, now))
	assert.Equal(t, 100, d.CompletionPercentage)
	assert.Equal(t, now, *d.CompletedAt)
}

func setup(t *testing.T) (*fakeStore, *gin.Engine, uuid.UUID, uuid.UUID) {
	t.Helper()
	tenantID := uuid.New()
	store := &fakeStore{items: map[uuid.UUID]models.Deliverable{}, operators: map[uuid.UUID]uuid.UUID{}}
	d := &models.Deliverable{TenantID: tenantID, EventID: uuid.New(), Title: "Highlight reel",
		Priority: models.PriorityNormal, Status: models.DeliverablePending}
	require.NoError(t, store.Create(context.Background(), d))

	h := NewHandler(store, nil)
	r := testutil.Router(tenantID)
	r.PATCH("/deliverables/:id", h.Update)
	r.PATCH("/deliverables/:id/status", h.UpdateStatus)
	r.PUT("/deliverables/:id/editor", h.AssignEditor)
	r.POST("/deliverables/:id/complete", h.MarkComplete)
	return store, r, tenantID, d.ID
}

func TestAssignForeignEditorIsNotFound(t *testing.T) {
	store, r, tenantID, id := setup(t)
	foreign := uuid.New()
	store.operators[foreign] = uuid.New()

	w := testutil.Do(r, http.MethodPut, "/deliverables/"+id.String()+"/editor", EditorRequest{EditorID: foreign})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, store.updates)

	own := uuid.New()
	store.operators[own] = tenantID
	w = testutil.Do(r, http.MethodPut, "/deliverables/"+id.String()+"/editor", EditorRequest{EditorID: own})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, own, *store.items[id].AssignedEditorID)
}

func TestCompletionPercentageBounds(t *testing.T) {
	store, r, _, id := setup(t)
	w := testutil.Do(r, http.MethodPatch, "/deliverables/"+id.String(), gin.H{"completion_percentage": 101})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.updates)

	w = testutil.Do(r, http.MethodPatch, "/deliverables/"+id.String(), gin.H{"completion_percentage": 60})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, store.items[id].CompletionPercentage)
}

func TestStatusFlow(t *testing.T) {
	store, r, _, id := setup(t)
	w := testutil.Do(r, http.MethodPatch, "/deliverables/"+id.String()+"/status", StatusRequest{Status: models.DeliverableCompleted})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPost, "/deliverables/"+id.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DeliverableCompleted, store.items[id].Status)
	assert.Equal(t, 100, store.items[id].CompletionPercentage)

	w = testutil.Do(r, http.MethodPost, "/deliverables/"+id.String()+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
