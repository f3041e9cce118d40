package servicetemplates

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

type fakeStore struct {
	items map[uuid.UUID]models.ServiceTemplate
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, includeInactive bool) ([]models.ServiceTemplate, error) {
	list := []models.ServiceTemplate{}
	for _, s := range f.items {
		if s.TenantID == tenantID && (includeInactive || s.IsActive) {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (f *fakeStore) Get(_ context.Context, tenantID, id uuid.UUID) (*models.ServiceTemplate, error) {
	s, ok := f.items[id]
	if !ok || s.TenantID != tenantID {
		return nil, apperr.NotFound("service template")
	}
	return &s, nil
}

func (f *fakeStore) Create(_ context.Context, s *models.ServiceTemplate) error {
	s.ID = uuid.New()
	f.items[s.ID] = *s
	return nil
}

func (f *fakeStore) Update(_ context.Context, s *models.ServiceTemplate) error {
	f.items[s.ID] = *s
	return nil
}

func (f *fakeStore) SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*models.ServiceTemplate, error) {
	s, err := f.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.IsActive = active
	f.items[id] = *s
	return s, nil
}

func TestServiceTemplateLifecycle(t *testing.T) {
	tenantID := uuid.New()
	h := NewHandler(&fakeStore{items: map[uuid.UUID]models.ServiceTemplate{}}, nil)
	r := testutil.Router(tenantID)
	r.GET("/service-templates", h.List)
	r.POST("/service-templates", h.Create)
	r.PATCH("/service-templates/:id", h.Update)
	r.DELETE("/service-templates/:id", h.Delete)
	r.POST("/service-templates/:id/restore", h.Restore)

	w := testutil.Do(r, http.MethodPost, "/service-templates", gin.H{
		"name": "Recital package", "default_duration_hours": 4, "default_price": "1200.00",
		"deliverable_types": []string{"full show", " ", "highlight reel"}, "event_type": "RECITAL",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pkg models.ServiceTemplate
	require.NoError(t, testutil.Decode(w, &pkg))
	assert.True(t, pkg.IsActive)
	assert.Equal(t, 1, pkg.DefaultOperatorCount)
	assert.True(t, decimal.RequireFromString("1200").Equal(pkg.DefaultPrice))
	assert.Equal(t, []string{"full show", "highlight reel"}, pkg.DeliverableTypes)

	w = testutil.Do(r, http.MethodPost, "/service-templates", gin.H{"name": "Free", "default_duration_hours": 1, "default_price": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = testutil.Do(r, http.MethodPost, "/service-templates", gin.H{"name": "Odd", "default_duration_hours": 1, "default_price": "10", "event_type": "RODEO"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPatch, "/service-templates/"+pkg.ID.String(), gin.H{"default_operator_count": 3, "event_type": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.ServiceTemplate
	require.NoError(t, testutil.Decode(w, &updated))
	assert.Equal(t, 3, updated.DefaultOperatorCount)
	assert.Nil(t, updated.EventType)

	w = testutil.Do(r, http.MethodDelete, "/service-templates/"+pkg.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.ServiceTemplate
	w = testutil.Do(r, http.MethodGet, "/service-templates", nil)
	require.NoError(t, testutil.Decode(w, &list))
	assert.Empty(t, list)
	w = testutil.Do(r, http.MethodGet, "/service-templates?include_inactive=true", nil)
	require.NoError(t, testutil.Decode(w, &list))
	assert.Len(t, list, 1)

	w = testutil.Do(r, http.MethodPost, "/service-templates/"+pkg.ID.String()+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(r, http.MethodGet, "/service-templates", nil)
	require.NoError(t, testutil.Decode(w, &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)

	other := testutil.Router(uuid.New())
	other.DELETE("/service-templates/:id", h.Delete)
	w = testutil.Do(other, http.MethodDelete, "/service-templates/"+pkg.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
