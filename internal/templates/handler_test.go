package templates

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
	"github.com/commandcentered/backend/internal/testutil"
)

const tenantSlug = "northern-lights"

type fakeStore struct {
	tenantID  uuid.UUID
	templates map[uuid.UUID]Template
	proposals map[uuid.UUID]int
}

func newFakeStore(tenantID uuid.UUID) *fakeStore {
	return &fakeStore{tenantID: tenantID, templates: map[uuid.UUID]Template{}, proposals: map[uuid.UUID]int{}}
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, published *bool) ([]Template, error) {
	list := []Template{}
	for _, t := range f.templates {
		if t.TenantID == tenantID && (published == nil || *published == t.IsPublished) {
			list = append(list, t)
		}
	}
	return list, nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Template, error) {
	t, ok := f.templates[id]
	if !ok || t.TenantID != tenantID {
		return nil, apperr.NotFound("proposal template")
	}
	return &t, nil
}

func (f *fakeStore) GetPublished(_ context.Context, ts, slug string) (*Template, error) {
	for _, t := range f.templates {
		if ts == tenantSlug && t.TenantID == f.tenantID && t.Slug == slug && t.IsPublished {
			return &t, nil
		}
	}
	return nil, apperr.NotFound("proposal template")
}

func (f *fakeStore) SlugExists(_ context.Context, tenantID uuid.UUID, slug string) (bool, error) {
	for _, t := range f.templates {
		if t.TenantID == tenantID && t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Create(ctx context.Context, t *Template) error {
	if exists, _ := f.SlugExists(ctx, t.TenantID, t.Slug); exists {
		return apperr.Conflict("proposal template already exists")
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeStore) Update(_ context.Context, t *Template) error {
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeStore) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	delete(f.templates, id)
	return nil
}

func (f *fakeStore) TenantSlug(_ context.Context, tenantID uuid.UUID) (string, error) {
	if tenantID != f.tenantID {
		return "", apperr.NotFound("tenant")
	}
	return tenantSlug, nil
}

func (f *fakeStore) CountProposals(_ context.Context, _, id uuid.UUID) (int, error) {
	return f.proposals[id], nil
}

func newRouter(t *testing.T) (*gin.Engine, *fakeStore, uuid.UUID) {
	t.Helper()
	tenantID := uuid.New()
	store := newFakeStore(tenantID)
	h := NewHandler(store, nil)
	r := testutil.Router(tenantID)
	r.GET("/templates", h.List)
	r.POST("/templates", h.Create)
	r.PUT("/templates/:id", h.Update)
	r.DELETE("/templates/:id", h.Delete)
	r.POST("/templates/:id/publish", h.Publish)
	r.POST("/templates/:id/unpublish", h.Unpublish)
	r.POST("/templates/:id/duplicate", h.Duplicate)
	r.POST("/templates/:id/elements", h.AddElement)
	r.DELETE("/templates/:id/elements/:elementId", h.RemoveElement)
	r.PATCH("/templates/:id/elements/:elementId/settings", h.UpdateSettings)
	r.POST("/templates/:id/elements/:elementId/lists/:key", h.EditList)
	r.GET("/public/:tenant/templates/:slug", h.GetPublished)
	r.POST("/public/:tenant/templates/:slug/quote", h.Quote)
	return r, store, tenantID
}

func createTemplate(t *testing.T, r http.Handler, slug string) Template {
	t.Helper()
	w := testutil.Do(r, http.MethodPost, "/templates", map[string]interface{}{"name": "Recital", "slug": slug})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tpl Template
	require.NoError(t, testutil.Decode(w, &tpl))
	return tpl
}

func TestCreateValidatesSlug(t *testing.T) {
	r, _, _ := newRouter(t)
	w := testutil.Do(r, http.MethodPost, "/templates", map[string]interface{}{"name": "Recital", "slug": "Bad Slug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	createTemplate(t, r, "recital")
	w = testutil.Do(r, http.MethodPost, "/templates", map[string]interface{}{"name": "Other", "slug": "recital"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPublishRequiresElements(t *testing.T) {
	r, _, _ := newRouter(t)
	tpl := createTemplate(t, r, "recital")

	w := testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = testutil.Do(r, http.MethodGet, "/public/"+tenantSlug+"/templates/recital", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/elements", map[string]interface{}{"type": "hero"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/publish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var published Template
	require.NoError(t, testutil.Decode(w, &published))
	assert.True(t, published.IsPublished)
	assert.Equal(t, "/public/"+tenantSlug+"/templates/recital", published.PublishedURL)
	assert.NotNil(t, published.PublishedAt)

	w = testutil.Do(r, http.MethodGet, published.PublishedURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Template
	require.NoError(t, testutil.Decode(w, &got))
	require.Len(t, got.Elements, 1)
	assert.Equal(t, TypeHero, got.Elements[0].Type)

	w = testutil.Do(r, http.MethodDelete, "/templates/"+tpl.ID.String()+"/elements/"+got.Elements[0].ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/unpublish", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(r, http.MethodGet, "/public/"+tenantSlug+"/templates/recital", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsEndpointsPersist(t *testing.T) {
	r, store, _ := newRouter(t)
	tpl := createTemplate(t, r, "recital")
	w := testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/elements", map[string]interface{}{"type": "service_toggles"})
	require.Equal(t, http.StatusOK, w.Code)
	elID := store.templates[tpl.ID].Elements[0].ID

	w = testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/elements/"+elID+"/lists/services",
		map[string]interface{}{"op": "append", "item": map[string]interface{}{"id": "drone", "name": "Drone", "base_price": "300"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = testutil.Do(r, http.MethodPatch, "/templates/"+tpl.ID.String()+"/elements/"+elID+"/settings",
		map[string]interface{}{"label": "Add-ons"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cfg := store.templates[tpl.ID].Elements[0].Config.(*ServiceTogglesConfig)
	assert.Equal(t, "Add-ons", cfg.Label)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "drone", cfg.Services[0].ID)

	w = testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/elements/"+elID+"/lists/services",
		map[string]interface{}{"op": "remove", "index": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateNumbersSlugs(t *testing.T) {
	r, _, _ := newRouter(t)
	tpl := createTemplate(t, r, "recital")
	var slugs []string
	for i := 0; i < 2; i++ {
		w := testutil.Do(r, http.MethodPost, "/templates/"+tpl.ID.String()+"/duplicate", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		var cp Template
		require.NoError(t, testutil.Decode(w, &cp))
		assert.False(t, cp.IsPublished)
		slugs = append(slugs, cp.Slug)
	}
	assert.Equal(t, []string{"recital-copy", "recital-copy-2"}, slugs)
}

func TestDeleteBlockedByProposals(t *testing.T) {
	r, store, _ := newRouter(t)
	tpl := createTemplate(t, r, "recital")
	store.proposals[tpl.ID] = 2

	w := testutil.Do(r, http.MethodDelete, "/templates/"+tpl.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, store.templates, tpl.ID)

	store.proposals[tpl.ID] = 0
	w = testutil.Do(r, http.MethodDelete, "/templates/"+tpl.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, store.templates, tpl.ID)
}

func TestQuoteUsesPublishedTemplate(t *testing.T) {
	r, store, tenantID := newRouter(t)
	store.templates[uuid.New()] = Template{TenantID: tenantID, Slug: "recital", IsPublished: true, Elements: pricedTemplate()}

	w := testutil.Do(r, http.MethodPost, "/public/"+tenantSlug+"/templates/recital/quote",
		map[string]interface{}{"numbers": map[string]string{"dancers": "3"}, "services": []string{"bts"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q Quote
	require.NoError(t, testutil.Decode(w, &q))
	assert.True(t, q.Subtotal.Equal(dec("249")), q.Subtotal.String())
	assert.True(t, q.Tax.Equal(dec("32.37")), q.Tax.String())
}
