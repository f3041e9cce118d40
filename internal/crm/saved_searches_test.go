package crm

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

type searchStore struct {
	Store
	searches map[uuid.UUID]models.SavedSearch
}

func (f *searchStore) owned(tenantID, userID, id uuid.UUID) (models.SavedSearch, error) {
	s, ok := f.searches[id]
	if !ok || s.TenantID != tenantID || s.UserID != userID {
		return models.SavedSearch{}, apperr.NotFound("saved search")
	}
	return s, nil
}

func (f *searchStore) ListSavedSearches(_ context.Context, tenantID, userID uuid.UUID, searchType string) ([]models.SavedSearch, error) {
	list := []models.SavedSearch{}
	for _, s := range f.searches {
		if s.TenantID == tenantID && s.UserID == userID && (searchType == "" || s.SearchType == searchType) {
			list = append(list, s)
		}
	}
	return list, nil
}

func (f *searchStore) GetSavedSearch(_ context.Context, tenantID, userID, id uuid.UUID) (*models.SavedSearch, error) {
	s, err := f.owned(tenantID, userID, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *searchStore) CreateSavedSearch(_ context.Context, s *models.SavedSearch) error {
	s.ID = uuid.New()
	f.searches[s.ID] = *s
	return nil
}

func (f *searchStore) UpdateSavedSearch(_ context.Context, s *models.SavedSearch) error {
	f.searches[s.ID] = *s
	return nil
}

func (f *searchStore) DeleteSavedSearch(_ context.Context, tenantID, userID, id uuid.UUID) error {
	if _, err := f.owned(tenantID, userID, id); err != nil {
		return err
	}
	delete(f.searches, id)
	return nil
}

func (f *searchStore) TouchSavedSearch(_ context.Context, tenantID, userID, id uuid.UUID, resultCount *int, at time.Time) (*models.SavedSearch, error) {
	s, err := f.owned(tenantID, userID, id)
	if err != nil {
		return nil, err
	}
	s.LastUsedAt = &at
	if resultCount != nil {
		s.ResultCount = *resultCount
	}
	f.searches[id] = s
	return &s, nil
}

func TestSavedSearchesArePerUser(t *testing.T) {
	tenantID, owner, colleague := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	h := NewHandler(&searchStore{searches: map[uuid.UUID]models.SavedSearch{}}, nil)
	h.now = func() time.Time { return now }
	routes := func(r *gin.Engine) *gin.Engine {
		r.GET("/saved-searches", h.ListSavedSearches)
		r.POST("/saved-searches", h.CreateSavedSearch)
		r.PATCH("/saved-searches/:id", h.UpdateSavedSearch)
		r.DELETE("/saved-searches/:id", h.DeleteSavedSearch)
		r.POST("/saved-searches/:id/touch", h.TouchSavedSearch)
		return r
	}
	mine := routes(testutil.RouterAs(tenantID, owner))
	theirs := routes(testutil.RouterAs(tenantID, colleague))

	w := testutil.Do(mine, http.MethodPost, "/saved-searches", gin.H{"name": " Dance studios in Ottawa ", "filters": gin.H{"city": "Ottawa", "industry": "dance"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s models.SavedSearch
	require.NoError(t, testutil.Decode(w, &s))
	assert.Equal(t, "Dance studios in Ottawa", s.Name)
	assert.Equal(t, DefaultSearchType, s.SearchType)
	assert.JSONEq(t, `{"city":"Ottawa","industry":"dance"}`, string(s.Filters))

	w = testutil.Do(mine, http.MethodPost, "/saved-searches", gin.H{"name": "bad", "filters": []string{"city"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var list []models.SavedSearch
	w = testutil.Do(theirs, http.MethodGet, "/saved-searches", nil)
	require.NoError(t, testutil.Decode(w, &list))
	assert.Empty(t, list)
	w = testutil.Do(theirs, http.MethodPatch, "/saved-searches/"+s.ID.String(), gin.H{"name": "mine now"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = testutil.Do(theirs, http.MethodDelete, "/saved-searches/"+s.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.Do(mine, http.MethodPost, "/saved-searches/"+s.ID.String()+"/touch", gin.H{"result_count": 17})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, testutil.Decode(w, &s))
	assert.Equal(t, 17, s.ResultCount)
	require.NotNil(t, s.LastUsedAt)
	assert.True(t, now.Equal(*s.LastUsedAt))

	w = testutil.Do(mine, http.MethodPost, "/saved-searches/"+s.ID.String()+"/touch", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, testutil.Decode(w, &s))
	assert.Equal(t, 17, s.ResultCount)

	w = testutil.Do(mine, http.MethodDelete, "/saved-searches/"+s.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = testutil.Do(mine, http.MethodGet, "/saved-searches", nil)
	require.NoError(t, testutil.Decode(w, &list))
	assert.Empty(t, list)
}
