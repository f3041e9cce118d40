package crm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// DefaultSearchType is the search screen a saved search belongs to when none is given.
const DefaultSearchType = "lead_finder"

const savedSearchColumns = `id, tenant_id, user_id, name, search_type, filters, result_count, last_used_at, created_at, updated_at`

func scanSavedSearch(row pgx.Row) (*models.SavedSearch, error) {
	var s models.SavedSearch
	var filters []byte
	if err := row.Scan(&s.ID, &s.TenantID, &s.UserID, &s.Name, &s.SearchType, &filters, &s.ResultCount,
		&s.LastUsedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Filters = filters
	return &s, nil
}

// ListSavedSearches returns the user's own searches, most recently used first. An empty
// searchType matches all.
func (r *Repository) ListSavedSearches(ctx context.Context, tenantID, userID uuid.UUID, searchType string) ([]models.SavedSearch, error) {
	rows, err := r.db.Query(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches
		WHERE tenant_id = $1 AND user_id = $2 AND ($3::text = '' OR search_type = $3)
		ORDER BY last_used_at DESC NULLS LAST, created_at DESC`, tenantID, userID, searchType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *Repository) GetSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID) (*models.SavedSearch, error) {
	s, err := scanSavedSearch(r.db.QueryRow(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3`, id, tenantID, userID))
	if err != nil {
		return nil, apperr.FromDB(err, "saved search")
	}
	return s, nil
}

func (r *Repository) CreateSavedSearch(ctx context.Context, s *models.SavedSearch) error {
	err := r.db.QueryRow(ctx, `INSERT INTO saved_searches (tenant_id, user_id, name, search_type, filters, result_count)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		s.TenantID, s.UserID, s.Name, s.SearchType, []byte(s.Filters), s.ResultCount).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return apperr.FromDB(err, "saved search")
}

func (r *Repository) UpdateSavedSearch(ctx context.Context, s *models.SavedSearch) error {
	err := r.db.QueryRow(ctx, `UPDATE saved_searches SET name = $4, filters = $5, result_count = $6, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3 RETURNING updated_at`,
		s.ID, s.TenantID, s.UserID, s.Name, []byte(s.Filters), s.ResultCount).Scan(&s.UpdatedAt)
	return apperr.FromDB(err, "saved search")
}

func (r *Repository) DeleteSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1 AND tenant_id = $2 AND user_id = $3`, id, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("saved search")
	}
	return nil
}

// TouchSavedSearch records a run of the search, optionally refreshing its result count.
func (r *Repository) TouchSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID, resultCount *int, at time.Time) (*models.SavedSearch, error) {
	s, err := scanSavedSearch(r.db.QueryRow(ctx, `UPDATE saved_searches
		SET last_used_at = $4, result_count = COALESCE($5, result_count), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3 RETURNING `+savedSearchColumns,
		id, tenantID, userID, at, resultCount))
	if err != nil {
		return nil, apperr.FromDB(err, "saved search")
	}
	return s, nil
}

// SavedSearchRequest is the body for saved search create and update. SearchType is
// only read on create.
type SavedSearchRequest struct {
	Name        *string         `json:"name" binding:"omitempty,max=100"`
	SearchType  string          `json:"search_type" binding:"max=50"`
	Filters     json.RawMessage `json:"filters"`
	ResultCount *int            `json:"result_count" binding:"omitempty,min=0"`
}

func (req *SavedSearchRequest) apply(s *models.SavedSearch) error {
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	if len(req.Filters) > 0 {
		var obj map[string]interface{}
		if err := json.Unmarshal(req.Filters, &obj); err != nil || obj == nil {
			return apperr.Validation("filters must be a JSON object")
		}
		s.Filters = req.Filters
	}
	if req.ResultCount != nil {
		s.ResultCount = *req.ResultCount
	}
	if s.Name == "" {
		return apperr.Validation("name is required")
	}
	return nil
}

// ListSavedSearches handles GET /saved-searches?search_type=.
func (h *Handler) ListSavedSearches(c *gin.Context) {
	list, err := h.repo.ListSavedSearches(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c), c.Query("search_type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateSavedSearch handles POST /saved-searches.
func (h *Handler) CreateSavedSearch(c *gin.Context) {
	var req SavedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	s := &models.SavedSearch{TenantID: middleware.TenantID(c), UserID: middleware.UserID(c),
		SearchType: strings.TrimSpace(req.SearchType), Filters: json.RawMessage(`{}`)}
	if s.SearchType == "" {
		s.SearchType = DefaultSearchType
	}
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateSavedSearch(c.Request.Context(), s); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, s)
}

// UpdateSavedSearch handles PATCH /saved-searches/:id.
func (h *Handler) UpdateSavedSearch(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req SavedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	s, err := h.repo.GetSavedSearch(ctx, middleware.TenantID(c), middleware.UserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.UpdateSavedSearch(ctx, s); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// DeleteSavedSearch handles DELETE /saved-searches/:id.
func (h *Handler) DeleteSavedSearch(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteSavedSearch(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TouchSavedSearch handles POST /saved-searches/:id/touch with an optional {"result_count": n}.
func (h *Handler) TouchSavedSearch(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ResultCount *int `json:"result_count" binding:"omitempty,min=0"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidBody(c, err)
			return
		}
	}
	s, err := h.repo.TouchSavedSearch(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c), id, req.ResultCount, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}
