package servicetemplates

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Store is the persistence used by the handler. *Repository implements it.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]models.ServiceTemplate, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.ServiceTemplate, error)
	Create(ctx context.Context, s *models.ServiceTemplate) error
	Update(ctx context.Context, s *models.ServiceTemplate) error
	SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*models.ServiceTemplate, error)
}

type Handler struct {
	repo   Store
	logger *zap.Logger
}

func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Request is the body for create and update. Omitted fields keep their value.
type Request struct {
	Name                 *string           `json:"name" binding:"omitempty,max=255"`
	Description          *string           `json:"description"`
	DefaultDurationHours *int              `json:"default_duration_hours"`
	DefaultPrice         *decimal.Decimal  `json:"default_price"`
	DefaultOperatorCount *int              `json:"default_operator_count"`
	DeliverableTypes     []string          `json:"deliverable_types"`
	EventType            *models.EventType `json:"event_type"`
	IsActive             *bool             `json:"is_active"`
}

func (req *Request) apply(s *models.ServiceTemplate) error {
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		s.Description = strings.TrimSpace(*req.Description)
	}
	if req.DefaultDurationHours != nil {
		s.DefaultDurationHours = *req.DefaultDurationHours
	}
	if req.DefaultPrice != nil {
		s.DefaultPrice = *req.DefaultPrice
	}
	if req.DefaultOperatorCount != nil {
		s.DefaultOperatorCount = *req.DefaultOperatorCount
	}
	if req.DeliverableTypes != nil {
		types := make([]string, 0, len(req.DeliverableTypes))
		for _, d := range req.DeliverableTypes {
			if d = strings.TrimSpace(d); d != "" {
				types = append(types, d)
			}
		}
		s.DeliverableTypes = types
	}
	if req.EventType != nil {
		if *req.EventType == "" {
			s.EventType = nil
		} else {
			t := *req.EventType
			s.EventType = &t
		}
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}

	switch {
	case s.Name == "":
		return apperr.Validation("name is required")
	case s.DefaultDurationHours <= 0:
		return apperr.Validation("default_duration_hours must be positive")
	case !s.DefaultPrice.IsPositive():
		return apperr.Validation("default_price must be positive")
	case s.DefaultOperatorCount <= 0:
		return apperr.Validation("default_operator_count must be positive")
	case s.EventType != nil && !s.EventType.Valid():
		return apperr.Validation("invalid event type %q", *s.EventType)
	}
	return nil
}

// List handles GET /service-templates?include_inactive=.
func (h *Handler) List(c *gin.Context) {
	include := false
	if v := httpx.QueryBool(c, "include_inactive"); v != nil {
		include = *v
	}
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), include)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	s, err := h.repo.Get(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	s := &models.ServiceTemplate{TenantID: middleware.TenantID(c), DefaultOperatorCount: 1,
		DeliverableTypes: []string{}, IsActive: true}
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, s)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	s, err := h.repo.Get(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(ctx, s); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /service-templates/:id. Templates are deactivated, not removed.
func (h *Handler) Delete(c *gin.Context) {
	h.setActive(c, false)
}

// Restore handles POST /service-templates/:id/restore.
func (h *Handler) Restore(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	s, err := h.repo.SetActive(c.Request.Context(), middleware.TenantID(c), id, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("service template state changed", zap.String("id", id.String()), zap.Bool("active", active))
	response.OK(c, s)
}
