package communications

import (
	"context"
	"strings"
	"text/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Store is the persistence used by the handler. *Repository implements it.
type Store interface {
	ListTouchpoints(ctx context.Context, tenantID uuid.UUID, f TouchpointFilter) ([]models.Touchpoint, error)
	GetTouchpoint(ctx context.Context, tenantID, id uuid.UUID) (*models.Touchpoint, error)
	CreateTouchpoint(ctx context.Context, t *models.Touchpoint) error
	UpdateTouchpoint(ctx context.Context, t *models.Touchpoint) error

	ListEmailConfigs(ctx context.Context, tenantID uuid.UUID, emailType *models.EmailType, active *bool) ([]models.EmailConfig, error)
	GetEmailConfig(ctx context.Context, tenantID, id uuid.UUID) (*models.EmailConfig, error)
	CreateEmailConfig(ctx context.Context, e *models.EmailConfig) error
	UpdateEmailConfig(ctx context.Context, e *models.EmailConfig) error
}

// Handler handles touchpoint and email config endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// ListTouchpoints handles GET /touchpoints?event_id=&client_id=&lead_id=&type=&status=.
func (h *Handler) ListTouchpoints(c *gin.Context) {
	var f TouchpointFilter
	var ok bool
	if f.EventID, ok = httpx.QueryUUID(c, "event_id"); !ok {
		return
	}
	if f.ClientID, ok = httpx.QueryUUID(c, "client_id"); !ok {
		return
	}
	if f.LeadID, ok = httpx.QueryUUID(c, "lead_id"); !ok {
		return
	}
	if v := c.Query("type"); v != "" {
		t := models.TouchpointType(v)
		if !t.Valid() {
			response.BadRequest(c, "invalid touchpoint type")
			return
		}
		f.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := models.TouchpointStatus(v)
		if !s.Valid() {
			response.BadRequest(c, "invalid touchpoint status")
			return
		}
		f.Status = &s
	}
	list, err := h.repo.ListTouchpoints(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) GetTouchpoint(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.repo.GetTouchpoint(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// CreateTouchpointRequest is the body for POST /touchpoints.
type CreateTouchpointRequest struct {
	EventID     *uuid.UUID              `json:"event_id"`
	ClientID    *uuid.UUID              `json:"client_id"`
	LeadID      *uuid.UUID              `json:"lead_id"`
	Type        models.TouchpointType   `json:"type" binding:"required"`
	Status      models.TouchpointStatus `json:"status"`
	CompletedAt *time.Time              `json:"completed_at"`
	Notes       string                  `json:"notes"`
}

// UpdateTouchpointRequest is the body for PATCH /touchpoints/:id.
type UpdateTouchpointRequest struct {
	Status      *models.TouchpointStatus `json:"status"`
	CompletedAt *time.Time               `json:"completed_at"`
	Notes       *string                  `json:"notes"`
}

// settle stamps completed_at when a touchpoint becomes COMPLETED without one and
// clears it when the touchpoint leaves COMPLETED.
func (h *Handler) settle(t *models.Touchpoint) {
	switch {
	case t.Status == models.TouchpointCompleted && t.CompletedAt == nil:
		now := h.now()
		t.CompletedAt = &now
	case t.Status != models.TouchpointCompleted:
		t.CompletedAt = nil
	}
}

// CreateTouchpoint handles POST /touchpoints.
func (h *Handler) CreateTouchpoint(c *gin.Context) {
	var req CreateTouchpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if !req.Type.Valid() {
		response.Error(c, apperr.Validation("invalid touchpoint type %q", req.Type))
		return
	}
	if req.Status == "" {
		req.Status = models.TouchpointPending
	}
	if !req.Status.Valid() {
		response.Error(c, apperr.Validation("invalid touchpoint status %q", req.Status))
		return
	}
	t := &models.Touchpoint{TenantID: middleware.TenantID(c), EventID: req.EventID, ClientID: req.ClientID,
		LeadID: req.LeadID, Type: req.Type, Status: req.Status, CompletedAt: req.CompletedAt,
		Notes: strings.TrimSpace(req.Notes)}
	h.settle(t)
	if err := h.repo.CreateTouchpoint(c.Request.Context(), t); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// UpdateTouchpoint handles PATCH /touchpoints/:id.
func (h *Handler) UpdateTouchpoint(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateTouchpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	t, err := h.repo.GetTouchpoint(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			response.Error(c, apperr.Validation("invalid touchpoint status %q", *req.Status))
			return
		}
		t.Status = *req.Status
	}
	if req.CompletedAt != nil {
		t.CompletedAt = req.CompletedAt
	}
	if req.Notes != nil {
		t.Notes = strings.TrimSpace(*req.Notes)
	}
	h.settle(t)
	if err := h.repo.UpdateTouchpoint(ctx, t); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// ListEmailConfigs handles GET /email-configs?email_type=&is_active=.
func (h *Handler) ListEmailConfigs(c *gin.Context) {
	var typ *models.EmailType
	if v := c.Query("email_type"); v != "" {
		t := models.EmailType(v)
		if !t.Valid() {
			response.BadRequest(c, "invalid email type")
			return
		}
		typ = &t
	}
	list, err := h.repo.ListEmailConfigs(c.Request.Context(), middleware.TenantID(c), typ, httpx.QueryBool(c, "is_active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) GetEmailConfig(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	e, err := h.repo.GetEmailConfig(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// EmailConfigRequest is the body for email config create and update. EmailType is
// only read on create.
type EmailConfigRequest struct {
	EmailType      models.EmailType `json:"email_type"`
	Subject        *string          `json:"subject" binding:"omitempty,max=255"`
	BodyTemplate   *string          `json:"body_template"`
	IsActive       *bool            `json:"is_active"`
	SendDelayHours *int             `json:"send_delay_hours" binding:"omitempty,min=0"`
}

func (req *EmailConfigRequest) apply(e *models.EmailConfig) error {
	if req.Subject != nil {
		e.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.BodyTemplate != nil {
		e.BodyTemplate = *req.BodyTemplate
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if req.SendDelayHours != nil {
		e.SendDelayHours = req.SendDelayHours
	}
	if e.Subject == "" {
		return apperr.Validation("subject is required")
	}
	if strings.TrimSpace(e.BodyTemplate) == "" {
		return apperr.Validation("body_template is required")
	}
	if _, err := template.New("subject").Option("missingkey=error").Parse(e.Subject); err != nil {
		return apperr.Validation("subject: %v", err)
	}
	if _, err := template.New("body").Option("missingkey=error").Parse(e.BodyTemplate); err != nil {
		return apperr.Validation("body_template: %v", err)
	}
	return nil
}

// CreateEmailConfig handles POST /email-configs.
func (h *Handler) CreateEmailConfig(c *gin.Context) {
	var req EmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if !req.EmailType.Valid() {
		response.Error(c, apperr.Validation("invalid email type %q", req.EmailType))
		return
	}
	e := &models.EmailConfig{TenantID: middleware.TenantID(c), EmailType: req.EmailType, IsActive: true}
	if err := req.apply(e); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateEmailConfig(c.Request.Context(), e); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("email config created", zap.String("tenant_id", e.TenantID.String()), zap.String("email_type", string(e.EmailType)))
	response.Created(c, e)
}

// UpdateEmailConfig handles PATCH /email-configs/:id.
func (h *Handler) UpdateEmailConfig(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req EmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	e, err := h.repo.GetEmailConfig(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.EmailType != "" && req.EmailType != e.EmailType {
		response.Error(c, apperr.Validation("email_type cannot be changed"))
		return
	}
	if err := req.apply(e); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.UpdateEmailConfig(ctx, e); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}
