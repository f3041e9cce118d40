package campaigns

import (
	"context"
	"strings"
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

// Store is the campaign persistence used by the handler. *Repository implements it.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, status *models.CampaignStatus) ([]models.Campaign, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Campaign, error)
	Create(ctx context.Context, c *models.Campaign) error
	Update(ctx context.Context, c *models.Campaign) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	CreateStep(ctx context.Context, tenantID uuid.UUID, s *models.CampaignStep) error
	UpdateStep(ctx context.Context, tenantID uuid.UUID, s *models.CampaignStep) error
	DeleteStep(ctx context.Context, tenantID, campaignID, stepID uuid.UUID) error

	ListLeads(ctx context.Context, tenantID, campaignID uuid.UUID) ([]models.CampaignLead, error)
	AddLeads(ctx context.Context, tenantID, campaignID uuid.UUID, leadIDs []uuid.UUID) (*models.Campaign, error)
	RemoveLeads(ctx context.Context, tenantID, campaignID uuid.UUID, leadIDs []uuid.UUID) (*models.Campaign, error)
	Track(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, ev EmailEvent, now time.Time) (*models.CampaignLead, error)
}

// Handler handles campaign endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a campaign handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// StepRequest is the body for one step.
type StepRequest struct {
	StepNumber   *int    `json:"step_number"`
	StepName     *string `json:"step_name"`
	Subject      *string `json:"subject"`
	BodyTemplate *string `json:"body_template"`
	DelayDays    *int    `json:"delay_days"`
}

func (req StepRequest) apply(s *models.CampaignStep) error {
	if req.StepNumber != nil {
		s.StepNumber = *req.StepNumber
	}
	if req.StepName != nil {
		s.StepName = strings.TrimSpace(*req.StepName)
	}
	if req.Subject != nil {
		s.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.BodyTemplate != nil {
		s.BodyTemplate = *req.BodyTemplate
	}
	if req.DelayDays != nil {
		s.DelayDays = *req.DelayDays
	}
	return ValidateStep(*s)
}

// CampaignRequest is the body for campaign create and update. Steps are read on create only.
type CampaignRequest struct {
	Name  *string       `json:"name"`
	Steps []StepRequest `json:"steps"`
}

// List handles GET /campaigns?status=.
func (h *Handler) List(c *gin.Context) {
	var status *models.CampaignStatus
	if v := c.Query("status"); v != "" {
		st := models.CampaignStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		status = &st
	}
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /campaigns/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	cp, err := h.repo.Get(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cp)
}

// Create handles POST /campaigns.
func (h *Handler) Create(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	cp := models.Campaign{TenantID: middleware.TenantID(c), Status: models.CampaignDraft, Steps: []models.CampaignStep{}}
	if req.Name != nil {
		cp.Name = strings.TrimSpace(*req.Name)
	}
	if cp.Name == "" {
		response.Error(c, apperr.Validation("name is required"))
		return
	}
	for _, sr := range req.Steps {
		var s models.CampaignStep
		if err := sr.apply(&s); err != nil {
			response.Error(c, err)
			return
		}
		cp.Steps = append(cp.Steps, s)
	}
	if err := ValidateSteps(cp.Steps); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), &cp); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cp)
}

// Update handles PUT /campaigns/:id.
func (h *Handler) Update(c *gin.Context) {
	h.mutate(c, func(cp *models.Campaign) error {
		var req CampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: %v", err)
		}
		if req.Name != nil {
			cp.Name = strings.TrimSpace(*req.Name)
		}
		if cp.Name == "" {
			return apperr.Validation("name is required")
		}
		return nil
	})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /campaigns/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	h.mutate(c, func(cp *models.Campaign) error {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: %v", err)
		}
		return SetStatus(cp, models.CampaignStatus(req.Status), len(cp.Steps))
	})
}

func (h *Handler) mutate(c *gin.Context, change func(*models.Campaign) error) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cp, err := h.repo.Get(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := change(cp); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(ctx, cp); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cp)
}

// Delete handles DELETE /campaigns/:id. Only drafts are removed.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	cp, err := h.repo.Get(ctx, tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if cp.Status != models.CampaignDraft {
		response.Error(c, apperr.BadRequest("only draft campaigns can be deleted; complete it instead"))
		return
	}
	if err := h.repo.Delete(ctx, tenantID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddStep handles POST /campaigns/:id/steps.
func (h *Handler) AddStep(c *gin.Context) {
	var req StepRequest
	h.withCampaign(c, &req, func(cp *models.Campaign) (interface{}, error) {
		s := models.CampaignStep{CampaignID: cp.ID}
		if err := req.apply(&s); err != nil {
			return nil, err
		}
		if err := ValidateSteps(append(cp.Steps, s)); err != nil {
			return nil, err
		}
		if err := h.repo.CreateStep(c.Request.Context(), cp.TenantID, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// UpdateStep handles PUT /campaigns/:id/steps/:stepId.
func (h *Handler) UpdateStep(c *gin.Context) {
	stepID, ok := httpx.ParamUUID(c, "stepId")
	if !ok {
		return
	}
	var req StepRequest
	h.withCampaign(c, &req, func(cp *models.Campaign) (interface{}, error) {
		idx := -1
		for i, s := range cp.Steps {
			if s.ID == stepID {
				idx = i
			}
		}
		if idx < 0 {
			return nil, apperr.NotFound("campaign step")
		}
		s := cp.Steps[idx]
		if err := req.apply(&s); err != nil {
			return nil, err
		}
		steps := append([]models.CampaignStep(nil), cp.Steps...)
		steps[idx] = s
		if err := ValidateSteps(steps); err != nil {
			return nil, err
		}
		if err := h.repo.UpdateStep(c.Request.Context(), cp.TenantID, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// DeleteStep handles DELETE /campaigns/:id/steps/:stepId.
func (h *Handler) DeleteStep(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	stepID, ok := httpx.ParamUUID(c, "stepId")
	if !ok {
		return
	}
	if err := h.repo.DeleteStep(c.Request.Context(), middleware.TenantID(c), id, stepID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLeads handles GET /campaigns/:id/leads.
func (h *Handler) ListLeads(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.repo.ListLeads(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// LeadsRequest lists leads to enroll or remove.
type LeadsRequest struct {
	LeadIDs []uuid.UUID `json:"lead_ids" binding:"required,min=1"`
}

// AddLeads handles POST /campaigns/:id/leads.
func (h *Handler) AddLeads(c *gin.Context) {
	h.leads(c, h.repo.AddLeads)
}

// RemoveLeads handles DELETE /campaigns/:id/leads.
func (h *Handler) RemoveLeads(c *gin.Context) {
	h.leads(c, h.repo.RemoveLeads)
}

func (h *Handler) leads(c *gin.Context, op func(context.Context, uuid.UUID, uuid.UUID, []uuid.UUID) (*models.Campaign, error)) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req LeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	cp, err := op(c.Request.Context(), middleware.TenantID(c), id, req.LeadIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cp)
}

type trackRequest struct {
	Event EmailEvent `json:"event" binding:"required"`
}

// Track handles POST /campaigns/:id/leads/:campaignLeadId/events.
func (h *Handler) Track(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	clID, ok := httpx.ParamUUID(c, "campaignLeadId")
	if !ok {
		return
	}
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	cl, err := h.repo.Track(c.Request.Context(), middleware.TenantID(c), id, clID, req.Event, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cl)
}

func (h *Handler) withCampaign(c *gin.Context, body interface{}, fn func(*models.Campaign) (interface{}, error)) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(body); err != nil {
		response.InvalidBody(c, err)
		return
	}
	cp, err := h.repo.Get(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := fn(cp)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
