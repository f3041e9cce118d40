package crm

import (
	"context"
	"encoding/json"
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

// Store is the CRM persistence used by the handler. *Repository implements it.
type Store interface {
	ListClients(ctx context.Context, tenantID uuid.UUID, f ClientFilter) ([]models.Client, error)
	GetClient(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	UpdateClient(ctx context.Context, c *models.Client) error

	ListLeads(ctx context.Context, tenantID uuid.UUID, f LeadFilter) ([]models.Lead, error)
	GetLead(ctx context.Context, tenantID, id uuid.UUID) (*models.Lead, error)
	CreateLead(ctx context.Context, l *models.Lead) error
	UpdateLead(ctx context.Context, l *models.Lead) error
	ConvertLead(ctx context.Context, tenantID, leadID uuid.UUID, overrides func(*models.Client)) (*models.Client, error)

	LogInteraction(ctx context.Context, i *models.Interaction) error
	ListInteractions(ctx context.Context, tenantID uuid.UUID, clientID, leadID *uuid.UUID, limit int) ([]models.Interaction, error)

	ListSavedSearches(ctx context.Context, tenantID, userID uuid.UUID, searchType string) ([]models.SavedSearch, error)
	GetSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID) (*models.SavedSearch, error)
	CreateSavedSearch(ctx context.Context, s *models.SavedSearch) error
	UpdateSavedSearch(ctx context.Context, s *models.SavedSearch) error
	DeleteSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID) error
	TouchSavedSearch(ctx context.Context, tenantID, userID, id uuid.UUID, resultCount *int, at time.Time) (*models.SavedSearch, error)
}

// Handler handles CRM endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a CRM handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// ClientRequest is the body for client create and update.
type ClientRequest struct {
	Name           *string              `json:"name"`
	ContactName    *string              `json:"contact_name"`
	Email          *string              `json:"email" binding:"omitempty,email"`
	Phone          *string              `json:"phone"`
	AddressLine1   *string              `json:"address_line1"`
	AddressLine2   *string              `json:"address_line2"`
	City           *string              `json:"city"`
	Province       *string              `json:"province"`
	PostalCode     *string              `json:"postal_code"`
	Country        *string              `json:"country"`
	Status         *models.ClientStatus `json:"status"`
	LifecycleStage *string              `json:"lifecycle_stage"`
	Notes          *string              `json:"notes"`
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (req *ClientRequest) apply(c *models.Client) error {
	set(&c.Name, req.Name)
	set(&c.ContactName, req.ContactName)
	set(&c.Email, req.Email)
	set(&c.Phone, req.Phone)
	set(&c.AddressLine1, req.AddressLine1)
	set(&c.AddressLine2, req.AddressLine2)
	set(&c.City, req.City)
	set(&c.Province, req.Province)
	set(&c.PostalCode, req.PostalCode)
	set(&c.Country, req.Country)
	set(&c.LifecycleStage, req.LifecycleStage)
	set(&c.Notes, req.Notes)
	if req.Status != nil {
		c.Status = *req.Status
	}
	if c.Name == "" {
		return apperr.Validation("name is required")
	}
	if !c.Status.Valid() {
		return apperr.Validation("invalid status %q", c.Status)
	}
	return nil
}

// ListClients handles GET /clients?status=&search=.
func (h *Handler) ListClients(c *gin.Context) {
	var f ClientFilter
	if v := c.Query("status"); v != "" {
		st := models.ClientStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	f.Search = c.Query("search")
	list, err := h.repo.ListClients(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetClient handles GET /clients/:id.
func (h *Handler) GetClient(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	cl, err := h.repo.GetClient(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cl)
}

// CreateClient handles POST /clients.
func (h *Handler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	cl := &models.Client{TenantID: middleware.TenantID(c), Status: models.ClientStatusActive}
	if err := req.apply(cl); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateClient(c.Request.Context(), cl); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cl)
}

// UpdateClient handles PATCH /clients/:id.
func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	h.saveClient(c, id, req.apply)
}

// DeleteClient handles DELETE /clients/:id. Clients are made inactive.
func (h *Handler) DeleteClient(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.saveClient(c, id, func(cl *models.Client) error {
		cl.Status = models.ClientStatusInactive
		return nil
	})
}

func (h *Handler) saveClient(c *gin.Context, id uuid.UUID, change func(*models.Client) error) {
	cl, err := h.repo.GetClient(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := change(cl); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.UpdateClient(c.Request.Context(), cl); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cl)
}

// LeadRequest is the body for lead create and update.
type LeadRequest struct {
	Organization  *string            `json:"organization"`
	ContactName   *string            `json:"contact_name"`
	Email         *string            `json:"email" binding:"omitempty,email"`
	Phone         *string            `json:"phone"`
	Source        *string            `json:"source"`
	SourceDetails json.RawMessage    `json:"source_details"`
	Status        *models.LeadStatus `json:"status"`
	Notes         *string            `json:"notes"`
}

func (req *LeadRequest) apply(l *models.Lead) error {
	set(&l.Organization, req.Organization)
	set(&l.ContactName, req.ContactName)
	set(&l.Email, req.Email)
	set(&l.Phone, req.Phone)
	set(&l.Source, req.Source)
	set(&l.Notes, req.Notes)
	if req.Status != nil {
		l.Status = *req.Status
	}
	if len(req.SourceDetails) > 0 && string(req.SourceDetails) != "null" {
		var bag map[string]interface{}
		if err := json.Unmarshal(req.SourceDetails, &bag); err != nil {
			return apperr.Validation("source_details must be a JSON object")
		}
		l.SourceDetails = req.SourceDetails
	}
	l.Email = strings.ToLower(l.Email)
	if l.ContactName == "" && l.Organization == "" {
		return apperr.Validation("contact_name or organization is required")
	}
	if l.Email == "" {
		return apperr.Validation("email is required")
	}
	if !l.Status.Valid() {
		return apperr.Validation("invalid status %q", l.Status)
	}
	return nil
}

// ListLeads handles GET /leads?status=&source=&search=.
func (h *Handler) ListLeads(c *gin.Context) {
	f := LeadFilter{Source: c.Query("source"), Search: c.Query("search")}
	if v := c.Query("status"); v != "" {
		st := models.LeadStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	list, err := h.repo.ListLeads(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetLead handles GET /leads/:id.
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	l, err := h.repo.GetLead(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, l)
}

// CreateLead handles POST /leads.
func (h *Handler) CreateLead(c *gin.Context) {
	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	l := &models.Lead{TenantID: middleware.TenantID(c), Status: models.LeadStatusNew}
	if err := req.apply(l); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateLead(c.Request.Context(), l); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, l)
}

// UpdateLead handles PATCH /leads/:id.
func (h *Handler) UpdateLead(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	h.saveLead(c, id, req.apply)
}

// LeadStatusRequest changes a lead's pipeline status.
type LeadStatusRequest struct {
	Status models.LeadStatus `json:"status" binding:"required"`
}

// UpdateLeadStatus handles PATCH /leads/:id/status. Conversion has its own endpoint.
func (h *Handler) UpdateLeadStatus(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req LeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	h.saveLead(c, id, func(l *models.Lead) error {
		if !req.Status.Valid() {
			return apperr.Validation("invalid status %q", req.Status)
		}
		if req.Status == models.LeadStatusConverted {
			return apperr.BadRequest("use the convert endpoint to convert a lead")
		}
		l.Status = req.Status
		return nil
	})
}

// DeleteLead handles DELETE /leads/:id. Leads are marked lost.
func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.saveLead(c, id, func(l *models.Lead) error {
		l.Status = models.LeadStatusLost
		return nil
	})
}

func (h *Handler) saveLead(c *gin.Context, id uuid.UUID, change func(*models.Lead) error) {
	l, err := h.repo.GetLead(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := change(l); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.UpdateLead(c.Request.Context(), l); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, l)
}

// ConvertRequest optionally overrides fields of the client created from a lead.
type ConvertRequest struct {
	Name           string `json:"name"`
	LifecycleStage string `json:"lifecycle_stage"`
}

// ConvertLead handles POST /leads/:id/convert.
func (h *Handler) ConvertLead(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ConvertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidBody(c, err)
			return
		}
	}
	cl, err := h.repo.ConvertLead(c.Request.Context(), middleware.TenantID(c), id, func(cl *models.Client) {
		if n := strings.TrimSpace(req.Name); n != "" {
			cl.Name = n
		}
		if req.LifecycleStage != "" {
			cl.LifecycleStage = req.LifecycleStage
		}
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("lead converted", zap.String("lead_id", id.String()), zap.String("client_id", cl.ID.String()))
	response.Created(c, cl)
}

// InteractionRequest logs a touchpoint with exactly one of a client or a lead.
type InteractionRequest struct {
	ClientID   *uuid.UUID             `json:"client_id"`
	LeadID     *uuid.UUID             `json:"lead_id"`
	Type       models.InteractionType `json:"type" binding:"required"`
	Summary    string                 `json:"summary" binding:"required"`
	OccurredAt *time.Time             `json:"occurred_at"`
}

// LogInteraction handles POST /interactions.
func (h *Handler) LogInteraction(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if (req.ClientID == nil) == (req.LeadID == nil) {
		response.Error(c, apperr.Validation("exactly one of client_id or lead_id is required"))
		return
	}
	if !req.Type.Valid() {
		response.Error(c, apperr.Validation("invalid interaction type %q", req.Type))
		return
	}
	userID := middleware.UserID(c)
	i := &models.Interaction{TenantID: middleware.TenantID(c), ClientID: req.ClientID, LeadID: req.LeadID,
		Type: req.Type, Summary: strings.TrimSpace(req.Summary), OccurredAt: h.now(), CreatedBy: &userID}
	if req.OccurredAt != nil {
		i.OccurredAt = *req.OccurredAt
	}
	if err := h.repo.LogInteraction(c.Request.Context(), i); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, i)
}

// ListInteractions handles GET /interactions?client_id=|lead_id=&limit=.
func (h *Handler) ListInteractions(c *gin.Context) {
	h.interactions(c, httpx.QueryInt(c, "limit", 0), false)
}

// LatestInteraction handles GET /interactions/latest?client_id=|lead_id=.
func (h *Handler) LatestInteraction(c *gin.Context) {
	h.interactions(c, 1, true)
}

func (h *Handler) interactions(c *gin.Context, limit int, latest bool) {
	clientID, ok := httpx.QueryUUID(c, "client_id")
	if !ok {
		return
	}
	leadID, ok := httpx.QueryUUID(c, "lead_id")
	if !ok {
		return
	}
	if clientID == nil && leadID == nil {
		response.BadRequest(c, "client_id or lead_id is required")
		return
	}
	list, err := h.repo.ListInteractions(c.Request.Context(), middleware.TenantID(c), clientID, leadID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if latest {
		if len(list) == 0 {
			response.Error(c, apperr.NotFound("interaction"))
			return
		}
		response.OK(c, list[0])
		return
	}
	response.OK(c, list)
}
