package proposals

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/templates"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Store is the proposal and contract persistence used by the handler. *Repository implements it.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Proposal, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Proposal, error)
	RequireRefs(ctx context.Context, tenantID uuid.UUID, templateID, leadID *uuid.UUID) error
	Create(ctx context.Context, p *models.Proposal) error
	Update(ctx context.Context, p *models.Proposal) error
	AddLineItem(ctx context.Context, tenantID, proposalID uuid.UUID, li *models.ProposalLineItem) (*models.Proposal, error)
	ConvertToContract(ctx context.Context, tenantID, proposalID uuid.UUID, title string) (*models.Contract, error)

	ListContracts(ctx context.Context, tenantID uuid.UUID, f ContractFilter) ([]models.Contract, error)
	GetContract(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error)
	RequireContractRefs(ctx context.Context, c *models.Contract) error
	CreateContract(ctx context.Context, c *models.Contract) error
	UpdateContract(ctx context.Context, c *models.Contract) error
}

// TemplateFinder looks up published templates for public submissions.
type TemplateFinder interface {
	GetPublished(ctx context.Context, tenantSlug, slug string) (*templates.Template, error)
}

// Handler handles proposal and contract endpoints.
type Handler struct {
	repo      Store
	templates TemplateFinder
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a proposal handler.
func NewHandler(repo Store, templates TemplateFinder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, templates: templates, logger: logger, now: time.Now}
}

// LineItemRequest is one priced row.
type LineItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (req LineItemRequest) item(order int) (models.ProposalLineItem, error) {
	if req.Quantity.IsNegative() || req.UnitPrice.IsNegative() {
		return models.ProposalLineItem{}, apperr.Validation("quantity and unit_price must not be negative")
	}
	return models.ProposalLineItem{
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Total:       req.Quantity.Mul(req.UnitPrice),
		SortOrder:   order,
	}, nil
}

// ProposalRequest is the body for staff create and update.
type ProposalRequest struct {
	TemplateID  *uuid.UUID        `json:"template_id"`
	LeadID      *uuid.UUID        `json:"lead_id"`
	ClientName  *string           `json:"client_name"`
	ClientEmail *string           `json:"client_email" binding:"omitempty,email"`
	Responses   json.RawMessage   `json:"responses"`
	Tax         *decimal.Decimal  `json:"tax"`
	Notes       *string           `json:"notes"`
	LineItems   []LineItemRequest `json:"line_items" binding:"dive"`
}

func (req *ProposalRequest) apply(p *models.Proposal, creating bool) error {
	if req.TemplateID != nil {
		p.TemplateID = req.TemplateID
	}
	if req.LeadID != nil {
		p.LeadID = req.LeadID
	}
	if req.ClientName != nil {
		p.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.ClientEmail != nil {
		p.ClientEmail = strings.TrimSpace(*req.ClientEmail)
	}
	if len(req.Responses) > 0 {
		if !json.Valid(req.Responses) {
			return apperr.Validation("responses must be JSON")
		}
		p.Responses = req.Responses
	}
	if req.Tax != nil {
		if req.Tax.IsNegative() {
			return apperr.Validation("tax must not be negative")
		}
		p.Tax = *req.Tax
	}
	if req.Notes != nil {
		p.Notes = strings.TrimSpace(*req.Notes)
	}
	if creating {
		for i, r := range req.LineItems {
			li, err := r.item(i)
			if err != nil {
				return err
			}
			p.LineItems = append(p.LineItems, li)
		}
	}
	if p.ClientName == "" && p.LeadID == nil {
		return apperr.Validation("client_name or lead_id is required")
	}
	Recompute(p)
	return nil
}

// List handles GET /proposals?status=&lead_id=&template_id=.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("status"); v != "" {
		st := models.ProposalStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	var ok bool
	if f.LeadID, ok = httpx.QueryUUID(c, "lead_id"); !ok {
		return
	}
	if f.TemplateID, ok = httpx.QueryUUID(c, "template_id"); !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /proposals/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Create handles POST /proposals.
func (h *Handler) Create(c *gin.Context) {
	var req ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	p := models.Proposal{TenantID: middleware.TenantID(c), Status: models.ProposalSubmitted, SubmittedAt: h.now()}
	if err := req.apply(&p, true); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.RequireRefs(ctx, p.TenantID, p.TemplateID, p.LeadID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(ctx, &p); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PUT /proposals/:id. Line items are added through their own endpoint.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	p, err := h.repo.GetByID(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := req.apply(p, false); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.RequireRefs(ctx, p.TenantID, req.TemplateID, req.LeadID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(ctx, p); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /proposals/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	p, err := h.repo.GetByID(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := SetProposalStatus(p, models.ProposalStatus(req.Status), h.now()); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(ctx, p); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// AddLineItem handles POST /proposals/:id/line-items.
func (h *Handler) AddLineItem(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req LineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	li, err := req.item(0)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.repo.AddLineItem(c.Request.Context(), middleware.TenantID(c), id, &li)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

type convertRequest struct {
	Title string `json:"title"`
}

// ConvertToContract handles POST /proposals/:id/contract.
func (h *Handler) ConvertToContract(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req convertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidBody(c, err)
			return
		}
	}
	ct, err := h.repo.ConvertToContract(c.Request.Context(), middleware.TenantID(c), id, req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("proposal converted to contract",
		zap.String("proposal_id", id.String()), zap.String("contract_id", ct.ID.String()))
	response.Created(c, ct)
}

// SubmitRequest is a prospect's answers to a published template.
type SubmitRequest struct {
	ClientName  string           `json:"client_name" binding:"required"`
	ClientEmail string           `json:"client_email" binding:"required,email"`
	Values      templates.Values `json:"values"`
	Notes       string           `json:"notes"`
}

// Submit handles POST /public/:tenant/templates/:slug/proposals. The proposal is priced from the
// template, not from the submitted totals.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	tpl, err := h.templates.GetPublished(ctx, c.Param("tenant"), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	responses, err := json.Marshal(req.Values)
	if err != nil {
		response.Error(c, err)
		return
	}
	p := FromQuote(tpl, templates.CalculatePricing(tpl.Elements, req.Values), h.now())
	p.ClientName = strings.TrimSpace(req.ClientName)
	p.ClientEmail = strings.TrimSpace(req.ClientEmail)
	p.Notes = strings.TrimSpace(req.Notes)
	p.Responses = responses
	if err := h.repo.Create(ctx, p); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("proposal submitted", zap.String("tenant_id", p.TenantID.String()),
		zap.String("template", tpl.Slug), zap.String("total", p.Total.StringFixed(2)))
	response.Created(c, gin.H{"id": p.ID, "subtotal": p.Subtotal, "tax": p.Tax, "total": p.Total})
}
