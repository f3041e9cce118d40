package proposals

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// ContractRequest is the body for contract create and update. Status moves through its own endpoint.
type ContractRequest struct {
	ProposalID  *uuid.UUID       `json:"proposal_id"`
	LeadID      *uuid.UUID       `json:"lead_id"`
	ClientID    *uuid.UUID       `json:"client_id"`
	Title       *string          `json:"title"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Terms       *string          `json:"terms"`
}

func (req *ContractRequest) apply(ct *models.Contract) error {
	if req.LeadID != nil {
		ct.LeadID = req.LeadID
	}
	if req.ClientID != nil {
		ct.ClientID = req.ClientID
	}
	if req.Title != nil {
		ct.Title = strings.TrimSpace(*req.Title)
	}
	if req.TotalAmount != nil {
		ct.TotalAmount = *req.TotalAmount
	}
	if req.Terms != nil {
		ct.Terms = *req.Terms
	}
	if ct.Title == "" {
		return apperr.Validation("title is required")
	}
	if ct.TotalAmount.IsNegative() {
		return apperr.Validation("total_amount must not be negative")
	}
	return nil
}

// ListContracts handles GET /contracts?status=&client_id=.
func (h *Handler) ListContracts(c *gin.Context) {
	var f ContractFilter
	if v := c.Query("status"); v != "" {
		st := models.ContractStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	var ok bool
	if f.ClientID, ok = httpx.QueryUUID(c, "client_id"); !ok {
		return
	}
	list, err := h.repo.ListContracts(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetContract handles GET /contracts/:id.
func (h *Handler) GetContract(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ct, err := h.repo.GetContract(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ct)
}

// CreateContract handles POST /contracts.
func (h *Handler) CreateContract(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	ct := models.Contract{TenantID: middleware.TenantID(c), ProposalID: req.ProposalID, Status: models.ContractDraft}
	if err := req.apply(&ct); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.RequireContractRefs(ctx, &ct); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateContract(ctx, &ct); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ct)
}

// UpdateContract handles PUT /contracts/:id.
func (h *Handler) UpdateContract(c *gin.Context) {
	h.mutateContract(c, func(ct *models.Contract) error {
		var req ContractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: %v", err)
		}
		if ct.Status == models.ContractCancelled {
			return apperr.BadRequest("contract is cancelled")
		}
		if err := req.apply(ct); err != nil {
			return err
		}
		return h.repo.RequireContractRefs(c.Request.Context(), ct)
	})
}

// UpdateContractStatus handles PATCH /contracts/:id/status.
func (h *Handler) UpdateContractStatus(c *gin.Context) {
	h.mutateContract(c, func(ct *models.Contract) error {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: %v", err)
		}
		return SetContractStatus(ct, models.ContractStatus(req.Status), h.now())
	})
}

// DeleteContract handles DELETE /contracts/:id. The contract is cancelled, not removed.
func (h *Handler) DeleteContract(c *gin.Context) {
	h.mutateContract(c, func(ct *models.Contract) error {
		return SetContractStatus(ct, models.ContractCancelled, h.now())
	})
}

func (h *Handler) mutateContract(c *gin.Context, change func(*models.Contract) error) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ct, err := h.repo.GetContract(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := change(ct); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.UpdateContract(ctx, ct); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ct)
}
