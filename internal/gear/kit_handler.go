package gear

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// KitRequest is the body for kit create and update.
type KitRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	IsActive    *bool       `json:"is_active"`
	GearIDs     []uuid.UUID `json:"gear_ids"`
}

// GearIDsRequest lists items to add to or remove from a kit.
type GearIDsRequest struct {
	GearIDs []uuid.UUID `json:"gear_ids" binding:"required,min=1"`
}

// ListKits handles GET /kits?active=.
func (h *Handler) ListKits(c *gin.Context) {
	list, err := h.repo.ListKits(c.Request.Context(), middleware.TenantID(c), httpx.QueryBool(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetKit handles GET /kits/:id.
func (h *Handler) GetKit(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	k, err := h.repo.GetKit(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, k)
}

// CreateKit handles POST /kits.
func (h *Handler) CreateKit(c *gin.Context) {
	var req KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	k := &models.GearKit{TenantID: middleware.TenantID(c), IsActive: true, GearIDs: req.GearIDs}
	if req.Name != nil {
		k.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		k.Description = *req.Description
	}
	if k.Name == "" {
		response.Error(c, apperr.Validation("name is required"))
		return
	}
	if k.GearIDs == nil {
		k.GearIDs = []uuid.UUID{}
	}
	if err := h.repo.CreateKit(c.Request.Context(), k); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, k)
}

// UpdateKit handles PATCH /kits/:id. Gear membership changes go through the gear endpoints.
func (h *Handler) UpdateKit(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	k, err := h.repo.GetKit(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Name != nil {
		k.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		k.Description = *req.Description
	}
	if req.IsActive != nil {
		k.IsActive = *req.IsActive
	}
	if k.Name == "" {
		response.Error(c, apperr.Validation("name is required"))
		return
	}
	if err := h.repo.UpdateKit(c.Request.Context(), k); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, k)
}

// DeleteKit handles DELETE /kits/:id. Kits are deactivated.
func (h *Handler) DeleteKit(c *gin.Context) { h.setKitActive(c, false) }

// ArchiveKit handles POST /kits/:id/archive.
func (h *Handler) ArchiveKit(c *gin.Context) { h.setKitActive(c, false) }

// RestoreKit handles POST /kits/:id/restore.
func (h *Handler) RestoreKit(c *gin.Context) { h.setKitActive(c, true) }

func (h *Handler) setKitActive(c *gin.Context, active bool) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)
	if err := h.repo.SetKitActive(c.Request.Context(), tenantID, id, active); err != nil {
		response.Error(c, err)
		return
	}
	k, err := h.repo.GetKit(c.Request.Context(), tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, k)
}

// AddGear handles POST /kits/:id/gear/:gearId. An item already in the kit is a conflict.
func (h *Handler) AddGear(c *gin.Context) {
	kitID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	gearID, ok := httpx.ParamUUID(c, "gearId")
	if !ok {
		return
	}
	h.changeGear(c, kitID, func() (int, error) {
		return h.repo.AddKitGear(c.Request.Context(), middleware.TenantID(c), kitID, []uuid.UUID{gearID}, false)
	})
}

// RemoveGear handles DELETE /kits/:id/gear/:gearId.
func (h *Handler) RemoveGear(c *gin.Context) {
	kitID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	gearID, ok := httpx.ParamUUID(c, "gearId")
	if !ok {
		return
	}
	h.changeGear(c, kitID, func() (int, error) {
		return h.repo.RemoveKitGear(c.Request.Context(), middleware.TenantID(c), kitID, []uuid.UUID{gearID})
	})
}

// BulkAddGear handles POST /kits/:id/gear/bulk-add. Items already in the kit are skipped.
func (h *Handler) BulkAddGear(c *gin.Context) {
	kitID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req GearIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	h.changeGear(c, kitID, func() (int, error) {
		return h.repo.AddKitGear(c.Request.Context(), middleware.TenantID(c), kitID, req.GearIDs, true)
	})
}

// BulkRemoveGear handles POST /kits/:id/gear/bulk-remove.
func (h *Handler) BulkRemoveGear(c *gin.Context) {
	kitID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req GearIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	h.changeGear(c, kitID, func() (int, error) {
		return h.repo.RemoveKitGear(c.Request.Context(), middleware.TenantID(c), kitID, req.GearIDs)
	})
}

func (h *Handler) changeGear(c *gin.Context, kitID uuid.UUID, change func() (int, error)) {
	n, err := change()
	if err != nil {
		response.Error(c, err)
		return
	}
	k, err := h.repo.GetKit(c.Request.Context(), middleware.TenantID(c), kitID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Debug("kit gear changed", zap.String("kit_id", kitID.String()), zap.Int("rows", n))
	response.OK(c, gin.H{"kit": k, "changed": n})
}
