package gear

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// AssignRequest commits one item to an event.
type AssignRequest struct {
	GearID  uuid.UUID  `json:"gear_id" binding:"required"`
	EventID uuid.UUID  `json:"event_id" binding:"required"`
	KitID   *uuid.UUID `json:"kit_id"`
	ShiftID *uuid.UUID `json:"shift_id"`
	Notes   string     `json:"notes"`
}

// AssignKitRequest commits every item of a kit to an event.
type AssignKitRequest struct {
	KitID   uuid.UUID  `json:"kit_id" binding:"required"`
	EventID uuid.UUID  `json:"event_id" binding:"required"`
	ShiftID *uuid.UUID `json:"shift_id"`
}

// ListAssignments handles GET /gear-assignments?event_id=&gear_id=&kit_id=&from=&to=.
func (h *Handler) ListAssignments(c *gin.Context) {
	var f AssignmentFilter
	var ok bool
	if f.EventID, ok = httpx.QueryUUID(c, "event_id"); !ok {
		return
	}
	if f.GearID, ok = httpx.QueryUUID(c, "gear_id"); !ok {
		return
	}
	if f.KitID, ok = httpx.QueryUUID(c, "kit_id"); !ok {
		return
	}
	if f.From, ok = httpx.QueryTime(c, "from"); !ok {
		return
	}
	if f.To, ok = httpx.QueryTime(c, "to"); !ok {
		return
	}
	list, err := h.repo.ListAssignments(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetAssignment handles GET /gear-assignments/:id.
func (h *Handler) GetAssignment(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.repo.GetAssignment(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Assign handles POST /gear-assignments.
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	a := &models.GearAssignment{TenantID: middleware.TenantID(c), GearID: req.GearID, EventID: req.EventID,
		KitID: req.KitID, ShiftID: req.ShiftID, Notes: req.Notes}
	if err := h.repo.Assign(c.Request.Context(), a); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// AssignKit handles POST /gear-assignments/kit.
func (h *Handler) AssignKit(c *gin.Context) {
	var req AssignKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	list, err := h.repo.AssignKit(c.Request.Context(), middleware.TenantID(c), req.KitID, req.EventID, req.ShiftID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, list)
}

// Unassign handles DELETE /gear-assignments/:id.
func (h *Handler) Unassign(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.Unassign(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReassignRequest moves an assignment to another event.
type ReassignRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
}

// Reassign handles POST /gear-assignments/:id/reassign.
func (h *Handler) Reassign(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	a, err := h.repo.Reassign(c.Request.Context(), middleware.TenantID(c), id, req.EventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// PackStatusRequest updates packing progress.
type PackStatusRequest struct {
	PackStatus models.PackStatus `json:"pack_status" binding:"required"`
}

// UpdatePackStatus handles PATCH /gear-assignments/:id/pack-status.
func (h *Handler) UpdatePackStatus(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req PackStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if !req.PackStatus.Valid() {
		response.BadRequest(c, "invalid pack_status")
		return
	}
	a, err := h.repo.SetPackStatus(c.Request.Context(), middleware.TenantID(c), id, req.PackStatus)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}
