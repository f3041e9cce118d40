package shifts

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Handler handles shift and assignment HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a shifts handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ListByEvent handles GET /events/:id/shifts.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByEvent(c.Request.Context(), middleware.TenantID(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /shifts/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	s, err := h.svc.GetShift(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// Create handles POST /shifts.
func (h *Handler) Create(c *gin.Context) {
	var req ShiftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	s, err := h.svc.CreateShift(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, s)
}

// Update handles PATCH /shifts/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req ShiftPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	s, err := h.svc.UpdateShift(c.Request.Context(), middleware.TenantID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /shifts/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteShift(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assign handles POST /shifts/:id/assignments.
func (h *Handler) Assign(c *gin.Context) {
	shiftID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AssignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	req.ShiftID = shiftID
	res, err := h.svc.Assign(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// UpdateAssignment handles PATCH /assignments/:id.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AssignmentPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	a, err := h.svc.UpdateAssignment(c.Request.Context(), middleware.TenantID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Unassign handles DELETE /assignments/:id.
func (h *Handler) Unassign(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unassign(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
