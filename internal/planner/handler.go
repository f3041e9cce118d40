package planner

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Applier is the server side of the planner. *Service implements it.
type Applier interface {
	Dropper
	Move(ctx context.Context, tenantID, assignmentID, toShiftID uuid.UUID) (*Result, error)
}

type Handler struct {
	svc    Applier
	logger *zap.Logger
}

func NewHandler(svc Applier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// DropRequest is the body for POST /planner/drop. Exactly one of day and shift_id is set.
type DropRequest struct {
	Payload Payload    `json:"payload" binding:"required"`
	Day     string     `json:"day"`
	ShiftID *uuid.UUID `json:"shift_id"`
}

// Drop handles POST /planner/drop.
func (h *Handler) Drop(c *gin.Context) {
	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	day := strings.TrimSpace(req.Day)
	if (day == "") == (req.ShiftID == nil) {
		response.BadRequest(c, "set exactly one of day and shift_id")
		return
	}

	ctl := NewController(middleware.TenantID(c), h.svc)
	if err := ctl.BeginDrag(req.Payload); err != nil {
		response.Error(c, err)
		return
	}
	var res *Result
	var err error
	if req.ShiftID != nil {
		res, err = ctl.DropOnShift(c.Request.Context(), *req.ShiftID)
	} else {
		t, perr := httpx.ParseTime(day)
		if perr != nil {
			ctl.Cancel()
			response.BadRequest(c, "invalid day: expected YYYY-MM-DD")
			return
		}
		res, err = ctl.DropOnDay(c.Request.Context(), t)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// MoveRequest is the body for POST /planner/move.
type MoveRequest struct {
	AssignmentID uuid.UUID `json:"assignment_id" binding:"required"`
	ToShiftID    uuid.UUID `json:"to_shift_id" binding:"required"`
}

// Move handles POST /planner/move.
func (h *Handler) Move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	res, err := h.svc.Move(c.Request.Context(), middleware.TenantID(c), req.AssignmentID, req.ToShiftID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
