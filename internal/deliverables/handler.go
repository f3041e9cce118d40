package deliverables

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

type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Deliverable, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deliverable, error)
	RequireRefs(ctx context.Context, tenantID, eventID uuid.UUID, editorID *uuid.UUID) error
	Create(ctx context.Context, d *models.Deliverable) error
	Update(ctx context.Context, d *models.Deliverable) error
}

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

// DeliverableRequest is the body for create and update. Nil fields are unchanged on update.
type DeliverableRequest struct {
	EventID              *uuid.UUID                  `json:"event_id"`
	Title                *string                     `json:"title"`
	DeliverableType      *string                     `json:"deliverable_type"`
	Description          *string                     `json:"description"`
	DueDate              *time.Time                  `json:"due_date"`
	Priority             *models.DeliverablePriority `json:"priority"`
	AssignedEditorID     *uuid.UUID                  `json:"assigned_editor_id"`
	CompletionPercentage *int                        `json:"completion_percentage"`
	Notes                *string                     `json:"notes"`
	DriveFolderURL       *string                     `json:"drive_folder_url"`
}

func (req *DeliverableRequest) apply(d *models.Deliverable) error {
	if req.Title != nil {
		d.Title = strings.TrimSpace(*req.Title)
	}
	if req.DeliverableType != nil {
		d.DeliverableType = *req.DeliverableType
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.DueDate != nil {
		d.DueDate = req.DueDate
	}
	if req.Priority != nil {
		d.Priority = *req.Priority
	}
	if req.AssignedEditorID != nil {
		d.AssignedEditorID = req.AssignedEditorID
	}
	if req.CompletionPercentage != nil {
		d.CompletionPercentage = *req.CompletionPercentage
	}
	if req.Notes != nil {
		d.Notes = *req.Notes
	}
	if req.DriveFolderURL != nil {
		d.DriveFolderURL = *req.DriveFolderURL
	}
	switch {
	case d.Title == "":
		return apperr.Validation("title is required")
	case !d.Priority.Valid():
		return apperr.Validation("invalid priority %q", d.Priority)
	case d.CompletionPercentage < 0 || d.CompletionPercentage > 100:
		return apperr.Validation("completion_percentage must be between 0 and 100")
	}
	return nil
}

// Transition moves d to next, enforcing the status graph. Completing stamps completed_at.
func Transition(d *models.Deliverable, next models.DeliverableStatus, now time.Time) error {
	if !next.Valid() {
		return apperr.Validation("invalid status %q", next)
	}
	if !d.Status.CanTransition(next) {
		return apperr.BadRequest("cannot move deliverable from %s to %s", d.Status, next)
	}
	d.Status = next
	if next == models.DeliverableCompleted {
		d.CompletionPercentage = 100
		d.CompletedAt = &now
	}
	return nil
}

// List handles GET /deliverables?event_id=&status=&editor_id=.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	var ok bool
	if f.EventID, ok = httpx.QueryUUID(c, "event_id"); !ok {
		return
	}
	if f.EditorID, ok = httpx.QueryUUID(c, "editor_id"); !ok {
		return
	}
	if v := c.Query("status"); v != "" {
		st := models.DeliverableStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	h.list(c, f)
}

// ListByEvent handles GET /events/:id/deliverables.
func (h *Handler) ListByEvent(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.list(c, Filter{EventID: &id})
}

func (h *Handler) list(c *gin.Context, f Filter) {
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /deliverables/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	d, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

// Create handles POST /deliverables.
func (h *Handler) Create(c *gin.Context) {
	var req DeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if req.EventID == nil {
		response.Error(c, apperr.Validation("event_id is required"))
		return
	}
	d := &models.Deliverable{TenantID: middleware.TenantID(c), EventID: *req.EventID,
		Priority: models.PriorityNormal, Status: models.DeliverablePending}
	if err := req.apply(d); err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.repo.RequireRefs(ctx, d.TenantID, d.EventID, d.AssignedEditorID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(ctx, d); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

// Update handles PATCH /deliverables/:id. The event cannot change.
func (h *Handler) Update(c *gin.Context) {
	var req DeliverableRequest
	h.mutate(c, &req, func(d *models.Deliverable) error {
		if req.EventID != nil && *req.EventID != d.EventID {
			return apperr.BadRequest("a deliverable cannot move to another event")
		}
		return req.apply(d)
	})
}

// StatusRequest changes a deliverable's status.
type StatusRequest struct {
	Status models.DeliverableStatus `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /deliverables/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	h.mutate(c, &req, func(d *models.Deliverable) error {
		return Transition(d, req.Status, h.now())
	})
}

// EditorRequest assigns an editor.
type EditorRequest struct {
	EditorID uuid.UUID `json:"editor_id" binding:"required"`
}

// AssignEditor handles PUT /deliverables/:id/editor.
func (h *Handler) AssignEditor(c *gin.Context) {
	var req EditorRequest
	h.mutate(c, &req, func(d *models.Deliverable) error {
		d.AssignedEditorID = &req.EditorID
		return nil
	})
}

// MarkComplete handles POST /deliverables/:id/complete. Any open deliverable may be completed directly.
func (h *Handler) MarkComplete(c *gin.Context) {
	h.mutate(c, nil, func(d *models.Deliverable) error {
		if d.Status == models.DeliverableCompleted || d.Status == models.DeliverableCancelled {
			return apperr.BadRequest("deliverable is already %s", d.Status)
		}
		now := h.now()
		d.Status = models.DeliverableCompleted
		d.CompletionPercentage = 100
		d.CompletedAt = &now
		return nil
	})
}

// DriveFolderRequest records the deliverable's folder.
type DriveFolderRequest struct {
	DriveFolderURL string `json:"drive_folder_url" binding:"required,url"`
}

// SetDriveFolder handles PUT /deliverables/:id/drive-folder.
func (h *Handler) SetDriveFolder(c *gin.Context) {
	var req DriveFolderRequest
	h.mutate(c, &req, func(d *models.Deliverable) error {
		d.DriveFolderURL = req.DriveFolderURL
		return nil
	})
}

// Delete handles DELETE /deliverables/:id. Deliverables are cancelled.
func (h *Handler) Delete(c *gin.Context) {
	h.mutate(c, nil, func(d *models.Deliverable) error {
		d.Status = models.DeliverableCancelled
		return nil
	})
}

// mutate loads the deliverable, binds body when given, applies change and saves.
// A changed editor is verified against the tenant before the write.
func (h *Handler) mutate(c *gin.Context, body interface{}, change func(*models.Deliverable) error) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if body != nil {
		if err := c.ShouldBindJSON(body); err != nil {
			response.InvalidBody(c, err)
			return
		}
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	d, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	before := d.AssignedEditorID
	if err := change(d); err != nil {
		response.Error(c, err)
		return
	}
	if editorChanged(before, d.AssignedEditorID) {
		if err := h.repo.RequireRefs(ctx, tenantID, d.EventID, d.AssignedEditorID); err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := h.repo.Update(ctx, d); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

func editorChanged(before, after *uuid.UUID) bool {
	if before == nil || after == nil {
		return before != after
	}
	return *before != *after
}
