package operators

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

const historyLimit = 100

// Store is the operator persistence used by the handler.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Operator, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Operator, error)
	Create(ctx context.Context, o *models.Operator) error
	Update(ctx context.Context, o *models.Operator) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
	ReplaceSkills(ctx context.Context, tenantID, operatorID uuid.UUID, skills []models.OperatorSkill) ([]models.OperatorSkill, error)
	ListAvailability(ctx context.Context, tenantID, operatorID uuid.UUID, from, to time.Time) ([]models.OperatorAvailability, error)
	CreateAvailability(ctx context.Context, tenantID, operatorID uuid.UUID, items []models.OperatorAvailability) ([]models.OperatorAvailability, error)
	DeleteAvailability(ctx context.Context, tenantID, id uuid.UUID) error
	ListBlackouts(ctx context.Context, tenantID, operatorID uuid.UUID) ([]models.BlackoutDate, error)
	AddBlackout(ctx context.Context, b *models.BlackoutDate) error
	DeleteBlackout(ctx context.Context, tenantID, id uuid.UUID) error
	Assignments(ctx context.Context, tenantID, operatorID uuid.UUID, now time.Time, upcoming bool, limit int) ([]models.OperatorAssignment, error)
}

// ConflictChecker answers operator conflict queries.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, tenantID, operatorID uuid.UUID, window scheduling.Window, excludeShiftID *uuid.UUID) (scheduling.ConflictReport, error)
}

// Handler handles operator HTTP endpoints.
type Handler struct {
	repo      Store
	conflicts ConflictChecker
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates an operators handler.
func NewHandler(repo Store, conflicts ConflictChecker, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, conflicts: conflicts, logger: logger, now: time.Now}
}

// OperatorRequest is the body for create and update. Nil fields are unchanged on update.
type OperatorRequest struct {
	Name        *string              `json:"name"`
	Email       *string              `json:"email"`
	Phone       *string              `json:"phone"`
	HourlyRate  *decimal.NullDecimal `json:"hourly_rate"`
	PrimaryRole *string              `json:"primary_role"`
	IsActive    *bool                `json:"is_active"`
	Notes       *string              `json:"notes"`
}

func (req *OperatorRequest) apply(o *models.Operator) error {
	if req.Name != nil {
		o.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		o.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		o.Phone = *req.Phone
	}
	if req.HourlyRate != nil {
		o.HourlyRate = *req.HourlyRate
	}
	if req.PrimaryRole != nil {
		o.PrimaryRole = *req.PrimaryRole
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	if o.Name == "" {
		return apperr.Validation("name is required")
	}
	if o.HourlyRate.Valid && o.HourlyRate.Decimal.IsNegative() {
		return apperr.Validation("hourly rate must not be negative")
	}
	return nil
}

// List handles GET /operators?active=&search=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), Filter{
		Active: httpx.QueryBool(c, "active"),
		Search: c.Query("search"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /operators/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, o)
}

// Create handles POST /operators.
func (h *Handler) Create(c *gin.Context) {
	var req OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	o := &models.Operator{TenantID: middleware.TenantID(c), IsActive: true}
	if err := req.apply(o); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), o); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, o)
}

// Update handles PATCH /operators/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := req.apply(o); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(c.Request.Context(), o); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, o)
}

// Delete handles DELETE /operators/:id. Operators are deactivated.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SkillsRequest replaces an operator's skills.
type SkillsRequest struct {
	Skills []models.OperatorSkill `json:"skills"`
}

// ValidateSkills checks names are present and unique and levels are 1-5.
func ValidateSkills(skills []models.OperatorSkill) error {
	seen := map[string]bool{}
	for i := range skills {
		skills[i].Name = strings.TrimSpace(skills[i].Name)
		key := strings.ToLower(skills[i].Name)
		if key == "" {
			return apperr.Validation("skill name is required")
		}
		if seen[key] {
			return apperr.Validation("duplicate skill %q", skills[i].Name)
		}
		seen[key] = true
		if skills[i].Level < 1 || skills[i].Level > 5 {
			return apperr.Validation("skill level must be between 1 and 5")
		}
	}
	return nil
}

// ReplaceSkills handles PUT /operators/:id/skills.
func (h *Handler) ReplaceSkills(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req SkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if err := ValidateSkills(req.Skills); err != nil {
		response.Error(c, err)
		return
	}
	skills, err := h.repo.ReplaceSkills(c.Request.Context(), middleware.TenantID(c), id, req.Skills)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, skills)
}

// AvailabilityRequest creates one or more availability records.
type AvailabilityRequest struct {
	Items []models.OperatorAvailability `json:"items" binding:"required,min=1"`
}

// ValidateAvailability checks types and partial-day windows.
func ValidateAvailability(items []models.OperatorAvailability) error {
	for _, a := range items {
		if a.Date.IsZero() {
			return apperr.Validation("date is required")
		}
		if !a.Type.Valid() {
			return apperr.Validation("invalid availability type %q", a.Type)
		}
		if a.Type == models.AvailabilityPartial {
			if a.StartTime == nil || a.EndTime == nil {
				return apperr.Validation("partial availability needs start_time and end_time")
			}
			if err := (scheduling.Window{Start: *a.StartTime, End: *a.EndTime}).Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListAvailability handles GET /operators/:id/availability?from=&to=. The range defaults to the next 30 days.
func (h *Handler) ListAvailability(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	from, ok := httpx.QueryTime(c, "from")
	if !ok {
		return
	}
	to, ok := httpx.QueryTime(c, "to")
	if !ok {
		return
	}
	start := h.now()
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 0, 30)
	if to != nil {
		end = *to
	}
	list, err := h.repo.ListAvailability(c.Request.Context(), middleware.TenantID(c), id, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateAvailability handles POST /operators/:id/availability. A batch is stored all or nothing.
func (h *Handler) CreateAvailability(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if err := ValidateAvailability(req.Items); err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.repo.CreateAvailability(c.Request.Context(), middleware.TenantID(c), id, req.Items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, list)
}

// DeleteAvailability handles DELETE /availability/:id.
func (h *Handler) DeleteAvailability(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteAvailability(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BlackoutRequest adds a blackout range. Dates are inclusive.
type BlackoutRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason"`
}

func (req BlackoutRequest) blackout(tenantID, operatorID uuid.UUID) (*models.BlackoutDate, error) {
	start, err := time.Parse(httpx.DateLayout, req.StartDate)
	if err != nil {
		return nil, apperr.Validation("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(httpx.DateLayout, req.EndDate)
	if err != nil {
		return nil, apperr.Validation("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, apperr.Validation("end_date must not be before start_date")
	}
	return &models.BlackoutDate{TenantID: tenantID, OperatorID: operatorID, StartDate: start, EndDate: end, Reason: req.Reason}, nil
}

// ListBlackouts handles GET /operators/:id/blackouts.
func (h *Handler) ListBlackouts(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.repo.ListBlackouts(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AddBlackout handles POST /operators/:id/blackouts.
func (h *Handler) AddBlackout(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req BlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	b, err := req.blackout(middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.AddBlackout(c.Request.Context(), b); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, b)
}

// DeleteBlackout handles DELETE /blackouts/:id.
func (h *Handler) DeleteBlackout(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteBlackout(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History handles GET /operators/:id/history.
func (h *Handler) History(c *gin.Context) {
	h.assignments(c, false)
}

// Upcoming handles GET /operators/:id/upcoming.
func (h *Handler) Upcoming(c *gin.Context) {
	h.assignments(c, true)
}

func (h *Handler) assignments(c *gin.Context, upcoming bool) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	limit := httpx.QueryInt(c, "limit", historyLimit)
	if limit < 1 || limit > historyLimit {
		limit = historyLimit
	}
	list, err := h.repo.Assignments(c.Request.Context(), middleware.TenantID(c), id, h.now(), upcoming, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Conflicts handles GET /operators/:id/conflicts?start=&end=&exclude_shift_id=.
func (h *Handler) Conflicts(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	start, ok := httpx.QueryTime(c, "start")
	if !ok {
		return
	}
	end, ok := httpx.QueryTime(c, "end")
	if !ok {
		return
	}
	if start == nil || end == nil {
		response.BadRequest(c, "start and end are required")
		return
	}
	exclude, ok := httpx.QueryUUID(c, "exclude_shift_id")
	if !ok {
		return
	}
	report, err := h.conflicts.CheckConflicts(c.Request.Context(), middleware.TenantID(c), id,
		scheduling.Window{Start: *start, End: *end}, exclude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
