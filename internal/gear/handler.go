package gear

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

// Store is the gear persistence used by the handler. *Repository implements it.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Gear, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Gear, error)
	Create(ctx context.Context, g *models.Gear) error
	Update(ctx context.Context, g *models.Gear) error
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.GearStatus) (*models.Gear, error)
	AvailableInWindow(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Gear, error)

	ListKits(ctx context.Context, tenantID uuid.UUID, active *bool) ([]models.GearKit, error)
	GetKit(ctx context.Context, tenantID, id uuid.UUID) (*models.GearKit, error)
	CreateKit(ctx context.Context, k *models.GearKit) error
	UpdateKit(ctx context.Context, k *models.GearKit) error
	SetKitActive(ctx context.Context, tenantID, id uuid.UUID, active bool) error
	AddKitGear(ctx context.Context, tenantID, kitID uuid.UUID, gearIDs []uuid.UUID, skipExisting bool) (int, error)
	RemoveKitGear(ctx context.Context, tenantID, kitID uuid.UUID, gearIDs []uuid.UUID) (int, error)

	ListAssignments(ctx context.Context, tenantID uuid.UUID, f AssignmentFilter) ([]models.GearAssignment, error)
	GetAssignment(ctx context.Context, tenantID, id uuid.UUID) (*models.GearAssignment, error)
	Assign(ctx context.Context, a *models.GearAssignment) error
	AssignKit(ctx context.Context, tenantID, kitID, eventID uuid.UUID, shiftID *uuid.UUID) ([]models.GearAssignment, error)
	Unassign(ctx context.Context, tenantID, id uuid.UUID) error
	Reassign(ctx context.Context, tenantID, id, eventID uuid.UUID) (*models.GearAssignment, error)
	SetPackStatus(ctx context.Context, tenantID, id uuid.UUID, status models.PackStatus) (*models.GearAssignment, error)
	Booked(ctx context.Context, tenantID uuid.UUID, gearIDs []uuid.UUID, from, to time.Time) ([]models.GearAssignment, error)
}

// Handler handles gear, kit and gear assignment endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a gear handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// GearRequest is the body for create and update. Nil fields are unchanged on update.
type GearRequest struct {
	Name          *string              `json:"name"`
	Category      *models.GearCategory `json:"category"`
	SerialNumber  *string              `json:"serial_number"`
	Status        *models.GearStatus   `json:"status"`
	PurchasePrice *decimal.NullDecimal `json:"purchase_price"`
	PurchaseDate  *time.Time           `json:"purchase_date"`
	Notes         *string              `json:"notes"`
}

func (req *GearRequest) apply(g *models.Gear) error {
	if req.Name != nil {
		g.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		g.Category = *req.Category
	}
	if req.SerialNumber != nil {
		g.SerialNumber = strings.TrimSpace(*req.SerialNumber)
	}
	if req.Status != nil {
		g.Status = *req.Status
	}
	if req.PurchasePrice != nil {
		g.PurchasePrice = *req.PurchasePrice
	}
	if req.PurchaseDate != nil {
		g.PurchaseDate = req.PurchaseDate
	}
	if req.Notes != nil {
		g.Notes = *req.Notes
	}
	switch {
	case g.Name == "":
		return apperr.Validation("name is required")
	case !g.Category.Valid():
		return apperr.Validation("invalid category %q", g.Category)
	case !g.Status.Valid():
		return apperr.Validation("invalid status %q", g.Status)
	case g.PurchasePrice.Valid && g.PurchasePrice.Decimal.IsNegative():
		return apperr.Validation("purchase price must not be negative")
	}
	return nil
}

// List handles GET /gear?category=&status=&search=.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("category"); v != "" {
		cat := models.GearCategory(v)
		if !cat.Valid() {
			response.BadRequest(c, "invalid category")
			return
		}
		f.Category = &cat
	}
	if v := c.Query("status"); v != "" {
		st := models.GearStatus(v)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	f.Search = c.Query("search")
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ByCategory handles GET /gear/by-category and groups items by category.
func (h *Handler) ByCategory(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), Filter{})
	if err != nil {
		response.Error(c, err)
		return
	}
	grouped := map[models.GearCategory][]models.Gear{}
	for _, g := range list {
		grouped[g.Category] = append(grouped[g.Category], g)
	}
	response.OK(c, grouped)
}

// GetByID handles GET /gear/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	g, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// Create handles POST /gear.
func (h *Handler) Create(c *gin.Context) {
	var req GearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	g := &models.Gear{TenantID: middleware.TenantID(c), Category: models.GearCategoryOther, Status: models.GearStatusAvailable}
	if err := req.apply(g); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), g); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// Update handles PATCH /gear/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req GearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	g, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := req.apply(g); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(c.Request.Context(), g); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// StatusRequest changes an item's status.
type StatusRequest struct {
	Status models.GearStatus `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /gear/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if !req.Status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	g, err := h.repo.SetStatus(c.Request.Context(), middleware.TenantID(c), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// Delete handles DELETE /gear/:id. Items are retired.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.repo.SetStatus(c.Request.Context(), middleware.TenantID(c), id, models.GearStatusRetired); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History handles GET /gear/:id/history.
func (h *Handler) History(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)
	if _, err := h.repo.GetByID(c.Request.Context(), tenantID, id); err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.repo.ListAssignments(c.Request.Context(), tenantID, AssignmentFilter{GearID: &id})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func windowQuery(c *gin.Context) (scheduling.Window, bool) {
	from, ok := httpx.QueryTime(c, "start")
	if !ok {
		return scheduling.Window{}, false
	}
	to, ok := httpx.QueryTime(c, "end")
	if !ok {
		return scheduling.Window{}, false
	}
	if from == nil || to == nil {
		response.BadRequest(c, "start and end are required")
		return scheduling.Window{}, false
	}
	w := scheduling.Window{Start: *from, End: *to}
	if err := w.Validate(); err != nil {
		response.Error(c, err)
		return scheduling.Window{}, false
	}
	return w, true
}

// Available handles GET /gear/available?start=&end=.
func (h *Handler) Available(c *gin.Context) {
	w, ok := windowQuery(c)
	if !ok {
		return
	}
	list, err := h.repo.AvailableInWindow(c.Request.Context(), middleware.TenantID(c), w.Start, w.End)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AvailabilityRequest asks which items are free in a window.
type AvailabilityRequest struct {
	GearIDs        []uuid.UUID `json:"gear_ids" binding:"required,min=1"`
	Start          time.Time   `json:"start" binding:"required"`
	End            time.Time   `json:"end" binding:"required"`
	ExcludeEventID *uuid.UUID  `json:"exclude_event_id"`
}

// CheckAvailability handles POST /gear-assignments/availability.
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if err := (scheduling.Window{Start: req.Start, End: req.End}).Validate(); err != nil {
		response.Error(c, err)
		return
	}
	booked, err := h.repo.Booked(c.Request.Context(), middleware.TenantID(c), req.GearIDs, req.Start, req.End)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, Availability(req.GearIDs, booked, req.ExcludeEventID))
}
