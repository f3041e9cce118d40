package events

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
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

// Store is the event persistence used by the handler.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Event, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.EventStatus) (*models.Event, error)
	MonthView(ctx context.Context, tenantID uuid.UUID, year int, month time.Month) ([]models.CalendarEvent, error)
	RequireClient(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) error
}

// ShiftLister loads an event's shifts with their assignments.
type ShiftLister interface {
	ListByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]models.Shift, error)
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   Store
	shifts ShiftLister
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo Store, shifts ShiftLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, shifts: shifts, logger: logger}
}

// EventRequest is the body for POST /events and PATCH /events/:id. Absent fields are left unchanged on update.
type EventRequest struct {
	Name             *string              `json:"name"`
	EventType        *models.EventType    `json:"event_type"`
	Status           *models.EventStatus  `json:"status"`
	VenueName        *string              `json:"venue_name"`
	VenueAddress     *string              `json:"venue_address"`
	LoadInTime       *time.Time           `json:"load_in_time"`
	LoadOutTime      *time.Time           `json:"load_out_time"`
	ClientID         *uuid.UUID           `json:"client_id"`
	ClientName       *string              `json:"client_name"`
	ClientEmail      *string              `json:"client_email"`
	ClientPhone      *string              `json:"client_phone"`
	ProjectedRevenue *decimal.NullDecimal `json:"projected_revenue"`
	ActualRevenue    *decimal.NullDecimal `json:"actual_revenue"`
	Hotel            *models.EventHotel   `json:"hotel"`
	ChatGroupID      *string              `json:"chat_group_id"`
	LivestreamID     *string              `json:"livestream_id"`
	Notes            *string              `json:"notes"`
}

func (req *EventRequest) apply(e *models.Event) {
	if req.Name != nil {
		e.Name = strings.TrimSpace(*req.Name)
	}
	if req.EventType != nil {
		e.EventType = *req.EventType
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
	if req.VenueName != nil {
		e.VenueName = *req.VenueName
	}
	if req.VenueAddress != nil {
		e.VenueAddress = *req.VenueAddress
	}
	if req.LoadInTime != nil {
		e.LoadInTime = *req.LoadInTime
	}
	if req.LoadOutTime != nil {
		e.LoadOutTime = *req.LoadOutTime
	}
	if req.ClientID != nil {
		e.ClientID = req.ClientID
	}
	if req.ClientName != nil {
		e.ClientName = *req.ClientName
	}
	if req.ClientEmail != nil {
		e.ClientEmail = *req.ClientEmail
	}
	if req.ClientPhone != nil {
		e.ClientPhone = *req.ClientPhone
	}
	if req.ProjectedRevenue != nil {
		e.ProjectedRevenue = *req.ProjectedRevenue
	}
	if req.ActualRevenue != nil {
		e.ActualRevenue = *req.ActualRevenue
	}
	if req.Hotel != nil {
		e.Hotel = *req.Hotel
	}
	if req.ChatGroupID != nil {
		e.ChatGroupID = *req.ChatGroupID
	}
	if req.LivestreamID != nil {
		e.LivestreamID = *req.LivestreamID
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
}

// Validate checks an event before it is written.
func Validate(e *models.Event) error {
	if e.Name == "" {
		return apperr.Validation("name is required")
	}
	if !e.EventType.Valid() {
		return apperr.Validation("invalid event type %q", e.EventType)
	}
	if !e.Status.Valid() {
		return apperr.Validation("invalid status %q", e.Status)
	}
	if e.LoadInTime.IsZero() || e.LoadOutTime.IsZero() {
		return apperr.Validation("load_in_time and load_out_time are required")
	}
	if !e.LoadOutTime.After(e.LoadInTime) {
		return apperr.Validation("load_out_time must be after load_in_time")
	}
	for _, r := range []decimal.NullDecimal{e.ProjectedRevenue, e.ActualRevenue} {
		if r.Valid && r.Decimal.IsNegative() {
			return apperr.Validation("revenue must not be negative")
		}
	}
	if h := e.Hotel; h.HasHotel && h.CheckIn != nil && h.CheckOut != nil && h.CheckOut.Before(*h.CheckIn) {
		return apperr.Validation("hotel check-out must not be before check-in")
	}
	return nil
}

// List handles GET /events?status=&month=YYYY-MM&from=&to=.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if s := c.Query("status"); s != "" {
		status := models.EventStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &status
	}
	if m := c.Query("month"); m != "" {
		start, err := time.Parse("2006-01", m)
		if err != nil {
			response.BadRequest(c, "month must be YYYY-MM")
			return
		}
		end := start.AddDate(0, 1, 0)
		f.From, f.To = &start, &end
	}
	from, ok := httpx.QueryTime(c, "from")
	if !ok {
		return
	}
	to, ok := httpx.QueryTime(c, "to")
	if !ok {
		return
	}
	if from != nil {
		f.From = from
	}
	if to != nil {
		f.To = to
	}
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id. The response includes shifts and their assignments.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)
	e, err := h.repo.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.shifts != nil {
		shifts, err := h.shifts.ListByEvent(c.Request.Context(), tenantID, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		e.Shifts = shifts
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	e := &models.Event{
		TenantID:  middleware.TenantID(c),
		EventType: models.EventTypeOther,
		Status:    models.EventStatusTentative,
	}
	req.apply(e)
	if err := Validate(e); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.RequireClient(c.Request.Context(), e.TenantID, e.ClientID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	e, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.apply(e)
	if err := Validate(e); err != nil {
		response.Error(c, err)
		return
	}
	if req.ClientID != nil {
		if err := h.repo.RequireClient(ctx, tenantID, e.ClientID); err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := h.repo.Update(ctx, e); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id. Events are cancelled, not removed.
func (h *Handler) Delete(c *gin.Context) {
	h.setStatus(c, models.EventStatusCancelled)
}

// Archive handles POST /events/:id/archive.
func (h *Handler) Archive(c *gin.Context) {
	h.setStatus(c, models.EventStatusArchived)
}

func (h *Handler) setStatus(c *gin.Context, status models.EventStatus) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	e, err := h.repo.SetStatus(c.Request.Context(), middleware.TenantID(c), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("event status changed", zap.String("event_id", id.String()), zap.String("status", string(status)))
	response.OK(c, e)
}

// Calendar handles GET /events/calendar?year=&month=.
func (h *Handler) Calendar(c *gin.Context) {
	now := time.Now()
	year := httpx.QueryInt(c, "year", now.Year())
	month := httpx.QueryInt(c, "month", int(now.Month()))
	if month < 1 || month > 12 {
		response.BadRequest(c, "month must be 1-12")
		return
	}
	list, err := h.repo.MonthView(c.Request.Context(), middleware.TenantID(c), year, time.Month(month))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
