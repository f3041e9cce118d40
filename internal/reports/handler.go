package reports

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

type Store interface {
	RevenueEvents(ctx context.Context, tenantID uuid.UUID, from, to time.Time, withCancelled bool) ([]models.Event, error)
	UtilizationGear(ctx context.Context, tenantID uuid.UUID) ([]models.Gear, error)
	AssignmentWindows(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Window, error)
	PayAssignments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.ShiftAssignment, error)
	DeliverableCounts(ctx context.Context, tenantID uuid.UUID, now time.Time) (*DeliverableCounts, error)
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

// Range is an inclusive span of calendar days.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// end is the exclusive upper bound: midnight after To.
func (r Range) end() time.Time { return day(r.To).AddDate(0, 0, 1) }

// dateRange reads ?from=&to=. Both default to the current calendar year.
func (h *Handler) dateRange(c *gin.Context) (Range, bool) {
	now := h.now().UTC()
	rng := Range{
		From: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(now.Year(), 12, 31, 0, 0, 0, 0, time.UTC),
	}
	from, ok := httpx.QueryTime(c, "from")
	if !ok {
		return rng, false
	}
	to, ok := httpx.QueryTime(c, "to")
	if !ok {
		return rng, false
	}
	if from != nil {
		rng.From = day(*from)
	}
	if to != nil {
		rng.To = day(*to)
	}
	if rng.To.Before(rng.From) {
		response.BadRequest(c, "to must not be before from")
		return rng, false
	}
	return rng, true
}

// Revenue handles GET /reports/revenue?from=&to=&group_by=
func (h *Handler) Revenue(c *gin.Context) {
	rng, ok := h.dateRange(c)
	if !ok {
		return
	}
	g := GroupBy(c.DefaultQuery("group_by", string(GroupMonth)))
	if !g.Valid() {
		response.BadRequest(c, "group_by must be one of month, week, day, event_type, status")
		return
	}
	events, err := h.repo.RevenueEvents(c.Request.Context(), middleware.TenantID(c), rng.From, rng.end(), g == GroupStatus)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := GroupRevenue(events, g)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"range": rng, "report": report})
}

// GearUtilization handles GET /reports/gear-utilization?from=&to=
func (h *Handler) GearUtilization(c *gin.Context) {
	rng, ok := h.dateRange(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	gear, err := h.repo.UtilizationGear(ctx, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	windows, err := h.repo.AssignmentWindows(ctx, tenantID, rng.From, rng.end())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"range": rng, "items": GearUtilization(gear, windows, rng.From, rng.To)})
}

// OperatorPay handles GET /reports/operator-pay?from=&to=
func (h *Handler) OperatorPay(c *gin.Context) {
	rng, ok := h.dateRange(c)
	if !ok {
		return
	}
	assignments, err := h.repo.PayAssignments(c.Request.Context(), middleware.TenantID(c), rng.From, rng.end())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"range": rng, "operators": OperatorPayTotals(assignments)})
}

// Deliverables handles GET /reports/deliverables.
func (h *Handler) Deliverables(c *gin.Context) {
	counts, err := h.repo.DeliverableCounts(c.Request.Context(), middleware.TenantID(c), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counts)
}
