// Package dashboard serves the landing page: headline counts, an activity feed, the next events
// and each user's widget layout.
package dashboard

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

const (
	defaultUpcoming = 5
	maxUpcoming     = 50
	defaultActivity = 20
	maxActivity     = 100
)

// Widget IDs known to the client.
const (
	WidgetStats          = "stats"
	WidgetUpcomingEvents = "upcoming_events"
	WidgetRecentActivity = "recent_activity"
	WidgetRevenue        = "revenue"
	WidgetDeliverables   = "deliverables"
	WidgetGear           = "gear"
)

var widgetOrder = []string{WidgetStats, WidgetUpcomingEvents, WidgetRecentActivity, WidgetRevenue, WidgetDeliverables, WidgetGear}

// Action says whether an activity row was created or edited last.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Activity is one row of the recent activity feed.
type Activity struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
	Action Action    `json:"action"`
	At     time.Time `json:"at"`
}

// Stats are the headline counters.
type Stats struct {
	UpcomingEvents        int             `json:"upcoming_events"`
	ActiveOperators       int             `json:"active_operators"`
	AvailableGear         int             `json:"available_gear"`
	PendingDeliverables   int             `json:"pending_deliverables"`
	OpenLeads             int             `json:"open_leads"`
	MonthProjectedRevenue decimal.Decimal `json:"month_projected_revenue"`
	MonthActualRevenue    decimal.Decimal `json:"month_actual_revenue"`
}

// Widget is one tile of a user's layout.
type Widget struct {
	ID      string `json:"id" binding:"required,oneof=stats upcoming_events recent_activity revenue deliverables gear"`
	Visible bool   `json:"visible"`
	Order   int    `json:"order" binding:"gte=0"`
	Size    string `json:"size" binding:"omitempty,oneof=small medium large"`
}

type Preferences struct {
	Widgets []Widget `json:"widgets" binding:"required,dive"`
}

// DefaultPreferences shows every widget in the standard order.
func DefaultPreferences() *Preferences {
	p := &Preferences{}
	for i, id := range widgetOrder {
		p.Widgets = append(p.Widgets, Widget{ID: id, Visible: true, Order: i, Size: "medium"})
	}
	return p
}

type Store interface {
	UpcomingEventCount(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error)
	ActiveOperatorCount(ctx context.Context, tenantID uuid.UUID) (int, error)
	AvailableGearCount(ctx context.Context, tenantID uuid.UUID) (int, error)
	PendingDeliverableCount(ctx context.Context, tenantID uuid.UUID) (int, error)
	OpenLeadCount(ctx context.Context, tenantID uuid.UUID) (int, error)
	Revenue(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error)
	RecentActivity(ctx context.Context, tenantID uuid.UUID, limit int) ([]Activity, error)
	UpcomingEvents(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]models.Event, error)
	Preferences(ctx context.Context, tenantID, userID uuid.UUID) (*Preferences, error)
	SavePreferences(ctx context.Context, tenantID, userID uuid.UUID, p *Preferences) error
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

// LoadStats runs the counters concurrently. The first failure cancels the rest.
func LoadStats(ctx context.Context, repo Store, tenantID uuid.UUID, now time.Time) (*Stats, error) {
	var s Stats
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.UpcomingEvents, err = repo.UpcomingEventCount(ctx, tenantID, now)
		return err
	})
	g.Go(func() (err error) {
		s.ActiveOperators, err = repo.ActiveOperatorCount(ctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		s.AvailableGear, err = repo.AvailableGearCount(ctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		s.PendingDeliverables, err = repo.PendingDeliverableCount(ctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		s.OpenLeads, err = repo.OpenLeadCount(ctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		s.MonthProjectedRevenue, s.MonthActualRevenue, err = repo.Revenue(ctx, tenantID, monthStart, monthStart.AddDate(0, 1, 0))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Stats handles GET /dashboard/stats.
func (h *Handler) Stats(c *gin.Context) {
	s, err := LoadStats(c.Request.Context(), h.repo, middleware.TenantID(c), h.now().UTC())
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

func clamp(n, fallback, max int) int {
	if n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

// RecentActivity handles GET /dashboard/activity?limit=
func (h *Handler) RecentActivity(c *gin.Context) {
	limit := clamp(httpx.QueryInt(c, "limit", defaultActivity), defaultActivity, maxActivity)
	list, err := h.repo.RecentActivity(c.Request.Context(), middleware.TenantID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// UpcomingEvents handles GET /dashboard/upcoming?limit=
func (h *Handler) UpcomingEvents(c *gin.Context) {
	limit := clamp(httpx.QueryInt(c, "limit", defaultUpcoming), defaultUpcoming, maxUpcoming)
	list, err := h.repo.UpcomingEvents(c.Request.Context(), middleware.TenantID(c), h.now(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetPreferences handles GET /dashboard/preferences. Users without a saved layout get the default.
func (h *Handler) GetPreferences(c *gin.Context) {
	p, err := h.repo.Preferences(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if p == nil {
		p = DefaultPreferences()
	}
	response.OK(c, p)
}

// PutPreferences handles PUT /dashboard/preferences.
func (h *Handler) PutPreferences(c *gin.Context) {
	var p Preferences
	if err := c.ShouldBindJSON(&p); err != nil {
		response.InvalidBody(c, err)
		return
	}
	seen := map[string]bool{}
	for _, w := range p.Widgets {
		if seen[w.ID] {
			response.Error(c, apperr.Validation("widget %q listed twice", w.ID))
			return
		}
		seen[w.ID] = true
	}
	if err := h.repo.SavePreferences(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c), &p); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}
