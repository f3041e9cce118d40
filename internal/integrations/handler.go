package integrations

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

const (
	driveNotConfigured      = "Google Drive is not configured"
	livestreamNotConfigured = "livestream integration is not configured"
	leadFinderNotConfigured = "lead finder is not configured"
	defaultLeadSource       = "Lead Finder"
)

type EventStore interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Event, error)
	SetDriveFolder(ctx context.Context, tenantID, id uuid.UUID, folderID, url string) error
}

type LeadStore interface {
	KnownOrganizations(ctx context.Context, tenantID uuid.UUID, names []string) (map[string]bool, error)
	CreateLeads(ctx context.Context, leads []*models.Lead) error
}

// Handler serves the integration endpoints. Any client may be nil.
type Handler struct {
	drive  FolderCreator
	live   LivestreamLister
	orgs   OrganizationSearcher
	events EventStore
	leads  LeadStore
	logger *zap.Logger
}

func NewHandler(drive FolderCreator, live LivestreamLister, orgs OrganizationSearcher, events EventStore, leads LeadStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{drive: drive, live: live, orgs: orgs, events: events, leads: leads, logger: logger}
}

// Status handles GET /integrations/status.
func (h *Handler) Status(c *gin.Context) {
	response.OK(c, gin.H{
		"google_drive": h.drive != nil,
		"livestreams":  h.live != nil,
		"lead_finder":  h.orgs != nil,
	})
}

// DriveFolderResult is the body of a drive folder request.
type DriveFolderResult struct {
	Configured bool   `json:"configured"`
	Created    bool   `json:"created"`
	FolderID   string `json:"folder_id,omitempty"`
	FolderURL  string `json:"folder_url,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CreateDriveFolder handles POST /events/:id/drive-folder. An event that already has a folder keeps it.
func (h *Handler) CreateDriveFolder(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	tenantID := middleware.TenantID(c)
	event, err := h.events.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if event.DriveFolderID != "" {
		response.OK(c, DriveFolderResult{Configured: h.drive != nil, FolderID: event.DriveFolderID, FolderURL: event.DriveFolderURL})
		return
	}
	if h.drive == nil {
		response.OK(c, DriveFolderResult{Message: driveNotConfigured})
		return
	}
	name := event.LoadInTime.UTC().Format("2006-01-02") + " " + event.Name
	folder, err := h.drive.CreateFolder(c.Request.Context(), name)
	if err != nil {
		h.logger.Warn("drive folder creation failed", zap.String("event_id", id.String()), zap.Error(err))
		response.OK(c, DriveFolderResult{Configured: true, Message: "could not create the Drive folder, try again later"})
		return
	}
	if err := h.events.SetDriveFolder(c.Request.Context(), tenantID, id, folder.ID, folder.URL); err != nil {
		h.logger.Error("drive folder created but not saved", zap.String("event_id", id.String()),
			zap.String("folder_id", folder.ID), zap.Error(err))
		response.OK(c, DriveFolderResult{Configured: true, Created: true, FolderID: folder.ID, FolderURL: folder.URL,
			Message: "folder created but not linked to the event"})
		return
	}
	response.OK(c, DriveFolderResult{Configured: true, Created: true, FolderID: folder.ID, FolderURL: folder.URL})
}

// ListLivestreams handles GET /integrations/livestreams.
func (h *Handler) ListLivestreams(c *gin.Context) {
	if h.live == nil {
		response.OK(c, gin.H{"configured": false, "livestreams": []Livestream{}, "message": livestreamNotConfigured})
		return
	}
	list, err := h.live.ListLivestreams(c.Request.Context())
	if err != nil {
		h.logger.Warn("listing livestreams failed", zap.Error(err))
		response.OK(c, gin.H{"configured": true, "livestreams": []Livestream{}, "message": "livestream platform is unavailable"})
		return
	}
	response.OK(c, gin.H{"configured": true, "livestreams": list})
}

// SearchOrganizations handles POST /integrations/lead-finder/search. Organizations already in the
// CRM are left out unless skip_existing is false.
func (h *Handler) SearchOrganizations(c *gin.Context) {
	var q OrganizationQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if h.orgs == nil {
		response.OK(c, gin.H{"configured": false, "results": []Organization{}, "message": leadFinderNotConfigured})
		return
	}
	results, err := h.orgs.SearchOrganizations(c.Request.Context(), q)
	if err != nil {
		h.logger.Warn("organization search failed", zap.Error(err))
		response.OK(c, gin.H{"configured": true, "results": []Organization{}, "message": "lead finder is unavailable"})
		return
	}
	if q.SkipExisting == nil || *q.SkipExisting {
		results, err = h.withoutKnown(c.Request.Context(), middleware.TenantID(c), results)
		if err != nil {
			response.Error(c, err)
			return
		}
	}
	response.OK(c, gin.H{"configured": true, "results": results})
}

func (h *Handler) withoutKnown(ctx context.Context, tenantID uuid.UUID, orgs []Organization) ([]Organization, error) {
	if len(orgs) == 0 {
		return orgs, nil
	}
	names := make([]string, 0, len(orgs))
	for _, o := range orgs {
		names = append(names, o.Name)
	}
	known, err := h.leads.KnownOrganizations(ctx, tenantID, names)
	if err != nil {
		return nil, err
	}
	out := make([]Organization, 0, len(orgs))
	for _, o := range orgs {
		if !known[strings.ToLower(strings.TrimSpace(o.Name))] {
			out = append(out, o)
		}
	}
	return out, nil
}

// ExportOrganization is one search hit chosen for import.
type ExportOrganization struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Website  string   `json:"website"`
	Tags     []string `json:"tags"`
}

// ExportRequest is the body for POST /integrations/lead-finder/export.
type ExportRequest struct {
	Organizations []ExportOrganization `json:"organizations" binding:"required,min=1,max=100,dive"`
	Source        string               `json:"source"`
}

// ExportToCRM creates NEW leads from search hits. Organizations already present are skipped.
func (h *Handler) ExportToCRM(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	tenantID := middleware.TenantID(c)
	names := make([]string, 0, len(req.Organizations))
	for _, o := range req.Organizations {
		names = append(names, o.Name)
	}
	known, err := h.leads.KnownOrganizations(c.Request.Context(), tenantID, names)
	if err != nil {
		response.Error(c, err)
		return
	}
	if known == nil {
		known = map[string]bool{}
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultLeadSource
	}

	leads := make([]*models.Lead, 0, len(req.Organizations))
	skipped := 0
	for _, o := range req.Organizations {
		key := strings.ToLower(strings.TrimSpace(o.Name))
		if known[key] {
			skipped++
			continue
		}
		known[key] = true
		details, err := json.Marshal(map[string]interface{}{"location": o.Location, "website": o.Website, "tags": o.Tags})
		if err != nil {
			response.Error(c, err)
			return
		}
		leads = append(leads, &models.Lead{
			TenantID:      tenantID,
			Organization:  strings.TrimSpace(o.Name),
			ContactName:   strings.TrimSpace(o.Name),
			Email:         o.Email,
			Phone:         o.Phone,
			Source:        source,
			SourceDetails: details,
			Status:        models.LeadStatusNew,
		})
	}
	if len(leads) > 0 {
		if err := h.leads.CreateLeads(c.Request.Context(), leads); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.Created(c, gin.H{"created": len(leads), "skipped": skipped, "leads": leads})
}
