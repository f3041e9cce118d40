package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Store is the template persistence used by the handler. *Repository implements it.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, published *bool) ([]Template, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Template, error)
	GetPublished(ctx context.Context, tenantSlug, slug string) (*Template, error)
	SlugExists(ctx context.Context, tenantID uuid.UUID, slug string) (bool, error)
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountProposals(ctx context.Context, tenantID, id uuid.UUID) (int, error)
	TenantSlug(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// Handler handles template endpoints, including the public preview and quote.
type Handler struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a template handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// PublishedURL is the public path of a template. Template slugs are unique per tenant only.
func PublishedURL(tenantSlug, slug string) string {
	return "/public/" + tenantSlug + "/templates/" + slug
}

// Publish marks t published under tenantSlug. A template without elements cannot be published.
func Publish(t *Template, tenantSlug string, now time.Time) error {
	if len(t.Elements) == 0 {
		return apperr.BadRequest("cannot publish a template without elements")
	}
	if err := ValidateElements(t.Elements); err != nil {
		return err
	}
	t.IsPublished = true
	t.PublishedURL = PublishedURL(tenantSlug, t.Slug)
	t.PublishedAt = &now
	return nil
}

// TemplateRequest is the body for template create and update.
type TemplateRequest struct {
	Name        *string      `json:"name"`
	Slug        *string      `json:"slug"`
	Description *string      `json:"description"`
	Elements    *[]Element   `json:"elements"`
	Theme       *ThemeConfig `json:"theme_config"`
}

func (req *TemplateRequest) apply(t *Template) error {
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		t.Slug = strings.TrimSpace(*req.Slug)
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Theme != nil {
		t.Theme = *req.Theme
	}
	if req.Elements != nil {
		els := append([]Element(nil), (*req.Elements)...)
		sort.SliceStable(els, func(i, j int) bool { return els[i].Order < els[j].Order })
		if err := ValidateElements(els); err != nil {
			return err
		}
		t.Elements = renumber(els)
	}
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if !slugPattern.MatchString(t.Slug) {
		return apperr.Validation("slug must contain only lowercase letters, digits and hyphens")
	}
	if t.IsPublished && len(t.Elements) == 0 {
		return apperr.BadRequest("a published template must keep at least one element")
	}
	return nil
}

// List handles GET /templates?published=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), httpx.QueryBool(c, "published"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /templates/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Create handles POST /templates.
func (h *Handler) Create(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	t := Template{TenantID: middleware.TenantID(c), Elements: []Element{}}
	if err := req.apply(&t); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), &t); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Update handles PUT /templates/:id.
func (h *Handler) Update(c *gin.Context) {
	var req TemplateRequest
	h.edit(c, &req, func(t *Template) error {
		before := t.Slug
		if err := req.apply(t); err != nil {
			return err
		}
		if t.IsPublished && t.Slug != before {
			tenantSlug, err := h.repo.TenantSlug(c.Request.Context(), t.TenantID)
			if err != nil {
				return err
			}
			t.PublishedURL = PublishedURL(tenantSlug, t.Slug)
		}
		return nil
	})
}

// Publish handles POST /templates/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	h.edit(c, nil, func(t *Template) error {
		tenantSlug, err := h.repo.TenantSlug(c.Request.Context(), t.TenantID)
		if err != nil {
			return err
		}
		return Publish(t, tenantSlug, h.now())
	})
}

// Unpublish handles POST /templates/:id/unpublish.
func (h *Handler) Unpublish(c *gin.Context) {
	h.edit(c, nil, func(t *Template) error {
		t.IsPublished = false
		t.PublishedURL = ""
		t.PublishedAt = nil
		return nil
	})
}

// Duplicate handles POST /templates/:id/duplicate. The copy is unpublished.
func (h *Handler) Duplicate(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	src, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	slug, err := h.copySlug(ctx, tenantID, src.Slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	cp := Template{
		TenantID:    tenantID,
		Name:        src.Name + " (Copy)",
		Slug:        slug,
		Description: src.Description,
		Elements:    src.Elements,
		Theme:       src.Theme,
	}
	if err := h.repo.Create(ctx, &cp); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cp)
}

func (h *Handler) copySlug(ctx context.Context, tenantID uuid.UUID, slug string) (string, error) {
	base := slug + "-copy"
	candidate := base
	for n := 2; ; n++ {
		exists, err := h.repo.SlugExists(ctx, tenantID, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Delete handles DELETE /templates/:id. Templates with proposals are kept.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	if _, err := h.repo.GetByID(ctx, tenantID, id); err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.repo.CountProposals(ctx, tenantID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if n > 0 {
		response.Error(c, apperr.BadRequest("template is used by %d proposal(s); unpublish it instead", n))
		return
	}
	if err := h.repo.Delete(ctx, tenantID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddElementRequest is the body for POST /templates/:id/elements.
type AddElementRequest struct {
	Type     ElementType     `json:"type" binding:"required"`
	Config   json.RawMessage `json:"config"`
	Position *int            `json:"position"`
}

// AddElement handles POST /templates/:id/elements.
func (h *Handler) AddElement(c *gin.Context) {
	var req AddElementRequest
	h.edit(c, &req, func(t *Template) error {
		var cfg ElementConfig
		if len(req.Config) > 0 && string(req.Config) != "null" {
			var err error
			if cfg, err = decodeConfig(req.Type, req.Config); err != nil {
				return err
			}
		}
		els, _, err := AddElement(t.Elements, req.Type, cfg, req.Position)
		if err != nil {
			return err
		}
		t.Elements = els
		return nil
	})
}

// RemoveElement handles DELETE /templates/:id/elements/:elementId.
func (h *Handler) RemoveElement(c *gin.Context) {
	h.edit(c, nil, func(t *Template) error {
		els, err := RemoveElement(t.Elements, c.Param("elementId"))
		if err != nil {
			return err
		}
		if t.IsPublished && len(els) == 0 {
			return apperr.BadRequest("a published template must keep at least one element")
		}
		t.Elements = els
		return nil
	})
}

// ReorderRequest lists every element id in the new order.
type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Reorder handles PUT /templates/:id/elements/order.
func (h *Handler) Reorder(c *gin.Context) {
	var req ReorderRequest
	h.edit(c, &req, func(t *Template) error {
		els, err := Reorder(t.Elements, req.IDs)
		if err != nil {
			return err
		}
		t.Elements = els
		return nil
	})
}

// UpdateSettings handles PATCH /templates/:id/elements/:elementId/settings. The body is a partial
// settings object.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch json.RawMessage
	h.edit(c, &patch, func(t *Template) error {
		el, err := Find(t.Elements, c.Param("elementId"))
		if err != nil {
			return err
		}
		if el, err = MergeSettings(el, patch); err != nil {
			return err
		}
		t.Elements, err = ReplaceElement(t.Elements, el)
		return err
	})
}

// ListEditRequest edits one list-valued setting.
type ListEditRequest struct {
	Op    ListOp          `json:"op" binding:"required"`
	Index int             `json:"index"`
	Item  json.RawMessage `json:"item"`
}

// EditList handles POST /templates/:id/elements/:elementId/lists/:key.
func (h *Handler) EditList(c *gin.Context) {
	var req ListEditRequest
	h.edit(c, &req, func(t *Template) error {
		el, err := Find(t.Elements, c.Param("elementId"))
		if err != nil {
			return err
		}
		if el, err = EditList(el, c.Param("key"), req.Op, req.Index, req.Item); err != nil {
			return err
		}
		t.Elements, err = ReplaceElement(t.Elements, el)
		return err
	})
}

// edit binds body (when non-nil), loads the template, applies change and saves it.
func (h *Handler) edit(c *gin.Context, body interface{}, change func(*Template) error) {
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
	t, err := h.repo.GetByID(ctx, middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := change(t); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(ctx, t); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// GetPublished handles GET /public/:tenant/templates/:slug.
func (h *Handler) GetPublished(c *gin.Context) {
	t, err := h.repo.GetPublished(c.Request.Context(), c.Param("tenant"), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Quote handles POST /public/:tenant/templates/:slug/quote.
func (h *Handler) Quote(c *gin.Context) {
	var values Values
	if err := c.ShouldBindJSON(&values); err != nil {
		response.InvalidBody(c, err)
		return
	}
	t, err := h.repo.GetPublished(c.Request.Context(), c.Param("tenant"), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, CalculatePricing(t.Elements, values))
}
