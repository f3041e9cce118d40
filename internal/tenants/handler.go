package tenants

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/pkg/response"
)

// Handler handles tenant HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a tenants handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Current handles GET /tenant.
func (h *Handler) Current(c *gin.Context) {
	t, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// RenameRequest is the body for PATCH /tenant.
type RenameRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// Rename handles PATCH /tenant (owner only).
func (h *Handler) Rename(c *gin.Context) {
	var body RenameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.InvalidBody(c, err)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		response.BadRequest(c, "name must not be blank")
		return
	}
	t, err := h.repo.Rename(c.Request.Context(), middleware.TenantID(c), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}
