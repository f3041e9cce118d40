package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenants"
	"github.com/commandcentered/backend/pkg/response"
)

// Store is the user persistence used by the handler.
type Store interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, tenantID, id uuid.UUID, role models.Role) (*models.User, error)
	RegisterTenant(ctx context.Context, t *models.Tenant, owner *models.User) error
}

// RegisterRequest is the body for POST /auth/register. It creates a tenant with its owner.
type RegisterRequest struct {
	TenantName string `json:"tenant_name" binding:"required,max=255"`
	TenantSlug string `json:"tenant_slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FullName   string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AddUserRequest is the body for POST /users.
type AddUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// UpdateRoleRequest is the body for PATCH /users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token  string         `json:"token"`
	User   models.User    `json:"user"`
	Tenant *models.Tenant `json:"tenant,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo Store, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	slug, err := tenants.NormalizeSlug(req.TenantSlug)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.Conflict(c, "email already registered")
		return
	} else if !apperr.IsNotFound(err) {
		response.Error(c, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	tenant := &models.Tenant{Name: strings.TrimSpace(req.TenantName), Slug: slug}
	user := &models.User{Email: req.Email, PasswordHash: hash, FullName: strings.TrimSpace(req.FullName)}
	if err := h.repo.RegisterTenant(c.Request.Context(), tenant, user); err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Generate(user.ID, tenant.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("tenant registered", zap.String("tenant_id", tenant.ID.String()), zap.String("slug", tenant.Slug))
	response.Created(c, TokenResponse{Token: token, User: *user, Tenant: tenant})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !CheckPassword(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.TenantID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: *user})
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// List handles GET /users. Returns the tenant's users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AddUser handles POST /users (owner/admin). The new user joins the caller's tenant.
func (h *Handler) AddUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() || role == models.RoleOwner {
		response.BadRequest(c, "invalid role")
		return
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	u := &models.User{
		TenantID:     middleware.TenantID(c),
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
	}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// UpdateRole handles PATCH /users/:id/role (owner/admin).
func (h *Handler) UpdateRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	if id == middleware.UserID(c) {
		response.BadRequest(c, "cannot change your own role")
		return
	}
	u, err := h.repo.UpdateRole(c.Request.Context(), middleware.TenantID(c), id, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}
