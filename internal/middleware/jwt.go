package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commandcentered/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextTenantID is the key for the caller's tenant ID in gin context.
	ContextTenantID = "tenant_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// Identity is the authenticated caller carried by a bearer token.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
	Role     string
}

// Authenticator validates a raw bearer token.
type Authenticator interface {
	Authenticate(token string) (Identity, error)
}

// JWT returns a middleware that validates the bearer token and sets the caller's identity in context.
// There is no anonymous or default tenant: a request without a valid token carrying a tenant is rejected.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		id, err := auth.Authenticate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if id.TenantID == uuid.Nil || id.UserID == uuid.Nil {
			response.Unauthorized(c, "token is not bound to a tenant")
			c.Abort()
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// SetIdentity stores id in the gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ContextUserID, id.UserID)
	c.Set(ContextTenantID, id.TenantID)
	c.Set(ContextUserRole, id.Role)
	c.Set(ContextUserEmail, id.Email)
}

// TenantID returns the authenticated caller's tenant. Routes using it sit behind JWT.
func TenantID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextTenantID).(uuid.UUID)
}

// UserID returns the authenticated caller's user ID.
func UserID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}
