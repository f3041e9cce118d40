package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/middleware"
)

// EventInvalidate tells clients that cached data for a resource is stale.
const EventInvalidate = "invalidate"

// Invalidation is the payload of an invalidate event.
type Invalidation struct {
	Resource string `json:"resource"`
	Method   string `json:"method"`
	Path     string `json:"path"`
}

// Notifier is satisfied by *Hub.
type Notifier interface {
	Notify(tenantID uuid.UUID, event string, payload interface{})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// ResourceOf returns the first path segment: "/events/42/shifts" is "events".
func ResourceOf(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}

// InvalidateOnWrite notifies the caller's tenant after every successful write. It must run behind
// middleware.JWT.
func InvalidateOnWrite(n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if !isWrite(c.Request.Method) {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status > 299 {
			return
		}
		v, ok := c.Get(middleware.ContextTenantID)
		if !ok {
			return
		}
		tenantID, ok := v.(uuid.UUID)
		if !ok || tenantID == uuid.Nil {
			return
		}
		path := c.Request.URL.Path
		n.Notify(tenantID, EventInvalidate, Invalidation{
			Resource: ResourceOf(path),
			Method:   c.Request.Method,
			Path:     path,
		})
	}
}
