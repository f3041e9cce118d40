// Package httpx holds request parsing helpers shared by the gin handlers.
package httpx

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commandcentered/backend/pkg/response"
)

// DateLayout is the wire format of date-only values.
const DateLayout = "2006-01-02"

// ParamUUID parses a path parameter. On failure it writes a 400 and returns false.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// QueryUUID parses an optional query parameter. On a malformed value it writes a 400 and returns false.
func QueryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// QueryTime parses an optional RFC3339 or date-only query parameter.
func QueryTime(c *gin.Context, name string) (*time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	t, err := ParseTime(v)
	if err != nil {
		response.BadRequest(c, "invalid "+name+": expected RFC3339 or YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// ParseTime accepts RFC3339 timestamps and YYYY-MM-DD dates (midnight UTC).
func ParseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(DateLayout, v)
}

// QueryInt parses an optional integer query parameter, returning fallback when absent or malformed.
func QueryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(c *gin.Context, name string) *bool {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
