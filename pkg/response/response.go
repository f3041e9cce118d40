package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commandcentered/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: apperr.KindBadRequest.String()})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: "unauthorized"})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: "forbidden"})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: apperr.KindNotFound.String()})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Code: apperr.KindConflict.String()})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err, Code: "unavailable"})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: apperr.KindInternal.String()})
}

// Error maps a classified error to its status code. Unclassified errors are attached to the
// gin context for the request logger and reported as a generic 500.
func Error(c *gin.Context, err error) {
	switch kind := apperr.KindOf(err); kind {
	case apperr.KindNotFound:
		NotFound(c, err.Error())
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, Body{Success: false, Error: err.Error(), Code: kind.String()})
	case apperr.KindBadRequest:
		BadRequest(c, err.Error())
	case apperr.KindConflict:
		Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		Internal(c, "internal error")
	}
}

// InvalidBody sends 400 for a request body that failed binding.
func InvalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: "invalid request: " + err.Error(), Code: apperr.KindValidation.String()})
}
