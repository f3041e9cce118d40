package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2025-03-04T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	d, err := ParseTime("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseTime("04/03/2025")
	assert.Error(t, err)
}

func TestParamUUIDWritesBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x/:id", func(c *gin.Context) {
		if _, ok := ParamUUID(c, "id"); ok {
			c.Status(http.StatusOK)
		}
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/7f1d6a4e-8a6b-4c55-9d86-0b1e7c1c1f00", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
