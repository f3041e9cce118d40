// Package testutil has helpers for handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/middleware"
)

// Router returns a gin engine that authenticates every request as a member of tenantID.
func Router(tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, middleware.Identity{UserID: uuid.New(), TenantID: tenantID, Role: "owner", Email: "owner@example.com"})
	})
	return r
}

// RouterAs returns a gin engine that authenticates every request as userID in tenantID.
func RouterAs(tenantID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, middleware.Identity{UserID: userID, TenantID: tenantID, Role: "member", Email: "member@example.com"})
	})
	return r
}

// Do sends a request with an optional JSON body.
func Do(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the data field of a response envelope into v.
func Decode(w *httptest.ResponseRecorder, v interface{}) error {
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		return err
	}
	return json.Unmarshal(body.Data, v)
}
