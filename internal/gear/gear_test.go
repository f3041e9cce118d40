package gear

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

func TestAvailability(t *testing.T) {
	camera, lens, mic := uuid.New(), uuid.New(), uuid.New()
	recital, gala := uuid.New(), uuid.New()
	booked := []models.GearAssignment{
		{GearID: camera, EventID: recital},
		{GearID: lens, EventID: gala},
		{GearID: lens, EventID: recital},
	}

	got := Availability([]uuid.UUID{camera, lens, mic, camera}, booked, nil)
	require.Len(t, got, 3)
	assert.False(t, got[0].Available)
	assert.Len(t, got[1].Conflicts, 2)
	assert.True(t, got[2].Available)
	assert.NotNil(t, got[2].Conflicts)

	got = Availability([]uuid.UUID{camera, lens}, booked, &recital)
	assert.True(t, got[0].Available)
	require.Len(t, got[1].Conflicts, 1)
	assert.Equal(t, gala, got[1].Conflicts[0].EventID)
}

func TestGearRequestValidation(t *testing.T) {
	name := "FX6"
	bad := models.GearCategory("TRIPOD")
	g := &models.Gear{Category: models.GearCategoryCamera, Status: models.GearStatusAvailable}
	require.NoError(t, (&GearRequest{Name: &name}).apply(g))
	assert.Equal(t, "FX6", g.Name)

	assert.True(t, apperr.IsValidation((&GearRequest{Category: &bad}).apply(g)))

	empty := " "
	assert.True(t, apperr.IsValidation((&GearRequest{Name: &empty}).apply(&models.Gear{})))
}

func TestAvailableRequiresWindow(t *testing.T) {
	r := testutil.Router(uuid.New())
	h := NewHandler(nil, nil)
	r.GET("/gear/available", h.Available)

	w := testutil.Do(r, http.MethodGet, "/gear/available?start=2026-05-02", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodGet, "/gear/available?start=2026-05-02&end=2026-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAvailabilityRejectsEmptyWindow(t *testing.T) {
	r := testutil.Router(uuid.New())
	h := NewHandler(nil, nil)
	r.POST("/gear-assignments/availability", h.CheckAvailability)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	w := testutil.Do(r, http.MethodPost, "/gear-assignments/availability", gin.H{
		"gear_ids": []uuid.UUID{uuid.New()}, "start": at, "end": at,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
