package operators

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/scheduling"
	"github.com/commandcentered/backend/internal/testutil"
)

func TestValidateSkills(t *testing.T) {
	assert.NoError(t, ValidateSkills([]models.OperatorSkill{{Name: "Camera", Level: 5}, {Name: " Audio ", Level: 1}}))
	assert.True(t, apperr.IsValidation(ValidateSkills([]models.OperatorSkill{{Name: "Camera", Level: 6}})))
	assert.True(t, apperr.IsValidation(ValidateSkills([]models.OperatorSkill{{Name: "Camera", Level: 3}, {Name: "camera", Level: 2}})))
	assert.True(t, apperr.IsValidation(ValidateSkills([]models.OperatorSkill{{Name: "  ", Level: 3}})))
}

func TestValidateAvailability(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start, end := day.Add(9*time.Hour), day.Add(12*time.Hour)

	assert.NoError(t, ValidateAvailability([]models.OperatorAvailability{{Date: day, Type: models.AvailabilityFullDay}}))
	assert.NoError(t, ValidateAvailability([]models.OperatorAvailability{{Date: day, Type: models.AvailabilityPartial, StartTime: &start, EndTime: &end}}))
	assert.True(t, apperr.IsValidation(ValidateAvailability([]models.OperatorAvailability{{Date: day, Type: models.AvailabilityPartial}})))
	assert.True(t, apperr.IsValidation(ValidateAvailability([]models.OperatorAvailability{{Date: day, Type: models.AvailabilityPartial, StartTime: &end, EndTime: &start}})))
	assert.True(t, apperr.IsValidation(ValidateAvailability([]models.OperatorAvailability{{Date: day, Type: "MAYBE"}})))
}

func TestBlackoutRequest(t *testing.T) {
	tenantID, opID := uuid.New(), uuid.New()
	b, err := BlackoutRequest{StartDate: "2026-07-01", EndDate: "2026-07-01"}.blackout(tenantID, opID)
	require.NoError(t, err)
	assert.Equal(t, b.StartDate, b.EndDate)

	_, err = BlackoutRequest{StartDate: "2026-07-02", EndDate: "2026-07-01"}.blackout(tenantID, opID)
	assert.True(t, apperr.IsValidation(err))

	_, err = BlackoutRequest{StartDate: "July 1", EndDate: "2026-07-01"}.blackout(tenantID, opID)
	assert.True(t, apperr.IsValidation(err))
}

type stubChecker struct {
	gotWindow  scheduling.Window
	gotExclude *uuid.UUID
}

func (s *stubChecker) CheckConflicts(_ context.Context, _, _ uuid.UUID, w scheduling.Window, exclude *uuid.UUID) (scheduling.ConflictReport, error) {
	s.gotWindow, s.gotExclude = w, exclude
	return scheduling.ConflictReport{HasConflict: true, Shifts: []scheduling.ShiftConflict{{ShiftName: "Main Shift"}}}, nil
}

func TestConflictsEndpoint(t *testing.T) {
	checker := &stubChecker{}
	h := NewHandler(nil, checker, nil)
	r := testutil.Router(uuid.New())
	r.GET("/operators/:id/conflicts", h.Conflicts)

	opID, shiftID := uuid.New(), uuid.New()
	w := testutil.Do(r, http.MethodGet, "/operators/"+opID.String()+"/conflicts?start=2026-04-18T09:00:00Z&end=2026-04-18T17:00:00Z&exclude_shift_id="+shiftID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report scheduling.ConflictReport
	require.NoError(t, testutil.Decode(w, &report))
	assert.True(t, report.HasConflict)
	assert.Equal(t, 8*time.Hour, checker.gotWindow.End.Sub(checker.gotWindow.Start))
	require.NotNil(t, checker.gotExclude)
	assert.Equal(t, shiftID, *checker.gotExclude)

	w = testutil.Do(r, http.MethodGet, "/operators/"+opID.String()+"/conflicts?start=2026-04-18T09:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRequiresName(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	r := testutil.Router(uuid.New())
	r.POST("/operators", h.Create)
	w := testutil.Do(r, http.MethodPost, "/operators", gin.H{"email": "a@b.co"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
