package reports

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestPeriodKey(t *testing.T) {
	cases := []struct {
		at   time.Time
		g    GroupBy
		want string
	}{
		{date(2026, 3, 14, 9), GroupMonth, "2026-03"},
		{date(2026, 3, 14, 9), GroupDay, "2026-03-14"},
		{date(2026, 1, 1, 9), GroupWeek, "2026-W01"},
		// 2027-01-01 is a Friday, so it belongs to the last ISO week of 2026.
		{date(2027, 1, 1, 9), GroupWeek, "2026-W53"},
		{date(2024, 12, 30, 9), GroupWeek, "2025-W01"},
	}
	for _, tc := range cases {
		got, err := PeriodKey(tc.at, tc.g)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.at.String())
	}
	_, err := PeriodKey(time.Now(), GroupStatus)
	assert.True(t, apperr.IsValidation(err))
}

func TestGroupRevenueSameMonth(t *testing.T) {
	events := []models.Event{
		{LoadInTime: date(2026, 5, 2, 8), ProjectedRevenue: money("100"), ActualRevenue: money("80")},
		{LoadInTime: date(2026, 5, 20, 8), ProjectedRevenue: money("50"), ActualRevenue: money("50")},
	}
	report, err := GroupRevenue(events, GroupMonth)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "2026-05", row.Key)
	assert.True(t, decimal.NewFromInt(150).Equal(row.ProjectedRevenue))
	assert.True(t, decimal.NewFromInt(130).Equal(row.ActualRevenue))
	assert.True(t, decimal.NewFromInt(-20).Equal(row.Variance))
	assert.Equal(t, 2, row.EventCount)
}

func TestGroupRevenueByCategorySortedAndNullAsZero(t *testing.T) {
	events := []models.Event{
		{EventType: models.EventTypeRecital, LoadInTime: date(2026, 6, 1, 8), ProjectedRevenue: money("1200")},
		{EventType: models.EventTypeConcert, LoadInTime: date(2026, 6, 2, 8), ActualRevenue: money("900.50")},
		{EventType: models.EventTypeRecital, LoadInTime: date(2026, 7, 1, 8), ProjectedRevenue: money("800"), ActualRevenue: money("850")},
	}
	report, err := GroupRevenue(events, GroupEventType)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "CONCERT", report.Rows[0].Key)
	assert.True(t, decimal.RequireFromString("900.50").Equal(report.Rows[0].Variance))
	assert.Equal(t, "RECITAL", report.Rows[1].Key)
	assert.True(t, decimal.NewFromInt(-1150).Equal(report.Rows[1].Variance))
	assert.True(t, decimal.RequireFromString("-249.50").Equal(report.Variance))

	_, err = GroupRevenue(events, "quarter")
	assert.True(t, apperr.IsValidation(err))
}

func TestGearUtilizationThreeOfTenDays(t *testing.T) {
	camera := models.Gear{ID: uuid.New(), Name: "FX6 A-cam", Category: models.GearCategoryCamera}
	windows := []Window{{GearID: camera.ID, Start: date(2026, 4, 3, 7), End: date(2026, 4, 5, 23)}}

	rows := GearUtilization([]models.Gear{camera}, windows, date(2026, 4, 1, 0), date(2026, 4, 10, 0))
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].DaysAssigned)
	assert.Equal(t, 10, rows[0].TotalDays)
	assert.Equal(t, "30.00", rows[0].UtilizationPercent.StringFixed(2))
}

func TestGearUtilizationDistinctClampedDays(t *testing.T) {
	g := models.Gear{ID: uuid.New(), Name: "Shure kit"}
	idle := models.Gear{ID: uuid.New(), Name: "Spare tripod"}
	windows := []Window{
		// Starts before the range; only Apr 1-2 count.
		{GearID: g.ID, Start: date(2026, 3, 30, 8), End: date(2026, 4, 2, 20)},
		// Overlaps Apr 2 again.
		{GearID: g.ID, Start: date(2026, 4, 2, 6), End: date(2026, 4, 2, 12)},
		// Ends exactly at midnight, so Apr 3 is not touched.
		{GearID: g.ID, Start: date(2026, 4, 2, 18), End: date(2026, 4, 3, 0)},
	}
	rows := GearUtilization([]models.Gear{idle, g}, windows, date(2026, 4, 1, 0), date(2026, 4, 3, 0))
	require.Len(t, rows, 2)
	assert.Equal(t, g.ID, rows[0].GearID)
	assert.Equal(t, 2, rows[0].DaysAssigned)
	assert.Equal(t, "66.67", rows[0].UtilizationPercent.StringFixed(2))
	assert.Equal(t, 0, rows[1].DaysAssigned)
}

func TestDaysInRange(t *testing.T) {
	assert.Equal(t, 1, DaysInRange(date(2026, 1, 1, 0), date(2026, 1, 1, 23)))
	assert.Equal(t, 31, DaysInRange(date(2026, 1, 1, 0), date(2026, 1, 31, 0)))
	assert.Equal(t, 0, DaysInRange(date(2026, 1, 3, 0), date(2026, 1, 1, 0)))
}

func TestOperatorPayTotals(t *testing.T) {
	ana, ben := uuid.New(), uuid.New()
	rows := OperatorPayTotals([]models.ShiftAssignment{
		{OperatorID: ana, OperatorName: "Ana", CalculatedPay: decimal.NewFromInt(400), EstimatedHours: money("8")},
		{OperatorID: ben, OperatorName: "Ben", CalculatedPay: decimal.NewFromInt(300), ActualHours: money("5.5"), EstimatedHours: money("6")},
		{OperatorID: ana, OperatorName: "Ana", CalculatedPay: decimal.NewFromInt(250)},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, ana, rows[0].OperatorID)
	assert.Equal(t, 2, rows[0].ShiftCount)
	assert.True(t, decimal.NewFromInt(650).Equal(rows[0].TotalPay))
	assert.True(t, decimal.NewFromInt(8).Equal(rows[0].TotalHours))
	assert.True(t, decimal.RequireFromString("5.5").Equal(rows[1].TotalHours))
}

type fakeStore struct {
	Store
	from, to      time.Time
	withCancelled bool
	events        []models.Event
}

func (f *fakeStore) RevenueEvents(_ context.Context, _ uuid.UUID, from, to time.Time, withCancelled bool) ([]models.Event, error) {
	f.from, f.to, f.withCancelled = from, to, withCancelled
	return f.events, nil
}

func TestRevenueEndpointRange(t *testing.T) {
	store := &fakeStore{events: []models.Event{
		{Status: models.EventStatusBooked, LoadInTime: date(2026, 2, 1, 8), ProjectedRevenue: money("500")},
	}}
	h := NewHandler(store, nil)
	r := testutil.Router(uuid.New())
	r.GET("/reports/revenue", h.Revenue)

	w := testutil.Do(r, http.MethodGet, "/reports/revenue?from=2026-02-01&to=2026-02-28&group_by=status", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, date(2026, 2, 1, 0), store.from)
	assert.Equal(t, date(2026, 3, 1, 0), store.to)
	assert.True(t, store.withCancelled)
	var out struct {
		Report RevenueReport `json:"report"`
	}
	require.NoError(t, testutil.Decode(w, &out))
	require.Len(t, out.Report.Rows, 1)
	assert.Equal(t, "BOOKED", out.Report.Rows[0].Key)

	assert.Equal(t, http.StatusBadRequest, testutil.Do(r, http.MethodGet, "/reports/revenue?group_by=year", nil).Code)
	assert.Equal(t, http.StatusBadRequest, testutil.Do(r, http.MethodGet, "/reports/revenue?from=2026-03-01&to=2026-02-01", nil).Code)
}
