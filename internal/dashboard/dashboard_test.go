package dashboard

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/testutil"
)

type fakeStore struct {
	Store
	failLeads error
	from, to  time.Time
	saved     *Preferences
}

func (f *fakeStore) UpcomingEventCount(context.Context, uuid.UUID, time.Time) (int, error) { return 3, nil }
func (f *fakeStore) ActiveOperatorCount(context.Context, uuid.UUID) (int, error)           { return 12, nil }
func (f *fakeStore) AvailableGearCount(context.Context, uuid.UUID) (int, error)            { return 40, nil }
func (f *fakeStore) PendingDeliverableCount(context.Context, uuid.UUID) (int, error)       { return 7, nil }

func (f *fakeStore) OpenLeadCount(ctx context.Context, _ uuid.UUID) (int, error) {
	return 5, f.failLeads
}

func (f *fakeStore) Revenue(_ context.Context, _ uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	f.from, f.to = from, to
	return decimal.NewFromInt(9000), decimal.NewFromInt(4500), nil
}

func (f *fakeStore) Preferences(context.Context, uuid.UUID, uuid.UUID) (*Preferences, error) {
	return f.saved, nil
}

func (f *fakeStore) SavePreferences(_ context.Context, _, _ uuid.UUID, p *Preferences) error {
	f.saved = p
	return nil
}

func TestLoadStats(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC)
	s, err := LoadStats(context.Background(), store, uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, s.UpcomingEvents)
	assert.Equal(t, 12, s.ActiveOperators)
	assert.Equal(t, 40, s.AvailableGear)
	assert.Equal(t, 7, s.PendingDeliverables)
	assert.Equal(t, 5, s.OpenLeads)
	assert.True(t, decimal.NewFromInt(4500).Equal(s.MonthActualRevenue))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), store.to)
}

func TestLoadStatsFailsOnAnyCounter(t *testing.T) {
	_, err := LoadStats(context.Background(), &fakeStore{failLeads: errors.New("conn reset")}, uuid.New(), time.Now())
	assert.EqualError(t, err, "conn reset")
}

func TestPreferencesDefaultAndSave(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store, nil)
	r := testutil.Router(uuid.New())
	r.GET("/dashboard/preferences", h.GetPreferences)
	r.PUT("/dashboard/preferences", h.PutPreferences)

	w := testutil.Do(r, http.MethodGet, "/dashboard/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p Preferences
	require.NoError(t, testutil.Decode(w, &p))
	require.Len(t, p.Widgets, len(widgetOrder))
	assert.Equal(t, WidgetStats, p.Widgets[0].ID)

	w = testutil.Do(r, http.MethodPut, "/dashboard/preferences", map[string]interface{}{
		"widgets": []map[string]interface{}{{"id": "revenue", "visible": false, "order": 0}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, store.saved)
	assert.False(t, store.saved.Widgets[0].Visible)

	w = testutil.Do(r, http.MethodPut, "/dashboard/preferences", map[string]interface{}{
		"widgets": []map[string]interface{}{{"id": "weather", "order": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPut, "/dashboard/preferences", map[string]interface{}{
		"widgets": []map[string]interface{}{{"id": "gear", "order": 0}, {"id": "gear", "order": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, clamp(0, 5, 50))
	assert.Equal(t, 50, clamp(500, 5, 50))
	assert.Equal(t, 8, clamp(8, 5, 50))
}
