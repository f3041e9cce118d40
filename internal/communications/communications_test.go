package communications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
)

type fakeStore struct {
	Store
	touchpoints map[uuid.UUID]models.Touchpoint
	configs     map[uuid.UUID]models.EmailConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{touchpoints: map[uuid.UUID]models.Touchpoint{}, configs: map[uuid.UUID]models.EmailConfig{}}
}

func (f *fakeStore) GetTouchpoint(_ context.Context, tenantID, id uuid.UUID) (*models.Touchpoint, error) {
	t, ok := f.touchpoints[id]
	if !ok || t.TenantID != tenantID {
		return nil, apperr.NotFound("touchpoint")
	}
	return &t, nil
}

func (f *fakeStore) CreateTouchpoint(_ context.Context, t *models.Touchpoint) error {
	t.ID = uuid.New()
	f.touchpoints[t.ID] = *t
	return nil
}

func (f *fakeStore) UpdateTouchpoint(_ context.Context, t *models.Touchpoint) error {
	f.touchpoints[t.ID] = *t
	return nil
}

func (f *fakeStore) GetEmailConfig(_ context.Context, tenantID, id uuid.UUID) (*models.EmailConfig, error) {
	e, ok := f.configs[id]
	if !ok || e.TenantID != tenantID {
		return nil, apperr.NotFound("email config")
	}
	return &e, nil
}

func (f *fakeStore) CreateEmailConfig(_ context.Context, e *models.EmailConfig) error {
	for _, existing := range f.configs {
		if existing.TenantID == e.TenantID && existing.EmailType == e.EmailType {
			return apperr.Conflict("an email config for %s already exists", e.EmailType)
		}
	}
	e.ID = uuid.New()
	f.configs[e.ID] = *e
	return nil
}

func (f *fakeStore) UpdateEmailConfig(_ context.Context, e *models.EmailConfig) error {
	f.configs[e.ID] = *e
	return nil
}

func TestTouchpointCompletionStamp(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	h := NewHandler(store, nil)
	h.now = func() time.Time { return now }
	r := testutil.Router(tenantID)
	r.POST("/touchpoints", h.CreateTouchpoint)
	r.PATCH("/touchpoints/:id", h.UpdateTouchpoint)

	w := testutil.Do(r, http.MethodPost, "/touchpoints", gin.H{"type": "CONTRACT_SENT", "client_id": uuid.New()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tp models.Touchpoint
	require.NoError(t, testutil.Decode(w, &tp))
	assert.Equal(t, models.TouchpointPending, tp.Status)
	assert.Nil(t, tp.CompletedAt)

	w = testutil.Do(r, http.MethodPatch, "/touchpoints/"+tp.ID.String(), gin.H{"status": "COMPLETED", "notes": " signed copy on file "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, testutil.Decode(w, &tp))
	require.NotNil(t, tp.CompletedAt)
	assert.True(t, now.Equal(*tp.CompletedAt))
	assert.Equal(t, "signed copy on file", tp.Notes)

	w = testutil.Do(r, http.MethodPatch, "/touchpoints/"+tp.ID.String(), gin.H{"status": "SKIPPED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var skipped models.Touchpoint
	require.NoError(t, testutil.Decode(w, &skipped))
	assert.Equal(t, models.TouchpointSkipped, skipped.Status)
	assert.Nil(t, skipped.CompletedAt)

	w = testutil.Do(r, http.MethodPost, "/touchpoints", gin.H{"type": "SMOKE_SIGNAL", "client_id": uuid.New()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPatch, "/touchpoints/"+uuid.NewString(), gin.H{"status": "COMPLETED"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmailConfigOnePerType(t *testing.T) {
	tenantID := uuid.New()
	h := NewHandler(newFakeStore(), nil)
	r := testutil.Router(tenantID)
	r.POST("/email-configs", h.CreateEmailConfig)
	r.PATCH("/email-configs/:id", h.UpdateEmailConfig)

	body := gin.H{"email_type": "PAYMENT_REMINDER", "subject": "Invoice for {{.EventName}}", "body_template": "Hi {{.FirstName}}"}
	w := testutil.Do(r, http.MethodPost, "/email-configs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cfg models.EmailConfig
	require.NoError(t, testutil.Decode(w, &cfg))
	assert.True(t, cfg.IsActive)

	w = testutil.Do(r, http.MethodPost, "/email-configs", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Do(r, http.MethodPost, "/email-configs", gin.H{"email_type": "THANK_YOU_FEEDBACK", "subject": "Thanks", "body_template": "{{.FirstName"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPatch, "/email-configs/"+cfg.ID.String(), gin.H{"is_active": false, "send_delay_hours": 48})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, testutil.Decode(w, &cfg))
	assert.False(t, cfg.IsActive)
	require.NotNil(t, cfg.SendDelayHours)
	assert.Equal(t, 48, *cfg.SendDelayHours)

	w = testutil.Do(r, http.MethodPatch, "/email-configs/"+cfg.ID.String(), gin.H{"email_type": "CONTRACT_REMINDER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// tenantDB owns a fixed set of row ids and records inserts.
type tenantDB struct {
	tenantID uuid.UUID
	owned    map[uuid.UUID]bool
	inserted int
}

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = r.vals[i].(int)
		case *uuid.UUID:
			*p = r.vals[i].(uuid.UUID)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported %T", d)
		}
	}
	return nil
}

func (db *tenantDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	switch {
	case strings.HasPrefix(sql, "SELECT 1 FROM"):
		if !db.owned[args[0].(uuid.UUID)] || args[1].(uuid.UUID) != db.tenantID {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []interface{}{1}}
	case strings.HasPrefix(sql, "INSERT INTO communication_touchpoints"):
		db.inserted++
		now := time.Now()
		return fakeRow{vals: []interface{}{uuid.New(), now, now}}
	}
	return fakeRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (db *tenantDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec not supported")
}

func (db *tenantDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (db *tenantDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("begin not supported")
}

func TestCreateTouchpointChecksReferences(t *testing.T) {
	tenantID := uuid.New()
	event, client := uuid.New(), uuid.New()
	db := &tenantDB{tenantID: tenantID, owned: map[uuid.UUID]bool{event: true, client: true}}
	h := NewHandler(NewRepository(db), nil)
	r := testutil.Router(tenantID)
	r.POST("/touchpoints", h.CreateTouchpoint)

	w := testutil.Do(r, http.MethodPost, "/touchpoints", gin.H{"type": "INITIAL_CONTACT"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = testutil.Do(r, http.MethodPost, "/touchpoints", gin.H{"type": "INITIAL_CONTACT", "event_id": event, "lead_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	require.Zero(t, db.inserted)

	other := testutil.Router(uuid.New())
	other.POST("/touchpoints", h.CreateTouchpoint)
	w = testutil.Do(other, http.MethodPost, "/touchpoints", gin.H{"type": "INITIAL_CONTACT", "client_id": client})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	require.Zero(t, db.inserted)

	w = testutil.Do(r, http.MethodPost, "/touchpoints", gin.H{"type": "PRE_EVENT_REMINDER", "event_id": event, "client_id": client})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, db.inserted)
}
