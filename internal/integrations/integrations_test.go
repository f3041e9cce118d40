package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
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

func TestConstructorsWithoutCredentials(t *testing.T) {
	_, err := NewLivestreams("https://api.vimeo.com", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewEnrichment("https://api.apollo.io/v1", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewDrive(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLivestreamsListsLiveEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/live_events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"uri":"/live_events/4242","title":"Spring Recital","link":"https://vimeo.com/event/4242",
			"live_status":"ready","created_time":"2026-04-01T10:00:00Z"}]}`))
	}))
	defer srv.Close()

	l, err := NewLivestreams(srv.URL, "tok")
	require.NoError(t, err)
	list, err := l.ListLivestreams(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "4242", list[0].ID)
	assert.Equal(t, "Spring Recital", list[0].Title)
	require.NotNil(t, list[0].CreatedAt)
	assert.Equal(t, 2026, list[0].CreatedAt.Year())
}

func TestLivestreamsSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	l, err := NewLivestreams(srv.URL, "bad")
	require.NoError(t, err)
	_, err = l.ListLivestreams(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}

func TestEnrichmentSearch(t *testing.T) {
	var got orgSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mixed_companies/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"organizations":[
			{"id":"a","name":"Grand River Dance Company","website_url":"grandriverdance.com","city":"Cambridge","state":"ON","keywords":["dance school"]},
			{"id":"b","name":"Studio Without Site","city":"Guelph"}]}`))
	}))
	defer srv.Close()

	e, err := NewEnrichment(srv.URL, "key")
	require.NoError(t, err)
	orgs, err := e.SearchOrganizations(context.Background(), OrganizationQuery{
		Keywords: "competitive", BusinessTypes: []string{"dance studio"}, Location: "Ontario",
		MinEmployees: 10, HasWebsite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 25, got.PerPage)
	assert.Equal(t, []string{"dance studio", "competitive"}, got.Keywords)
	assert.Equal(t, []string{"Ontario"}, got.Locations)
	assert.Equal(t, []string{"10,"}, got.EmployeesRanges)

	require.Len(t, orgs, 1)
	assert.Equal(t, "Cambridge, ON", orgs[0].Location)
	assert.Equal(t, []string{"dance school"}, orgs[0].Tags)
}

type fakeEvents struct {
	event    *models.Event
	folderID string
}

func (f *fakeEvents) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Event, error) {
	if f.event == nil || f.event.ID != id || f.event.TenantID != tenantID {
		return nil, apperr.NotFound("event")
	}
	return f.event, nil
}

func (f *fakeEvents) SetDriveFolder(_ context.Context, _, _ uuid.UUID, folderID, _ string) error {
	f.folderID = folderID
	return nil
}

type fakeDrive struct {
	names []string
	err   error
}

func (d *fakeDrive) CreateFolder(_ context.Context, name string) (*Folder, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.names = append(d.names, name)
	return &Folder{ID: "fld1", URL: "https://drive.google.com/drive/folders/fld1"}, nil
}

type fakeLeads struct {
	known   map[string]bool
	created []*models.Lead
}

func (f *fakeLeads) KnownOrganizations(context.Context, uuid.UUID, []string) (map[string]bool, error) {
	out := map[string]bool{}
	for k, v := range f.known {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLeads) CreateLeads(_ context.Context, leads []*models.Lead) error {
	f.created = append(f.created, leads...)
	return nil
}

type fakeOrgs struct {
	orgs []Organization
	err  error
}

func (f fakeOrgs) SearchOrganizations(context.Context, OrganizationQuery) ([]Organization, error) {
	return f.orgs, f.err
}

func routes(tenantID uuid.UUID, h *Handler) *gin.Engine {
	r := testutil.Router(tenantID)
	r.POST("/events/:id/drive-folder", h.CreateDriveFolder)
	r.GET("/integrations/livestreams", h.ListLivestreams)
	r.POST("/integrations/lead-finder/search", h.SearchOrganizations)
	r.POST("/integrations/lead-finder/export", h.ExportToCRM)
	return r
}

func TestUnconfiguredIntegrationsExplain(t *testing.T) {
	tenantID := uuid.New()
	event := &models.Event{ID: uuid.New(), TenantID: tenantID, Name: "Recital"}
	r := routes(tenantID, NewHandler(nil, nil, nil, &fakeEvents{event: event}, &fakeLeads{}, nil))

	w := testutil.Do(r, http.MethodPost, "/events/"+event.ID.String()+"/drive-folder", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res DriveFolderResult
	require.NoError(t, testutil.Decode(w, &res))
	assert.False(t, res.Configured)
	assert.Equal(t, driveNotConfigured, res.Message)

	w = testutil.Do(r, http.MethodGet, "/integrations/livestreams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"livestreams":[]`)

	w = testutil.Do(r, http.MethodPost, "/integrations/lead-finder/search", map[string]string{"location": "Guelph"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestDriveFolderCreatedAndStored(t *testing.T) {
	tenantID := uuid.New()
	event := &models.Event{ID: uuid.New(), TenantID: tenantID, Name: "Spring Recital",
		LoadInTime: time.Date(2026, 5, 30, 8, 0, 0, 0, time.UTC)}
	events := &fakeEvents{event: event}
	d := &fakeDrive{}
	r := routes(tenantID, NewHandler(d, nil, nil, events, &fakeLeads{}, nil))

	w := testutil.Do(r, http.MethodPost, "/events/"+event.ID.String()+"/drive-folder", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2026-05-30 Spring Recital"}, d.names)
	assert.Equal(t, "fld1", events.folderID)

	d.err = errors.New("quota exceeded")
	event.DriveFolderID = ""
	w = testutil.Do(r, http.MethodPost, "/events/"+event.ID.String()+"/drive-folder", nil)
	require.Equal(t, http.StatusOK, w.Code, "upstream failures never become a 500")
	var res DriveFolderResult
	require.NoError(t, testutil.Decode(w, &res))
	assert.False(t, res.Created)
	assert.NotEmpty(t, res.Message)
}

func TestSearchSkipsKnownAndExportCreatesLeads(t *testing.T) {
	leads := &fakeLeads{known: map[string]bool{"empwr dance experience": true}}
	orgs := fakeOrgs{orgs: []Organization{
		{ID: "1", Name: "EMPWR Dance Experience"},
		{ID: "2", Name: "Grand River Dance Company", Location: "Cambridge, ON"},
	}}
	r := routes(uuid.New(), NewHandler(nil, nil, orgs, &fakeEvents{}, leads, nil))

	w := testutil.Do(r, http.MethodPost, "/integrations/lead-finder/search", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Results []Organization `json:"results"`
	}
	require.NoError(t, testutil.Decode(w, &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "2", out.Results[0].ID)

	w = testutil.Do(r, http.MethodPost, "/integrations/lead-finder/export", map[string]interface{}{
		"organizations": []map[string]interface{}{
			{"name": "Grand River Dance Company", "email": "info@grandriverdance.com", "location": "Cambridge, ON"},
			{"name": "grand river dance company "},
			{"name": "EMPWR Dance Experience"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, leads.created, 1)
	l := leads.created[0]
	assert.Equal(t, models.LeadStatusNew, l.Status)
	assert.Equal(t, defaultLeadSource, l.Source)
	assert.True(t, strings.Contains(string(l.SourceDetails), "Cambridge"))
	assert.Contains(t, w.Body.String(), `"skipped":2`)
}

func TestSearchUpstreamFailureIsEmpty(t *testing.T) {
	r := routes(uuid.New(), NewHandler(nil, nil, fakeOrgs{err: errors.New("503")}, &fakeEvents{}, &fakeLeads{}, nil))
	w := testutil.Do(r, http.MethodPost, "/integrations/lead-finder/search", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}
