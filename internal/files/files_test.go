package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/testutil"
	"github.com/commandcentered/backend/pkg/storage"
)

type fakeStore struct {
	files map[uuid.UUID]models.File
}

func newFakeStore() *fakeStore { return &fakeStore{files: map[uuid.UUID]models.File{}} }

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, eventID *uuid.UUID) ([]models.File, error) {
	list := []models.File{}
	for _, file := range f.files {
		if file.TenantID == tenantID && (eventID == nil || (file.EventID != nil && *file.EventID == *eventID)) {
			list = append(list, file)
		}
	}
	return list, nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.File, error) {
	file, ok := f.files[id]
	if !ok || file.TenantID != tenantID {
		return nil, apperr.NotFound("file")
	}
	return &file, nil
}

func (f *fakeStore) RequireEvent(context.Context, uuid.UUID, *uuid.UUID) error { return nil }

func (f *fakeStore) Create(_ context.Context, file *models.File) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	f.files[file.ID] = *file
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, tenantID, id uuid.UUID) (*models.File, error) {
	file, err := f.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	delete(f.files, id)
	return file, nil
}

type fakeObjects struct {
	uploaded  map[string][]byte
	deleted   []string
	deleteErr error
}

func (o *fakeObjects) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	o.uploaded[key] = raw
	return "https://bucket.example/" + key, nil
}

func (o *fakeObjects) PresignUpload(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example/" + key + "?sig=put", nil
}

func (o *fakeObjects) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=get", nil
}

func (o *fakeObjects) PresignExpire() time.Duration { return 15 * time.Minute }

func (o *fakeObjects) ObjectURL(key string) string { return "https://bucket.example/" + key }

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	o.deleted = append(o.deleted, key)
	return o.deleteErr
}

func (o *fakeObjects) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	raw, ok := o.uploaded[key]
	if !ok {
		return nil, errors.New("404")
	}
	return &storage.ObjectInfo{Size: int64(len(raw)), ContentType: "video/mp4"}, nil
}

func router(tenantID uuid.UUID, h *Handler) *gin.Engine {
	r := testutil.Router(tenantID)
	r.GET("/files", h.List)
	r.POST("/files", h.Register)
	r.POST("/files/upload", h.Upload)
	r.POST("/files/upload-url", h.UploadURL)
	r.POST("/files/complete", h.Complete)
	r.GET("/files/:id/download-url", h.DownloadURL)
	r.DELETE("/files/:id", h.Delete)
	return r
}

func multipartUpload(t *testing.T, r http.Handler, name string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWithoutStorageRegisterWorksAndUploadIs503(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	r := router(tenantID, NewHandler(store, nil, nil))

	w := testutil.Do(r, http.MethodPost, "/files", map[string]interface{}{
		"name": "Run of show.pdf", "url": "https://drive.google.com/file/d/abc", "size_bytes": 2048,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f models.File
	require.NoError(t, testutil.Decode(w, &f))
	assert.Equal(t, "application/pdf", f.MimeType)
	assert.Empty(t, f.StorageKey)

	assert.Equal(t, http.StatusServiceUnavailable, multipartUpload(t, r, "clip.mp4", []byte("data")).Code)
	assert.Equal(t, http.StatusServiceUnavailable, testutil.Do(r, http.MethodPost, "/files/upload-url", map[string]string{"name": "a.mp4"}).Code)

	w = testutil.Do(r, http.MethodGet, "/files/"+f.ID.String()+"/download-url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "drive.google.com")

	assert.Equal(t, http.StatusNoContent, testutil.Do(r, http.MethodDelete, "/files/"+f.ID.String(), nil).Code)
	assert.Empty(t, store.files)
}

func TestRegisterRejectsRelativeURL(t *testing.T) {
	r := router(uuid.New(), NewHandler(newFakeStore(), nil, nil))
	w := testutil.Do(r, http.MethodPost, "/files", map[string]string{"name": "x", "url": "/etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	objects := &fakeObjects{uploaded: map[string][]byte{}}
	r := router(tenantID, NewHandler(store, objects, nil))

	w := multipartUpload(t, r, "Recital Highlights.mp4", []byte("frames"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f models.File
	require.NoError(t, testutil.Decode(w, &f))
	assert.Equal(t, int64(6), f.SizeBytes)
	assert.Equal(t, "files/"+tenantID.String()+"/"+f.ID.String()+"/Recital-Highlights.mp4", f.StorageKey)
	assert.Equal(t, []byte("frames"), objects.uploaded[f.StorageKey])
	assert.Contains(t, store.files, f.ID)

	w = testutil.Do(r, http.MethodGet, "/files/"+f.ID.String()+"/download-url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sig=get")
}

func TestPresignedUploadThenComplete(t *testing.T) {
	tenantID := uuid.New()
	objects := &fakeObjects{uploaded: map[string][]byte{}}
	r := router(tenantID, NewHandler(newFakeStore(), objects, nil))

	w := testutil.Do(r, http.MethodPost, "/files/upload-url", map[string]string{"name": "raw.mov"})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		StorageKey string `json:"storage_key"`
		ExpiresIn  int    `json:"expires_in"`
	}
	require.NoError(t, testutil.Decode(w, &out))
	assert.Equal(t, 900, out.ExpiresIn)

	w = testutil.Do(r, http.MethodPost, "/files/complete", map[string]string{"storage_key": out.StorageKey, "name": "raw.mov"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "object not uploaded yet")

	objects.uploaded[out.StorageKey] = make([]byte, 1024)
	w = testutil.Do(r, http.MethodPost, "/files/complete", map[string]string{"storage_key": out.StorageKey, "name": "raw.mov"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f models.File
	require.NoError(t, testutil.Decode(w, &f))
	assert.Equal(t, int64(1024), f.SizeBytes)

	foreign := storage.FileKey(uuid.NewString(), uuid.NewString(), "x.mov")
	w = testutil.Do(r, http.MethodPost, "/files/complete", map[string]string{"storage_key": foreign, "name": "x.mov"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSwallowsStorageFailure(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	objects := &fakeObjects{uploaded: map[string][]byte{}, deleteErr: errors.New("access denied")}
	file := models.File{ID: uuid.New(), TenantID: tenantID, Name: "a.mp4", StorageKey: "files/" + tenantID.String() + "/x/a.mp4"}
	store.files[file.ID] = file
	r := router(tenantID, NewHandler(store, objects, nil))

	w := testutil.Do(r, http.MethodDelete, "/files/"+file.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.files)
	assert.Equal(t, []string{file.StorageKey}, objects.deleted)
}

func TestFilesAreTenantScoped(t *testing.T) {
	store := newFakeStore()
	other := models.File{ID: uuid.New(), TenantID: uuid.New(), Name: "theirs.pdf"}
	store.files[other.ID] = other
	r := router(uuid.New(), NewHandler(store, nil, nil))

	assert.Equal(t, http.StatusNotFound, testutil.Do(r, http.MethodDelete, "/files/"+other.ID.String(), nil).Code)
	w := testutil.Do(r, http.MethodGet, "/files", nil)
	var list []models.File
	require.NoError(t, testutil.Decode(w, &list))
	assert.Empty(t, list)
}
