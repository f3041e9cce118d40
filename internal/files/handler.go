// Package files tracks references to event media and documents. Objects live in S3; the table holds the reference.
package files

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/httpx"
	"github.com/commandcentered/backend/pkg/response"
	"github.com/commandcentered/backend/pkg/storage"
)

const storageUnavailable = "file storage is not configured"

type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, eventID *uuid.UUID) ([]models.File, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.File, error)
	RequireEvent(ctx context.Context, tenantID uuid.UUID, eventID *uuid.UUID) error
	Create(ctx context.Context, f *models.File) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) (*models.File, error)
}

// ObjectStore is the S3 surface the handler needs. *storage.S3 implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
	ObjectURL(key string) string
	Delete(ctx context.Context, key string) error
	Head(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

type Handler struct {
	repo    Store
	objects ObjectStore
	logger  *zap.Logger
}

// NewHandler creates a files handler. objects may be nil when S3 is not configured.
func NewHandler(repo Store, objects ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, objects: objects, logger: logger}
}

func (h *Handler) requireStorage(c *gin.Context) bool {
	if h.objects == nil {
		response.ServiceUnavailable(c, storageUnavailable)
		return false
	}
	return true
}

// List handles GET /files?event_id=
func (h *Handler) List(c *gin.Context) {
	eventID, ok := httpx.QueryUUID(c, "event_id")
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), middleware.TenantID(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, f)
}

// Upload handles POST /files/upload (multipart: file, optional event_id). The object is streamed to S3.
func (h *Handler) Upload(c *gin.Context) {
	if !h.requireStorage(c) {
		return
	}
	tenantID := middleware.TenantID(c)
	eventID, ok := formUUID(c, "event_id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxUploadSize {
		response.BadRequest(c, "file exceeds the 2GB upload limit; request an upload URL instead")
		return
	}
	if err := h.repo.RequireEvent(c.Request.Context(), tenantID, eventID); err != nil {
		response.Error(c, err)
		return
	}

	f := h.newFile(c, eventID, file.Filename, storage.ContentTypeFor(file.Filename, file.Header.Get("Content-Type")))
	f.SizeBytes = file.Size
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	f.URL, err = h.objects.Upload(c.Request.Context(), f.StorageKey, f.MimeType, rc, file.Size)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("key", f.StorageKey))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		h.discard(f.StorageKey)
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

// UploadURLRequest is the body for POST /files/upload-url.
type UploadURLRequest struct {
	Name        string     `json:"name" binding:"required"`
	ContentType string     `json:"content_type"`
	EventID     *uuid.UUID `json:"event_id"`
}

// UploadURL hands out a pre-signed PUT for large files. The client finishes with Complete.
func (h *Handler) UploadURL(c *gin.Context) {
	if !h.requireStorage(c) {
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	tenantID := middleware.TenantID(c)
	if err := h.repo.RequireEvent(c.Request.Context(), tenantID, req.EventID); err != nil {
		response.Error(c, err)
		return
	}
	contentType := storage.ContentTypeFor(req.Name, req.ContentType)
	key := storage.FileKey(tenantID.String(), uuid.NewString(), req.Name)
	uploadURL, err := h.objects.PresignUpload(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to create upload URL")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   uploadURL,
		"storage_key":  key,
		"content_type": contentType,
		"expires_in":   int(h.objects.PresignExpire().Seconds()),
	})
}

// CompleteRequest is the body for POST /files/complete.
type CompleteRequest struct {
	StorageKey string     `json:"storage_key" binding:"required"`
	Name       string     `json:"name" binding:"required"`
	EventID    *uuid.UUID `json:"event_id"`
}

// Complete records a file the client uploaded with a pre-signed URL. Size and type come from S3.
func (h *Handler) Complete(c *gin.Context) {
	if !h.requireStorage(c) {
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	tenantID := middleware.TenantID(c)
	if !storage.OwnedBy(req.StorageKey, tenantID.String()) {
		response.BadRequest(c, "storage_key does not belong to this tenant")
		return
	}
	if err := h.repo.RequireEvent(c.Request.Context(), tenantID, req.EventID); err != nil {
		response.Error(c, err)
		return
	}
	info, err := h.objects.Head(c.Request.Context(), req.StorageKey)
	if err != nil {
		h.logger.Warn("uploaded object not found", zap.Error(err), zap.String("key", req.StorageKey))
		response.BadRequest(c, "object not found in storage; upload it first")
		return
	}
	uploader := middleware.UserID(c)
	f := &models.File{
		TenantID:   tenantID,
		EventID:    req.EventID,
		Name:       strings.TrimSpace(req.Name),
		SizeBytes:  info.Size,
		MimeType:   storage.ContentTypeFor(req.Name, info.ContentType),
		StorageKey: req.StorageKey,
		URL:        h.objects.ObjectURL(req.StorageKey),
		UploadedBy: &uploader,
	}
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

// RegisterRequest is the body for POST /files: a file hosted elsewhere (Drive, Vimeo, a client link).
type RegisterRequest struct {
	Name      string     `json:"name" binding:"required"`
	URL       string     `json:"url" binding:"required"`
	MimeType  string     `json:"mime_type"`
	SizeBytes int64      `json:"size_bytes" binding:"gte=0"`
	EventID   *uuid.UUID `json:"event_id"`
}

// Register records an external reference. It needs no storage.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		response.BadRequest(c, "url must be an absolute http(s) URL")
		return
	}
	tenantID := middleware.TenantID(c)
	if err := h.repo.RequireEvent(c.Request.Context(), tenantID, req.EventID); err != nil {
		response.Error(c, err)
		return
	}
	uploader := middleware.UserID(c)
	f := &models.File{
		TenantID:   tenantID,
		EventID:    req.EventID,
		Name:       strings.TrimSpace(req.Name),
		SizeBytes:  req.SizeBytes,
		MimeType:   storage.ContentTypeFor(req.Name, req.MimeType),
		URL:        req.URL,
		UploadedBy: &uploader,
	}
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

// DownloadURL handles GET /files/:id/download-url. External references return their own URL.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.repo.GetByID(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if f.StorageKey == "" {
		response.OK(c, gin.H{"url": f.URL, "expires_in": 0})
		return
	}
	if !h.requireStorage(c) {
		return
	}
	u, err := h.objects.PresignDownload(c.Request.Context(), f.StorageKey)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("file_id", id.String()))
		response.Internal(c, "failed to create download URL")
		return
	}
	response.OK(c, gin.H{"url": u, "expires_in": int(h.objects.PresignExpire().Seconds())})
}

// Delete removes the row, then the object. A storage failure is logged and leaves an orphan object.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.repo.Delete(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if f.StorageKey != "" {
		if h.objects == nil {
			h.logger.Warn("file deleted without storage; object left behind", zap.String("key", f.StorageKey))
		} else {
			h.discard(f.StorageKey)
		}
	}
	response.NoContent(c)
}

func (h *Handler) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.objects.Delete(ctx, key); err != nil {
		h.logger.Warn("S3 delete failed", zap.Error(err), zap.String("key", key))
	}
}

func (h *Handler) newFile(c *gin.Context, eventID *uuid.UUID, name, contentType string) *models.File {
	tenantID := middleware.TenantID(c)
	uploader := middleware.UserID(c)
	id := uuid.New()
	return &models.File{
		ID:         id,
		TenantID:   tenantID,
		EventID:    eventID,
		Name:       strings.TrimSpace(name),
		MimeType:   contentType,
		StorageKey: storage.FileKey(tenantID.String(), id.String(), name),
		UploadedBy: &uploader,
	}
}

func formUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	v := c.PostForm(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}
