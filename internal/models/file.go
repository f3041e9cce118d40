package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a reference to an object held by the storage service. Only the reference lives here.
type File struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	EventID    *uuid.UUID `json:"event_id,omitempty"`
	Name       string     `json:"name"`
	SizeBytes  int64      `json:"size_bytes"`
	MimeType   string     `json:"mime_type"`
	StorageKey string     `json:"storage_key,omitempty"`
	URL        string     `json:"url"`
	UploadedBy *uuid.UUID `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
