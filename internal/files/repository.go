package files

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const fileColumns = `id, tenant_id, event_id, name, size_bytes, mime_type, storage_key, url, uploaded_by, created_at, updated_at`

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var f models.File
	if err := row.Scan(&f.ID, &f.TenantID, &f.EventID, &f.Name, &f.SizeBytes, &f.MimeType, &f.StorageKey, &f.URL,
		&f.UploadedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns the tenant's files, newest first, optionally for one event.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, eventID *uuid.UUID) ([]models.File, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fileColumns+` FROM files
		WHERE tenant_id = $1 AND ($2::uuid IS NULL OR event_id = $2) ORDER BY created_at DESC`, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *f)
	}
	return list, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.File, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "file")
	}
	return f, nil
}

// RequireEvent checks an optional event belongs to the tenant.
func (r *Repository) RequireEvent(ctx context.Context, tenantID uuid.UUID, eventID *uuid.UUID) error {
	return tenancy.RequireOptional(ctx, r.db, tenancy.Event, tenantID, eventID)
}

// Create inserts f. A preset ID is kept so the storage key can embed it.
func (r *Repository) Create(ctx context.Context, f *models.File) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `INSERT INTO files (id, tenant_id, event_id, name, size_bytes, mime_type, storage_key, url, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`,
		f.ID, f.TenantID, f.EventID, f.Name, f.SizeBytes, f.MimeType, f.StorageKey, f.URL, f.UploadedBy).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	return apperr.FromDB(err, "file")
}

// Delete removes the row and returns it so the caller can clean up storage.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) (*models.File, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `DELETE FROM files WHERE id = $1 AND tenant_id = $2 RETURNING `+fileColumns, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "file")
	}
	return f, nil
}
