package tenants

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

// Slug must be lowercase alphanumeric and hyphens only, 2 to 64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// NormalizeSlug lowercases and validates a tenant slug.
func NormalizeSlug(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slugRegex.MatchString(s) {
		return "", apperr.Validation("slug must be 2-64 chars, lowercase letters, numbers, hyphens only")
	}
	return s, nil
}

// Repository handles tenant persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a tenants repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create creates a tenant. A taken slug is a conflict.
func (r *Repository) Create(ctx context.Context, t *models.Tenant) error {
	const q = `INSERT INTO tenants (id, name, slug)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, t.Name, t.Slug).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return apperr.FromDB(err, "tenant")
}

// GetByID returns a tenant by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM tenants WHERE id = $1`
	var t models.Tenant
	if err := r.db.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	return &t, nil
}

// Rename updates the tenant's display name.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Tenant, error) {
	const q = `UPDATE tenants SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING id, name, slug, created_at, updated_at`
	var t models.Tenant
	if err := r.db.QueryRow(ctx, q, id, name).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	return &t, nil
}
