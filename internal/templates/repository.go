package templates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/pkg/database"
)

// ThemeConfig is the look applied to a rendered template.
type ThemeConfig struct {
	PrimaryColor    string `json:"primary_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	FontFamily      string `json:"font_family,omitempty"`
	BorderRadius    string `json:"border_radius,omitempty"`
}

// Template is a proposal form a tenant builds and publishes to prospects.
type Template struct {
	ID           uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenant_id"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description,omitempty"`
	Elements     []Element   `json:"elements"`
	Theme        ThemeConfig `json:"theme_config"`
	IsPublished  bool        `json:"is_published"`
	PublishedURL string      `json:"published_url,omitempty"`
	PublishedAt  *time.Time  `json:"published_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

const templateColumns = `t.id, t.tenant_id, t.name, t.slug, t.description, t.elements, t.theme_config, t.is_published,
	t.published_url, t.published_at, t.created_at, t.updated_at`

// Repository persists proposal templates.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a template repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var elements, theme []byte
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Slug, &t.Description, &elements, &theme, &t.IsPublished,
		&t.PublishedURL, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Elements = []Element{}
	if len(elements) > 0 {
		if err := json.Unmarshal(elements, &t.Elements); err != nil {
			return nil, err
		}
	}
	if len(theme) > 0 {
		if err := json.Unmarshal(theme, &t.Theme); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func encode(t *Template) (elements, theme []byte, err error) {
	if t.Elements == nil {
		t.Elements = []Element{}
	}
	if elements, err = json.Marshal(t.Elements); err != nil {
		return nil, nil, err
	}
	if theme, err = json.Marshal(t.Theme); err != nil {
		return nil, nil, err
	}
	return elements, theme, nil
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, published *bool) ([]Template, error) {
	rows, err := r.db.Query(ctx, `SELECT `+templateColumns+` FROM proposal_templates t
		WHERE t.tenant_id = $1 AND ($2::boolean IS NULL OR t.is_published = $2)
		ORDER BY t.updated_at DESC`, tenantID, published)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM proposal_templates t
		WHERE t.id = $1 AND t.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "proposal template")
	}
	return t, nil
}

// GetPublished finds a published template by tenant slug and template slug. Drafts are not found.
func (r *Repository) GetPublished(ctx context.Context, tenantSlug, slug string) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM proposal_templates t
		JOIN tenants n ON n.id = t.tenant_id
		WHERE n.slug = $1 AND t.slug = $2 AND t.is_published`, tenantSlug, slug))
	if err != nil {
		return nil, apperr.FromDB(err, "proposal template")
	}
	return t, nil
}

// TenantSlug returns the slug public template paths are addressed by.
func (r *Repository) TenantSlug(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var slug string
	if err := r.db.QueryRow(ctx, `SELECT slug FROM tenants WHERE id = $1`, tenantID).Scan(&slug); err != nil {
		return "", apperr.FromDB(err, "tenant")
	}
	return slug, nil
}

func (r *Repository) SlugExists(ctx context.Context, tenantID uuid.UUID, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM proposal_templates WHERE tenant_id = $1 AND slug = $2)`,
		tenantID, slug).Scan(&exists)
	return exists, err
}

func (r *Repository) Create(ctx context.Context, t *Template) error {
	elements, theme, err := encode(t)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `INSERT INTO proposal_templates
		(tenant_id, name, slug, description, elements, theme_config, is_published, published_url, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		t.TenantID, t.Name, t.Slug, t.Description, elements, theme, t.IsPublished, t.PublishedURL, t.PublishedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return apperr.FromDB(err, "proposal template")
}

func (r *Repository) Update(ctx context.Context, t *Template) error {
	elements, theme, err := encode(t)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `UPDATE proposal_templates SET name = $3, slug = $4, description = $5, elements = $6,
		theme_config = $7, is_published = $8, published_url = $9, published_at = $10, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`,
		t.ID, t.TenantID, t.Name, t.Slug, t.Description, elements, theme, t.IsPublished, t.PublishedURL, t.PublishedAt,
	).Scan(&t.UpdatedAt)
	return apperr.FromDB(err, "proposal template")
}

func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM proposal_templates WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return apperr.FromDB(err, "proposal template")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("proposal template")
	}
	return nil
}

// CountProposals reports how many proposals were made from template id.
func (r *Repository) CountProposals(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM proposals WHERE tenant_id = $1 AND template_id = $2`,
		tenantID, id).Scan(&n)
	return n, err
}
