package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenants"
	"github.com/commandcentered/backend/pkg/database"
)

const userColumns = `id, tenant_id, email, password_hash, full_name, role, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an auth repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user of tenantID by ID.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return u, nil
}

// GetByEmail returns a user by email. Emails are unique across tenants.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return u, nil
}

// List returns the tenant's users.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY full_name, email`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// Create inserts a user into u.TenantID.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (tenant_id, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	u.Email = strings.ToLower(u.Email)
	err := r.db.QueryRow(ctx, q, u.TenantID, u.Email, u.PasswordHash, u.FullName, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return apperr.FromDB(err, "user")
}

// UpdateRole changes a user's role within the tenant.
func (r *Repository) UpdateRole(ctx context.Context, tenantID, id uuid.UUID, role models.Role) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `UPDATE users SET role = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING `+userColumns, id, tenantID, string(role)))
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return u, nil
}

// RegisterTenant creates a tenant and its owner in one transaction.
func (r *Repository) RegisterTenant(ctx context.Context, t *models.Tenant, owner *models.User) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tenants.NewRepository(tx).Create(ctx, t); err != nil {
			return err
		}
		owner.TenantID = t.ID
		owner.Role = models.RoleOwner
		return NewRepository(tx).Create(ctx, owner)
	})
}
