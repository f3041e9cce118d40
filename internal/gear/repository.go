package gear

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/database"
)

const gearColumns = `id, tenant_id, name, category, serial_number, status, purchase_price, purchase_date, notes, created_at, updated_at`

// Repository handles gear, kit and gear assignment persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a gear repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanGear(row pgx.Row) (*models.Gear, error) {
	var g models.Gear
	var category, status string
	if err := row.Scan(&g.ID, &g.TenantID, &g.Name, &category, &g.SerialNumber, &status, &g.PurchasePrice,
		&g.PurchaseDate, &g.Notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Category = models.GearCategory(category)
	g.Status = models.GearStatus(status)
	return &g, nil
}

func collectGear(rows pgx.Rows) ([]models.Gear, error) {
	defer rows.Close()
	list := []models.Gear{}
	for rows.Next() {
		g, err := scanGear(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *g)
	}
	return list, rows.Err()
}

// Filter narrows List.
type Filter struct {
	Category *models.GearCategory
	Status   *models.GearStatus
	Search   string
}

// List returns the tenant's gear by category and name.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Gear, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Category != nil {
		args = append(args, string(*f.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR serial_number ILIKE $%d)", len(args), len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+gearColumns+` FROM gear WHERE `+strings.Join(where, " AND ")+` ORDER BY category, name`, args...)
	if err != nil {
		return nil, err
	}
	return collectGear(rows)
}

// GetByID returns one item.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Gear, error) {
	g, err := scanGear(r.db.QueryRow(ctx, `SELECT `+gearColumns+` FROM gear WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "gear")
	}
	return g, nil
}

// Create inserts an item.
func (r *Repository) Create(ctx context.Context, g *models.Gear) error {
	err := r.db.QueryRow(ctx, `INSERT INTO gear (tenant_id, name, category, serial_number, status, purchase_price, purchase_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		g.TenantID, g.Name, string(g.Category), g.SerialNumber, string(g.Status), g.PurchasePrice, g.PurchaseDate, g.Notes).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return apperr.FromDB(err, "gear")
}

// Update writes an item's mutable fields.
func (r *Repository) Update(ctx context.Context, g *models.Gear) error {
	err := r.db.QueryRow(ctx, `UPDATE gear SET name = $3, category = $4, serial_number = $5, status = $6,
		purchase_price = $7, purchase_date = $8, notes = $9, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		g.ID, g.TenantID, g.Name, string(g.Category), g.SerialNumber, string(g.Status), g.PurchasePrice, g.PurchaseDate, g.Notes).
		Scan(&g.UpdatedAt)
	return apperr.FromDB(err, "gear")
}

// SetStatus changes an item's status. Retiring is the soft delete.
func (r *Repository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.GearStatus) (*models.Gear, error) {
	g, err := scanGear(r.db.QueryRow(ctx, `UPDATE gear SET status = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING `+gearColumns, id, tenantID, string(status)))
	if err != nil {
		return nil, apperr.FromDB(err, "gear")
	}
	return g, nil
}

// AvailableInWindow returns usable gear with no assignment whose event overlaps [from, to).
func (r *Repository) AvailableInWindow(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Gear, error) {
	rows, err := r.db.Query(ctx, `SELECT `+gearColumns+` FROM gear g
		WHERE g.tenant_id = $1 AND g.status IN ('AVAILABLE', 'IN_USE')
		AND NOT EXISTS (
			SELECT 1 FROM gear_assignments ga JOIN events e ON e.id = ga.event_id
			WHERE ga.gear_id = g.id AND e.status NOT IN ('CANCELLED', 'ARCHIVED')
			AND e.load_in_time < $3 AND e.load_out_time > $2)
		ORDER BY g.category, g.name`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return collectGear(rows)
}
