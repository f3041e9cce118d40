package gear

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const kitColumns = `k.id, k.tenant_id, k.name, k.description, k.is_active, k.created_at, k.updated_at,
	COALESCE(ARRAY(SELECT kg.gear_id FROM kit_gear kg WHERE kg.kit_id = k.id ORDER BY kg.added_at), '{}')`

func scanKit(row pgx.Row) (*models.GearKit, error) {
	var k models.GearKit
	if err := row.Scan(&k.ID, &k.TenantID, &k.Name, &k.Description, &k.IsActive, &k.CreatedAt, &k.UpdatedAt, &k.GearIDs); err != nil {
		return nil, err
	}
	if k.GearIDs == nil {
		k.GearIDs = []uuid.UUID{}
	}
	return &k, nil
}

// ListKits returns the tenant's kits, optionally only active or inactive ones.
func (r *Repository) ListKits(ctx context.Context, tenantID uuid.UUID, active *bool) ([]models.GearKit, error) {
	rows, err := r.db.Query(ctx, `SELECT `+kitColumns+` FROM gear_kits k
		WHERE k.tenant_id = $1 AND ($2::boolean IS NULL OR k.is_active = $2) ORDER BY k.name`, tenantID, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.GearKit{}
	for rows.Next() {
		k, err := scanKit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *k)
	}
	return list, rows.Err()
}

// GetKit returns a kit with its gear items.
func (r *Repository) GetKit(ctx context.Context, tenantID, id uuid.UUID) (*models.GearKit, error) {
	k, err := scanKit(r.db.QueryRow(ctx, `SELECT `+kitColumns+` FROM gear_kits k WHERE k.id = $1 AND k.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "kit")
	}
	rows, err := r.db.Query(ctx, `SELECT `+prefixedGear+` FROM gear g JOIN kit_gear kg ON kg.gear_id = g.id
		WHERE kg.kit_id = $1 ORDER BY kg.added_at`, id)
	if err != nil {
		return nil, err
	}
	if k.Items, err = collectGear(rows); err != nil {
		return nil, err
	}
	return k, nil
}

const prefixedGear = `g.id, g.tenant_id, g.name, g.category, g.serial_number, g.status, g.purchase_price, g.purchase_date,
	g.notes, g.created_at, g.updated_at`

// CreateKit inserts a kit and its gear links in one transaction. Every gear ID must belong to the tenant.
func (r *Repository) CreateKit(ctx context.Context, k *models.GearKit) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tenancy.RequireAll(ctx, tx, tenancy.Gear, k.TenantID, k.GearIDs); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `INSERT INTO gear_kits (tenant_id, name, description, is_active)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
			k.TenantID, k.Name, k.Description, k.IsActive).Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return apperr.FromDB(err, "kit")
		}
		_, err := r.WithTx(tx).linkGear(ctx, k.ID, k.GearIDs, false)
		return err
	})
}

// UpdateKit writes a kit's name, description and active flag.
func (r *Repository) UpdateKit(ctx context.Context, k *models.GearKit) error {
	err := r.db.QueryRow(ctx, `UPDATE gear_kits SET name = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		k.ID, k.TenantID, k.Name, k.Description, k.IsActive).Scan(&k.UpdatedAt)
	return apperr.FromDB(err, "kit")
}

// SetKitActive archives or restores a kit. Deleting a kit archives it.
func (r *Repository) SetKitActive(ctx context.Context, tenantID, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE gear_kits SET is_active = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`, id, tenantID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("kit")
	}
	return nil
}

// AddKitGear links gear to a kit. With skipExisting false an already linked item is a conflict;
// with it true already linked items are ignored. It returns the number of new links.
func (r *Repository) AddKitGear(ctx context.Context, tenantID, kitID uuid.UUID, gearIDs []uuid.UUID, skipExisting bool) (int, error) {
	var added int
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tenancy.Require(ctx, tx, tenancy.Kit, tenantID, kitID); err != nil {
			return err
		}
		if err := tenancy.RequireAll(ctx, tx, tenancy.Gear, tenantID, gearIDs); err != nil {
			return err
		}
		var err error
		added, err = r.WithTx(tx).linkGear(ctx, kitID, gearIDs, skipExisting)
		return err
	})
	return added, err
}

func (r *Repository) linkGear(ctx context.Context, kitID uuid.UUID, gearIDs []uuid.UUID, skipExisting bool) (int, error) {
	q := `INSERT INTO kit_gear (kit_id, gear_id) VALUES ($1, $2)`
	if skipExisting {
		q += ` ON CONFLICT DO NOTHING`
	}
	added := 0
	for _, id := range gearIDs {
		tag, err := r.db.Exec(ctx, q, kitID, id)
		if err != nil {
			if apperr.IsConflict(apperr.FromDB(err, "kit gear")) {
				return 0, apperr.Conflict("gear %s is already in the kit", id)
			}
			return 0, err
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

// RemoveKitGear unlinks gear from a kit and returns how many links were removed.
func (r *Repository) RemoveKitGear(ctx context.Context, tenantID, kitID uuid.UUID, gearIDs []uuid.UUID) (int, error) {
	if err := tenancy.Require(ctx, r.db, tenancy.Kit, tenantID, kitID); err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM kit_gear WHERE kit_id = $1 AND gear_id = ANY($2)`, kitID, gearIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
