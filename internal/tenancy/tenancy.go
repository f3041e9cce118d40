// Package tenancy verifies that referenced rows belong to the caller's tenant.
package tenancy

import (
	"context"

	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/pkg/database"
)

// Ref names a tenant-owned table.
type Ref struct {
	table  string
	entity string
}

var (
	Event       = Ref{"events", "event"}
	Shift       = Ref{"shifts", "shift"}
	Operator    = Ref{"operators", "operator"}
	Gear        = Ref{"gear", "gear"}
	Kit         = Ref{"gear_kits", "kit"}
	Deliverable = Ref{"deliverables", "deliverable"}
	Client      = Ref{"clients", "client"}
	Lead        = Ref{"leads", "lead"}
	Template    = Ref{"proposal_templates", "proposal template"}
	Proposal    = Ref{"proposals", "proposal"}
	Contract    = Ref{"contracts", "contract"}
	Campaign    = Ref{"campaigns", "campaign"}
)

// Entity is the human-readable name used in not-found errors.
func (r Ref) Entity() string { return r.entity }

// Require returns a not-found error unless id exists in tenantID. Rows of other tenants
// are indistinguishable from missing rows.
func Require(ctx context.Context, db database.DBTX, ref Ref, tenantID, id uuid.UUID) error {
	var one int
	err := db.QueryRow(ctx, `SELECT 1 FROM `+ref.table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&one)
	return apperr.FromDB(err, ref.entity)
}

// RequireOptional is Require for nullable references.
func RequireOptional(ctx context.Context, db database.DBTX, ref Ref, tenantID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	return Require(ctx, db, ref, tenantID, *id)
}

// RequireAll checks every id and reports the first missing one.
func RequireAll(ctx context.Context, db database.DBTX, ref Ref, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var found int
	err := db.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM `+ref.table+` WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids).Scan(&found)
	if err != nil {
		return err
	}
	if found != len(uniq(ids)) {
		return apperr.NotFound("one or more " + ref.entity)
	}
	return nil
}

func uniq(ids []uuid.UUID) map[uuid.UUID]struct{} {
	m := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
