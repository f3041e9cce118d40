package gear

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/testutil"
)

// refDB answers the reference lookups and the insert issued by Repository.Assign.
type refDB struct {
	tenantID    uuid.UUID
	shiftEvents map[uuid.UUID]uuid.UUID
	kitGear     map[uuid.UUID][]uuid.UUID
	inserted    int
}

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: want %d columns, got %d", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = r.vals[i].(int)
		case *bool:
			*p = r.vals[i].(bool)
		case *uuid.UUID:
			*p = r.vals[i].(uuid.UUID)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported %T", d)
		}
	}
	return nil
}

func (db *refDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	switch {
	case strings.HasPrefix(sql, "SELECT 1 FROM"):
		if args[1].(uuid.UUID) != db.tenantID {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []interface{}{1}}
	case strings.Contains(sql, "FROM kit_gear"):
		for _, g := range db.kitGear[args[0].(uuid.UUID)] {
			if g == args[1].(uuid.UUID) {
				return fakeRow{vals: []interface{}{true}}
			}
		}
		return fakeRow{vals: []interface{}{false}}
	case strings.Contains(sql, "FROM shifts"):
		ev, ok := db.shiftEvents[args[0].(uuid.UUID)]
		if !ok || args[1].(uuid.UUID) != db.tenantID {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []interface{}{ev}}
	case strings.HasPrefix(sql, "INSERT INTO gear_assignments"):
		db.inserted++
		now := time.Now()
		return fakeRow{vals: []interface{}{uuid.New(), now, now}}
	}
	return fakeRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (db *refDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("exec not supported")
}

func (db *refDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (db *refDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("begin not supported")
}

func TestAssignChecksShiftEventAndKitMembership(t *testing.T) {
	tenantID := uuid.New()
	recital, gala := uuid.New(), uuid.New()
	recitalShift, galaShift := uuid.New(), uuid.New()
	camera, mic := uuid.New(), uuid.New()
	audioKit := uuid.New()
	db := &refDB{
		tenantID:    tenantID,
		shiftEvents: map[uuid.UUID]uuid.UUID{recitalShift: recital, galaShift: gala},
		kitGear:     map[uuid.UUID][]uuid.UUID{audioKit: {mic}},
	}

	h := NewHandler(NewRepository(db), nil)
	r := testutil.Router(tenantID)
	r.POST("/gear-assignments", h.Assign)

	w := testutil.Do(r, http.MethodPost, "/gear-assignments", gin.H{
		"gear_id": camera, "event_id": recital, "shift_id": galaShift,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = testutil.Do(r, http.MethodPost, "/gear-assignments", gin.H{
		"gear_id": camera, "event_id": recital, "shift_id": uuid.New(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = testutil.Do(r, http.MethodPost, "/gear-assignments", gin.H{
		"gear_id": camera, "event_id": recital, "kit_id": audioKit,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Zero(t, db.inserted)

	w = testutil.Do(r, http.MethodPost, "/gear-assignments", gin.H{
		"gear_id": mic, "event_id": recital, "kit_id": audioKit, "shift_id": recitalShift,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, db.inserted)
}
