package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const eventColumns = `id, tenant_id, client_id, name, event_type, status, venue_name, venue_address,
	load_in_time, load_out_time, client_name, client_email, client_phone, projected_revenue, actual_revenue,
	has_hotel, hotel_name, hotel_address, hotel_check_in, hotel_check_out,
	drive_folder_id, drive_folder_url, chat_group_id, livestream_id, notes, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an events repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var eventType, status string
	err := row.Scan(&e.ID, &e.TenantID, &e.ClientID, &e.Name, &eventType, &status, &e.VenueName, &e.VenueAddress,
		&e.LoadInTime, &e.LoadOutTime, &e.ClientName, &e.ClientEmail, &e.ClientPhone, &e.ProjectedRevenue, &e.ActualRevenue,
		&e.Hotel.HasHotel, &e.Hotel.Name, &e.Hotel.Address, &e.Hotel.CheckIn, &e.Hotel.CheckOut,
		&e.DriveFolderID, &e.DriveFolderURL, &e.ChatGroupID, &e.LivestreamID, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.EventType = models.EventType(eventType)
	e.Status = models.EventStatus(status)
	return &e, nil
}

// Filter narrows List. From/To select events whose window overlaps [From, To).
type Filter struct {
	Status *models.EventStatus
	From   *time.Time
	To     *time.Time
}

// List returns the tenant's events ordered by load-in.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Event, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("load_out_time > $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("load_in_time < $%d", len(args)))
	}
	q := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ") + ` ORDER BY load_in_time`
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// GetByID returns an event of the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "event")
	}
	return e, nil
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (tenant_id, client_id, name, event_type, status, venue_name, venue_address,
		load_in_time, load_out_time, client_name, client_email, client_phone, projected_revenue, actual_revenue,
		has_hotel, hotel_name, hotel_address, hotel_check_in, hotel_check_out,
		drive_folder_id, drive_folder_url, chat_group_id, livestream_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, e.TenantID, e.ClientID, e.Name, string(e.EventType), string(e.Status), e.VenueName, e.VenueAddress,
		e.LoadInTime, e.LoadOutTime, e.ClientName, e.ClientEmail, e.ClientPhone, e.ProjectedRevenue, e.ActualRevenue,
		e.Hotel.HasHotel, e.Hotel.Name, e.Hotel.Address, e.Hotel.CheckIn, e.Hotel.CheckOut,
		e.DriveFolderID, e.DriveFolderURL, e.ChatGroupID, e.LivestreamID, e.Notes).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return apperr.FromDB(err, "event")
}

// Update writes every mutable field of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET client_id = $3, name = $4, event_type = $5, status = $6, venue_name = $7, venue_address = $8,
		load_in_time = $9, load_out_time = $10, client_name = $11, client_email = $12, client_phone = $13,
		projected_revenue = $14, actual_revenue = $15, has_hotel = $16, hotel_name = $17, hotel_address = $18,
		hotel_check_in = $19, hotel_check_out = $20, drive_folder_id = $21, drive_folder_url = $22,
		chat_group_id = $23, livestream_id = $24, notes = $25, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, e.ID, e.TenantID, e.ClientID, e.Name, string(e.EventType), string(e.Status), e.VenueName, e.VenueAddress,
		e.LoadInTime, e.LoadOutTime, e.ClientName, e.ClientEmail, e.ClientPhone, e.ProjectedRevenue, e.ActualRevenue,
		e.Hotel.HasHotel, e.Hotel.Name, e.Hotel.Address, e.Hotel.CheckIn, e.Hotel.CheckOut,
		e.DriveFolderID, e.DriveFolderURL, e.ChatGroupID, e.LivestreamID, e.Notes).Scan(&e.UpdatedAt)
	return apperr.FromDB(err, "event")
}

// SetStatus flips an event's status. Deleting and archiving are status changes.
func (r *Repository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.EventStatus) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `UPDATE events SET status = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING `+eventColumns, id, tenantID, string(status)))
	if err != nil {
		return nil, apperr.FromDB(err, "event")
	}
	return e, nil
}

// SetDriveFolder records the event's drive folder.
func (r *Repository) SetDriveFolder(ctx context.Context, tenantID, id uuid.UUID, folderID, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE events SET drive_folder_id = $3, drive_folder_url = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID, folderID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

// EventOnDay returns the earliest live event loading in on the calendar day [day, day+24h).
// It returns nil, nil when nothing loads in that day.
func (r *Repository) EventOnDay(ctx context.Context, tenantID uuid.UUID, day time.Time) (*models.Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events
		WHERE tenant_id = $1 AND load_in_time >= $2 AND load_in_time < $3 AND status NOT IN ('CANCELLED', 'ARCHIVED')
		ORDER BY load_in_time LIMIT 1`, tenantID, start, end))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MonthView returns events overlapping the given month with shift and assignment counts.
func (r *Repository) MonthView(ctx context.Context, tenantID uuid.UUID, year int, month time.Month) ([]models.CalendarEvent, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	q := `SELECT ` + prefixed("e", eventColumns) + `,
		(SELECT COUNT(*) FROM shifts s WHERE s.event_id = e.id),
		(SELECT COUNT(*) FROM shift_assignments sa JOIN shifts s ON s.id = sa.shift_id WHERE s.event_id = e.id)
		FROM events e
		WHERE e.tenant_id = $1 AND e.load_in_time < $3 AND e.load_out_time > $2 AND e.status <> 'ARCHIVED'
		ORDER BY e.load_in_time`
	rows, err := r.db.Query(ctx, q, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.CalendarEvent{}
	for rows.Next() {
		var ce models.CalendarEvent
		e := &ce.Event
		var eventType, status string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ClientID, &e.Name, &eventType, &status, &e.VenueName, &e.VenueAddress,
			&e.LoadInTime, &e.LoadOutTime, &e.ClientName, &e.ClientEmail, &e.ClientPhone, &e.ProjectedRevenue, &e.ActualRevenue,
			&e.Hotel.HasHotel, &e.Hotel.Name, &e.Hotel.Address, &e.Hotel.CheckIn, &e.Hotel.CheckOut,
			&e.DriveFolderID, &e.DriveFolderURL, &e.ChatGroupID, &e.LivestreamID, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
			&ce.ShiftCount, &ce.AssignmentCount); err != nil {
			return nil, err
		}
		e.EventType = models.EventType(eventType)
		e.Status = models.EventStatus(status)
		list = append(list, ce)
	}
	return list, rows.Err()
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// RequireClient checks that clientID belongs to the tenant.
func (r *Repository) RequireClient(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) error {
	return tenancy.RequireOptional(ctx, r.db, tenancy.Client, tenantID, clientID)
}
