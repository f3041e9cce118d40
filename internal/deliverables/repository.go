package deliverables

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const deliverableColumns = `d.id, d.tenant_id, d.event_id, d.title, d.deliverable_type, d.description, d.due_date, d.priority,
	d.status, d.assigned_editor_id, d.completion_percentage, d.notes, d.drive_folder_url, d.completed_at,
	d.created_at, d.updated_at, e.name, COALESCE(o.name, '')`

const deliverableFrom = ` FROM deliverables d JOIN events e ON e.id = d.event_id LEFT JOIN operators o ON o.id = d.assigned_editor_id`

// Repository handles deliverable persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a deliverables repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanDeliverable(row pgx.Row) (*models.Deliverable, error) {
	var d models.Deliverable
	var priority, status string
	if err := row.Scan(&d.ID, &d.TenantID, &d.EventID, &d.Title, &d.DeliverableType, &d.Description, &d.DueDate, &priority,
		&status, &d.AssignedEditorID, &d.CompletionPercentage, &d.Notes, &d.DriveFolderURL, &d.CompletedAt,
		&d.CreatedAt, &d.UpdatedAt, &d.EventName, &d.EditorName); err != nil {
		return nil, err
	}
	d.Priority = models.DeliverablePriority(priority)
	d.Status = models.DeliverableStatus(status)
	return &d, nil
}

// Filter narrows List.
type Filter struct {
	EventID  *uuid.UUID
	Status   *models.DeliverableStatus
	EditorID *uuid.UUID
}

// List returns deliverables by due date, undated last.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filter) ([]models.Deliverable, error) {
	where := []string{"d.tenant_id = $1"}
	args := []interface{}{tenantID}
	if f.EventID != nil {
		args = append(args, *f.EventID)
		where = append(where, fmt.Sprintf("d.event_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if f.EditorID != nil {
		args = append(args, *f.EditorID)
		where = append(where, fmt.Sprintf("d.assigned_editor_id = $%d", len(args)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+deliverableColumns+deliverableFrom+` WHERE `+strings.Join(where, " AND ")+
		` ORDER BY d.due_date NULLS LAST, d.created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Deliverable{}
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Deliverable, error) {
	d, err := scanDeliverable(r.db.QueryRow(ctx, `SELECT `+deliverableColumns+deliverableFrom+` WHERE d.id = $1 AND d.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "deliverable")
	}
	return d, nil
}

// RequireRefs checks the event and optional editor belong to the tenant.
func (r *Repository) RequireRefs(ctx context.Context, tenantID, eventID uuid.UUID, editorID *uuid.UUID) error {
	if err := tenancy.Require(ctx, r.db, tenancy.Event, tenantID, eventID); err != nil {
		return err
	}
	return tenancy.RequireOptional(ctx, r.db, tenancy.Operator, tenantID, editorID)
}

func (r *Repository) Create(ctx context.Context, d *models.Deliverable) error {
	err := r.db.QueryRow(ctx, `INSERT INTO deliverables (tenant_id, event_id, title, deliverable_type, description, due_date,
		priority, status, assigned_editor_id, completion_percentage, notes, drive_folder_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id, created_at, updated_at`,
		d.TenantID, d.EventID, d.Title, d.DeliverableType, d.Description, d.DueDate, string(d.Priority), string(d.Status),
		d.AssignedEditorID, d.CompletionPercentage, d.Notes, d.DriveFolderURL).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return apperr.FromDB(err, "deliverable")
}

// Update writes every mutable field, including status and completion.
func (r *Repository) Update(ctx context.Context, d *models.Deliverable) error {
	err := r.db.QueryRow(ctx, `UPDATE deliverables SET title = $3, deliverable_type = $4, description = $5, due_date = $6,
		priority = $7, status = $8, assigned_editor_id = $9, completion_percentage = $10, notes = $11,
		drive_folder_url = $12, completed_at = $13, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		d.ID, d.TenantID, d.Title, d.DeliverableType, d.Description, d.DueDate, string(d.Priority), string(d.Status),
		d.AssignedEditorID, d.CompletionPercentage, d.Notes, d.DriveFolderURL, d.CompletedAt).Scan(&d.UpdatedAt)
	return apperr.FromDB(err, "deliverable")
}
