package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliverableStatus is the editing lifecycle of a deliverable.
type DeliverableStatus string

const (
	DeliverablePending    DeliverableStatus = "PENDING"
	DeliverableInProgress DeliverableStatus = "IN_PROGRESS"
	DeliverableCompleted  DeliverableStatus = "COMPLETED"
	DeliverableCancelled  DeliverableStatus = "CANCELLED"
)

var deliverableTransitions = map[DeliverableStatus][]DeliverableStatus{
	DeliverablePending:    {DeliverableInProgress, DeliverableCancelled},
	DeliverableInProgress: {DeliverableCompleted, DeliverableCancelled, DeliverablePending},
}

func (s DeliverableStatus) Valid() bool {
	switch s {
	case DeliverablePending, DeliverableInProgress, DeliverableCompleted, DeliverableCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a deliverable may move from s to next.
// COMPLETED and CANCELLED are terminal.
func (s DeliverableStatus) CanTransition(next DeliverableStatus) bool {
	for _, allowed := range deliverableTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliverablePriority orders the editing queue.
type DeliverablePriority string

const (
	PriorityLow      DeliverablePriority = "LOW"
	PriorityNormal   DeliverablePriority = "NORMAL"
	PriorityHigh     DeliverablePriority = "HIGH"
	PriorityUrgent   DeliverablePriority = "URGENT"
	PriorityCritical DeliverablePriority = "CRITICAL"
)

func (p DeliverablePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityCritical:
		return true
	}
	return false
}

// Deliverable is a post-production output owed for an event.
type Deliverable struct {
	ID                   uuid.UUID           `json:"id"`
	TenantID             uuid.UUID           `json:"tenant_id"`
	EventID              uuid.UUID           `json:"event_id"`
	Title                string              `json:"title"`
	DeliverableType      string              `json:"deliverable_type,omitempty"`
	Description          string              `json:"description,omitempty"`
	DueDate              *time.Time          `json:"due_date,omitempty"`
	Priority             DeliverablePriority `json:"priority"`
	Status               DeliverableStatus   `json:"status"`
	AssignedEditorID     *uuid.UUID          `json:"assigned_editor_id,omitempty"`
	CompletionPercentage int                 `json:"completion_percentage"`
	Notes                string              `json:"notes,omitempty"`
	DriveFolderURL       string              `json:"drive_folder_url,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`

	EventName  string `json:"event_name,omitempty"`
	EditorName string `json:"editor_name,omitempty"`
}
