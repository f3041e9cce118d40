package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceTemplate is a reusable service package used to prefill quotes and events.
type ServiceTemplate struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	DefaultDurationHours int             `json:"default_duration_hours"`
	DefaultPrice         decimal.Decimal `json:"default_price"`
	DefaultOperatorCount int             `json:"default_operator_count"`
	DeliverableTypes     []string        `json:"deliverable_types"`
	EventType            *EventType      `json:"event_type,omitempty"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
