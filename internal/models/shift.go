package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift is a working window inside one event.
type Shift struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assignments []ShiftAssignment `json:"assignments,omitempty"`
}

// PayType selects how an assignment's pay is derived.
type PayType string

const (
	PayTypeHourly PayType = "HOURLY"
	PayTypeFlat   PayType = "FLAT"
)

func (p PayType) Valid() bool { return p == PayTypeHourly || p == PayTypeFlat }

// ShiftAssignment links one operator to one shift. CalculatedPay is derived from the pay fields
// and recomputed whenever they change.
type ShiftAssignment struct {
	ID             uuid.UUID           `json:"id"`
	TenantID       uuid.UUID           `json:"tenant_id"`
	ShiftID        uuid.UUID           `json:"shift_id"`
	OperatorID     uuid.UUID           `json:"operator_id"`
	Role           string              `json:"role"`
	PayType        PayType             `json:"pay_type"`
	HourlyRate     decimal.NullDecimal `json:"hourly_rate"`
	EstimatedHours decimal.NullDecimal `json:"estimated_hours"`
	ActualHours    decimal.NullDecimal `json:"actual_hours"`
	FlatRate       decimal.NullDecimal `json:"flat_rate"`
	CalculatedPay  decimal.Decimal     `json:"calculated_pay"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	OperatorName string `json:"operator_name,omitempty"`
}
