package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operator is a crew member who can be assigned to shifts and as a deliverable editor.
type Operator struct {
	ID          uuid.UUID           `json:"id"`
	TenantID    uuid.UUID           `json:"tenant_id"`
	Name        string              `json:"name"`
	Email       string              `json:"email,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	HourlyRate  decimal.NullDecimal `json:"hourly_rate"`
	PrimaryRole string              `json:"primary_role,omitempty"`
	IsActive    bool                `json:"is_active"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Skills []OperatorSkill `json:"skills,omitempty"`
}

// OperatorSkill is a named skill with a 1-5 proficiency level.
type OperatorSkill struct {
	ID         uuid.UUID `json:"id"`
	OperatorID uuid.UUID `json:"operator_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
}

// AvailabilityType describes an availability record.
type AvailabilityType string

const (
	AvailabilityFullDay     AvailabilityType = "FULL_DAY"
	AvailabilityPartial     AvailabilityType = "PARTIAL"
	AvailabilityUnavailable AvailabilityType = "UNAVAILABLE"
)

func (t AvailabilityType) Valid() bool {
	return t == AvailabilityFullDay || t == AvailabilityPartial || t == AvailabilityUnavailable
}

// OperatorAvailability is a per-day availability statement. Partial days carry a time window.
type OperatorAvailability struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	OperatorID uuid.UUID        `json:"operator_id"`
	Date       time.Time        `json:"date"`
	Type       AvailabilityType `json:"type"`
	StartTime  *time.Time       `json:"start_time,omitempty"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// BlackoutDate blocks an operator for whole days, StartDate through EndDate inclusive.
type BlackoutDate struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OperatorAssignment is an assignment joined with its shift and event, for history views.
type OperatorAssignment struct {
	AssignmentID  uuid.UUID       `json:"assignment_id"`
	ShiftID       uuid.UUID       `json:"shift_id"`
	ShiftName     string          `json:"shift_name"`
	EventID       uuid.UUID       `json:"event_id"`
	EventName     string          `json:"event_name"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Role          string          `json:"role"`
	PayType       PayType         `json:"pay_type"`
	CalculatedPay decimal.Decimal `json:"calculated_pay"`
}
