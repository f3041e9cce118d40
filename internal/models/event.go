package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventStatus is the booking state of an event.
type EventStatus string

const (
	EventStatusTentative EventStatus = "TENTATIVE"
	EventStatusProposal  EventStatus = "PROPOSAL"
	EventStatusBooked    EventStatus = "BOOKED"
	EventStatusConfirmed EventStatus = "CONFIRMED"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusArchived  EventStatus = "ARCHIVED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusTentative, EventStatusProposal, EventStatusBooked, EventStatusConfirmed,
		EventStatusCompleted, EventStatusCancelled, EventStatusArchived:
		return true
	}
	return false
}

// EventType categorises events for reporting.
type EventType string

const (
	EventTypeDanceCompetition EventType = "DANCE_COMPETITION"
	EventTypeRecital          EventType = "RECITAL"
	EventTypeConcert          EventType = "CONCERT"
	EventTypePlay             EventType = "PLAY"
	EventTypeCorporate        EventType = "CORPORATE"
	EventTypeWedding          EventType = "WEDDING"
	EventTypeOther            EventType = "OTHER"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeDanceCompetition, EventTypeRecital, EventTypeConcert, EventTypePlay,
		EventTypeCorporate, EventTypeWedding, EventTypeOther:
		return true
	}
	return false
}

// EventHotel is the optional travel sub-record of an event.
type EventHotel struct {
	HasHotel bool       `json:"has_hotel"`
	Name     string     `json:"name,omitempty"`
	Address  string     `json:"address,omitempty"`
	CheckIn  *time.Time `json:"check_in,omitempty"`
	CheckOut *time.Time `json:"check_out,omitempty"`
}

// Event is a booked production. LoadInTime..LoadOutTime is the window crew and gear are committed.
type Event struct {
	ID               uuid.UUID           `json:"id"`
	TenantID         uuid.UUID           `json:"tenant_id"`
	ClientID         *uuid.UUID          `json:"client_id,omitempty"`
	Name             string              `json:"name"`
	EventType        EventType           `json:"event_type"`
	Status           EventStatus         `json:"status"`
	VenueName        string              `json:"venue_name"`
	VenueAddress     string              `json:"venue_address"`
	LoadInTime       time.Time           `json:"load_in_time"`
	LoadOutTime      time.Time           `json:"load_out_time"`
	ClientName       string              `json:"client_name,omitempty"`
	ClientEmail      string              `json:"client_email,omitempty"`
	ClientPhone      string              `json:"client_phone,omitempty"`
	ProjectedRevenue decimal.NullDecimal `json:"projected_revenue"`
	ActualRevenue    decimal.NullDecimal `json:"actual_revenue"`
	Hotel            EventHotel          `json:"hotel"`
	DriveFolderID    string              `json:"drive_folder_id,omitempty"`
	DriveFolderURL   string              `json:"drive_folder_url,omitempty"`
	ChatGroupID      string              `json:"chat_group_id,omitempty"`
	LivestreamID     string              `json:"livestream_id,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	Shifts []Shift `json:"shifts,omitempty"`
}

// CalendarEvent is an event in the month view with its staffing counts.
type CalendarEvent struct {
	Event
	ShiftCount      int `json:"shift_count"`
	AssignmentCount int `json:"assignment_count"`
}
