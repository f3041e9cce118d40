package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ClientStatus is the account standing of a client.
type ClientStatus string

const (
	ClientStatusActive      ClientStatus = "ACTIVE"
	ClientStatusInactive    ClientStatus = "INACTIVE"
	ClientStatusBlacklisted ClientStatus = "BLACKLISTED"
)

func (s ClientStatus) Valid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive || s == ClientStatusBlacklisted
}

// Client is a paying customer.
type Client struct {
	ID             uuid.UUID    `json:"id"`
	TenantID       uuid.UUID    `json:"tenant_id"`
	LeadID         *uuid.UUID   `json:"lead_id,omitempty"`
	Name           string       `json:"name"`
	ContactName    string       `json:"contact_name,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	AddressLine1   string       `json:"address_line1,omitempty"`
	AddressLine2   string       `json:"address_line2,omitempty"`
	City           string       `json:"city,omitempty"`
	Province       string       `json:"province,omitempty"`
	PostalCode     string       `json:"postal_code,omitempty"`
	Country        string       `json:"country,omitempty"`
	Status         ClientStatus `json:"status"`
	LifecycleStage string       `json:"lifecycle_stage,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// LeadStatus is a lead's position in the sales pipeline.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "NEW"
	LeadStatusContacted    LeadStatus = "CONTACTED"
	LeadStatusQualified    LeadStatus = "QUALIFIED"
	LeadStatusProposalSent LeadStatus = "PROPOSAL_SENT"
	LeadStatusEngaged      LeadStatus = "ENGAGED"
	LeadStatusConverted    LeadStatus = "CONVERTED"
	LeadStatusLost         LeadStatus = "LOST"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusProposalSent,
		LeadStatusEngaged, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Lead is a prospect. SourceDetails is a free-form JSON bag supplied by the capture source.
type Lead struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Organization  string          `json:"organization,omitempty"`
	ContactName   string          `json:"contact_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	Source        string          `json:"source,omitempty"`
	SourceDetails json.RawMessage `json:"source_details,omitempty"`
	Status        LeadStatus      `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InteractionType is the channel of a CRM touchpoint.
type InteractionType string

const (
	InteractionEmail   InteractionType = "EMAIL"
	InteractionCall    InteractionType = "CALL"
	InteractionMeeting InteractionType = "MEETING"
	InteractionNote    InteractionType = "NOTE"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionEmail, InteractionCall, InteractionMeeting, InteractionNote:
		return true
	}
	return false
}

// Interaction is a logged touchpoint with a client or a lead.
type Interaction struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	ClientID   *uuid.UUID      `json:"client_id,omitempty"`
	LeadID     *uuid.UUID      `json:"lead_id,omitempty"`
	Type       InteractionType `json:"type"`
	Summary    string          `json:"summary"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedBy  *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SavedSearch is a user's named set of filters for a search screen. Filters is an
// opaque JSON object owned by the client.
type SavedSearch struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Name        string          `json:"name"`
	SearchType  string          `json:"search_type"`
	Filters     json.RawMessage `json:"filters"`
	ResultCount int             `json:"result_count"`
	LastUsedAt  *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
