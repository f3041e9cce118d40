package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProposalStatus is the review state of a submitted proposal.
type ProposalStatus string

const (
	ProposalSubmitted ProposalStatus = "SUBMITTED"
	ProposalReviewing ProposalStatus = "REVIEWING"
	ProposalAccepted  ProposalStatus = "ACCEPTED"
	ProposalRejected  ProposalStatus = "REJECTED"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalSubmitted, ProposalReviewing, ProposalAccepted, ProposalRejected:
		return true
	}
	return false
}

// ProposalLineItem is one priced row of a proposal. Total = Quantity * UnitPrice.
type ProposalLineItem struct {
	ID          uuid.UUID       `json:"id"`
	ProposalID  uuid.UUID       `json:"proposal_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	SortOrder   int             `json:"sort_order"`
}

// Proposal is a filled-in template, submitted by a prospect or entered by staff.
type Proposal struct {
	ID          uuid.UUID          `json:"id"`
	TenantID    uuid.UUID          `json:"tenant_id"`
	TemplateID  *uuid.UUID         `json:"template_id,omitempty"`
	LeadID      *uuid.UUID         `json:"lead_id,omitempty"`
	ClientName  string             `json:"client_name,omitempty"`
	ClientEmail string             `json:"client_email,omitempty"`
	Status      ProposalStatus     `json:"status"`
	Responses   json.RawMessage    `json:"responses,omitempty"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	Tax         decimal.Decimal    `json:"tax"`
	Total       decimal.Decimal    `json:"total"`
	Notes       string             `json:"notes,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
	ReviewedAt  *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	LineItems   []ProposalLineItem `json:"line_items,omitempty"`
}

// ContractStatus is the signing state of a contract.
type ContractStatus string

const (
	ContractDraft     ContractStatus = "DRAFT"
	ContractSent      ContractStatus = "SENT"
	ContractSigned    ContractStatus = "SIGNED"
	ContractCancelled ContractStatus = "CANCELLED"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractSent, ContractSigned, ContractCancelled:
		return true
	}
	return false
}

// Contract is derived from an accepted proposal or created directly.
type Contract struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	ProposalID  *uuid.UUID      `json:"proposal_id,omitempty"`
	LeadID      *uuid.UUID      `json:"lead_id,omitempty"`
	ClientID    *uuid.UUID      `json:"client_id,omitempty"`
	Title       string          `json:"title"`
	Status      ContractStatus  `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Terms       string          `json:"terms,omitempty"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	SignedAt    *time.Time      `json:"signed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
