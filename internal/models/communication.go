package models

import (
	"time"

	"github.com/google/uuid"
)

// TouchpointType is a milestone in the client communication lifecycle.
type TouchpointType string

const (
	TouchpointInitialContact         TouchpointType = "INITIAL_CONTACT"
	TouchpointProposalSent           TouchpointType = "PROPOSAL_SENT"
	TouchpointContractSent           TouchpointType = "CONTRACT_SENT"
	TouchpointContractSigned         TouchpointType = "CONTRACT_SIGNED"
	TouchpointQuestionnaireSent      TouchpointType = "QUESTIONNAIRE_SENT"
	TouchpointQuestionnaireCompleted TouchpointType = "QUESTIONNAIRE_COMPLETED"
	TouchpointInvoiceSent            TouchpointType = "INVOICE_SENT"
	TouchpointInvoicePaid            TouchpointType = "INVOICE_PAID"
	TouchpointPreEventReminder       TouchpointType = "PRE_EVENT_REMINDER"
	TouchpointPostEventFollowup      TouchpointType = "POST_EVENT_FOLLOWUP"
)

func (t TouchpointType) Valid() bool {
	switch t {
	case TouchpointInitialContact, TouchpointProposalSent, TouchpointContractSent, TouchpointContractSigned,
		TouchpointQuestionnaireSent, TouchpointQuestionnaireCompleted, TouchpointInvoiceSent, TouchpointInvoicePaid,
		TouchpointPreEventReminder, TouchpointPostEventFollowup:
		return true
	}
	return false
}

type TouchpointStatus string

const (
	TouchpointPending   TouchpointStatus = "PENDING"
	TouchpointScheduled TouchpointStatus = "SCHEDULED"
	TouchpointCompleted TouchpointStatus = "COMPLETED"
	TouchpointSkipped   TouchpointStatus = "SKIPPED"
)

func (s TouchpointStatus) Valid() bool {
	switch s {
	case TouchpointPending, TouchpointScheduled, TouchpointCompleted, TouchpointSkipped:
		return true
	}
	return false
}

// Touchpoint tracks one lifecycle milestone for an event, a client or a lead.
// At least one of the three references is set.
type Touchpoint struct {
	ID          uuid.UUID        `json:"id"`
	TenantID    uuid.UUID        `json:"tenant_id"`
	EventID     *uuid.UUID       `json:"event_id,omitempty"`
	ClientID    *uuid.UUID       `json:"client_id,omitempty"`
	LeadID      *uuid.UUID       `json:"lead_id,omitempty"`
	Type        TouchpointType   `json:"type"`
	Status      TouchpointStatus `json:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// EmailType is the trigger an automated email is configured for.
type EmailType string

const (
	EmailShowProgramReminder   EmailType = "SHOW_PROGRAM_REMINDER"
	EmailRebookingFollowup     EmailType = "REBOOKING_FOLLOWUP"
	EmailContractReminder      EmailType = "CONTRACT_REMINDER"
	EmailQuestionnaireReminder EmailType = "QUESTIONNAIRE_REMINDER"
	EmailPaymentReminder       EmailType = "PAYMENT_REMINDER"
	EmailDeliveryNotification  EmailType = "DELIVERY_NOTIFICATION"
	EmailThankYouFeedback      EmailType = "THANK_YOU_FEEDBACK"
)

func (t EmailType) Valid() bool {
	switch t {
	case EmailShowProgramReminder, EmailRebookingFollowup, EmailContractReminder, EmailQuestionnaireReminder,
		EmailPaymentReminder, EmailDeliveryNotification, EmailThankYouFeedback:
		return true
	}
	return false
}

// EmailConfig is a tenant's template for one automated email type. SendDelayHours is
// relative to the trigger; nil sends immediately.
type EmailConfig struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	EmailType      EmailType `json:"email_type"`
	Subject        string    `json:"subject"`
	BodyTemplate   string    `json:"body_template"`
	IsActive       bool      `json:"is_active"`
	SendDelayHours *int      `json:"send_delay_hours,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
