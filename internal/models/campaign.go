package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the run state of an email sequence.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

// CampaignLeadStatus is the furthest engagement reached by one lead in one campaign.
type CampaignLeadStatus string

const (
	CampaignLeadPending      CampaignLeadStatus = "PENDING"
	CampaignLeadSent         CampaignLeadStatus = "SENT"
	CampaignLeadOpened       CampaignLeadStatus = "OPENED"
	CampaignLeadReplied      CampaignLeadStatus = "REPLIED"
	CampaignLeadUnsubscribed CampaignLeadStatus = "UNSUBSCRIBED"
)

// Campaign is an email sequence. The counters are recomputed from campaign lead rows.
type Campaign struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	Name         string         `json:"name"`
	Status       CampaignStatus `json:"status"`
	TotalLeads   int            `json:"total_leads"`
	SentCount    int            `json:"sent_count"`
	OpenedCount  int            `json:"opened_count"`
	RepliedCount int            `json:"replied_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Steps []CampaignStep `json:"steps,omitempty"`
}

// CampaignStep is one numbered email in the sequence, sent DelayDays after the previous one.
type CampaignStep struct {
	ID           uuid.UUID `json:"id"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	StepNumber   int       `json:"step_number"`
	StepName     string    `json:"step_name"`
	Subject      string    `json:"subject"`
	BodyTemplate string    `json:"body_template"`
	DelayDays    int       `json:"delay_days"`
}

// CampaignLead is the per-lead send state.
type CampaignLead struct {
	ID          uuid.UUID          `json:"id"`
	CampaignID  uuid.UUID          `json:"campaign_id"`
	LeadID      uuid.UUID          `json:"lead_id"`
	Status      CampaignLeadStatus `json:"status"`
	CurrentStep int                `json:"current_step"`
	LastSentAt  *time.Time         `json:"last_sent_at,omitempty"`
	OpenedAt    *time.Time         `json:"opened_at,omitempty"`
	RepliedAt   *time.Time         `json:"replied_at,omitempty"`

	LeadEmail       string `json:"lead_email,omitempty"`
	LeadContactName string `json:"lead_contact_name,omitempty"`
	LeadOrg         string `json:"lead_organization,omitempty"`
}
