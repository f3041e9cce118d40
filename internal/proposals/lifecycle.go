// Package proposals handles submitted proposals and the contracts made from them.
package proposals

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/templates"
)

// Recompute sets the subtotal from the line items and the total from subtotal and tax.
func Recompute(p *models.Proposal) {
	sub := decimal.Zero
	for _, li := range p.LineItems {
		sub = sub.Add(li.Total)
	}
	p.Subtotal = sub
	p.Total = sub.Add(p.Tax)
}

// SetProposalStatus moves p to next. The first move away from SUBMITTED stamps reviewed_at.
func SetProposalStatus(p *models.Proposal, next models.ProposalStatus, now time.Time) error {
	if !next.Valid() {
		return apperr.Validation("invalid status %q", next)
	}
	if p.Status == models.ProposalSubmitted && next != models.ProposalSubmitted && p.ReviewedAt == nil {
		p.ReviewedAt = &now
	}
	p.Status = next
	return nil
}

// SetContractStatus moves c to next. SENT and SIGNED stamp their time once; a cancelled contract
// does not move.
func SetContractStatus(c *models.Contract, next models.ContractStatus, now time.Time) error {
	if !next.Valid() {
		return apperr.Validation("invalid status %q", next)
	}
	if c.Status == models.ContractCancelled && next != models.ContractCancelled {
		return apperr.BadRequest("contract is cancelled")
	}
	switch next {
	case models.ContractSent:
		if c.SentAt == nil {
			c.SentAt = &now
		}
	case models.ContractSigned:
		if c.SentAt == nil {
			c.SentAt = &now
		}
		if c.SignedAt == nil {
			c.SignedAt = &now
		}
	}
	c.Status = next
	return nil
}

// ContractFromProposal builds the draft contract for an accepted proposal.
func ContractFromProposal(p *models.Proposal, title string, clientID *uuid.UUID, alreadyConverted bool) (*models.Contract, error) {
	if p.Status != models.ProposalAccepted {
		return nil, apperr.BadRequest("only accepted proposals can be converted, proposal is %s", p.Status)
	}
	if alreadyConverted {
		return nil, apperr.Conflict("proposal already has a contract")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Contract"
		if p.ClientName != "" {
			title = "Contract for " + p.ClientName
		}
	}
	id := p.ID
	return &models.Contract{
		TenantID:    p.TenantID,
		ProposalID:  &id,
		LeadID:      p.LeadID,
		ClientID:    clientID,
		Title:       title,
		Status:      models.ContractDraft,
		TotalAmount: p.Total,
	}, nil
}

// FromQuote builds a submitted proposal priced from quote.
func FromQuote(tpl *templates.Template, q templates.Quote, now time.Time) *models.Proposal {
	id := tpl.ID
	p := &models.Proposal{
		TenantID:    tpl.TenantID,
		TemplateID:  &id,
		Status:      models.ProposalSubmitted,
		Tax:         q.Tax,
		SubmittedAt: now,
	}
	for i, l := range q.Lines {
		p.LineItems = append(p.LineItems, models.ProposalLineItem{
			Description: l.Label,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
			SortOrder:   i,
		})
	}
	Recompute(p)
	return p
}
