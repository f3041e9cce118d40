// Package campaigns runs email sequences against CRM leads: campaign and step management, lead
// enrollment, engagement tracking, and the worker side that sends due steps.
package campaigns

import (
	"bytes"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
)

// EmailEvent is an engagement signal for one campaign lead.
type EmailEvent string

const (
	EventSent         EmailEvent = "sent"
	EventOpened       EmailEvent = "opened"
	EventReplied      EmailEvent = "replied"
	EventUnsubscribed EmailEvent = "unsubscribed"
)

// rank orders lead statuses by engagement. Unsubscribed is terminal and handled apart.
var rank = map[models.CampaignLeadStatus]int{
	models.CampaignLeadPending: 0,
	models.CampaignLeadSent:    1,
	models.CampaignLeadOpened:  2,
	models.CampaignLeadReplied: 3,
}

// Counters is the campaign's aggregate engagement. Each counter includes the leads that went
// further: a replied lead counts as sent, opened and replied.
type Counters struct {
	Total   int
	Sent    int
	Opened  int
	Replied int
}

// Count aggregates lead statuses into counters.
func Count(statuses []models.CampaignLeadStatus) Counters {
	c := Counters{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case models.CampaignLeadReplied:
			c.Replied++
			c.Opened++
			c.Sent++
		case models.CampaignLeadOpened:
			c.Opened++
			c.Sent++
		case models.CampaignLeadSent:
			c.Sent++
		}
	}
	return c
}

func (c Counters) apply(to *models.Campaign) {
	to.TotalLeads = c.Total
	to.SentCount = c.Sent
	to.OpenedCount = c.Opened
	to.RepliedCount = c.Replied
}

func raise(cl *models.CampaignLead, to models.CampaignLeadStatus) {
	if rank[to] > rank[cl.Status] {
		cl.Status = to
	}
}

// ApplyEvent records ev on cl. Status only moves toward more engagement; an unsubscribed lead
// takes no further events.
func ApplyEvent(cl *models.CampaignLead, ev EmailEvent, now time.Time) error {
	if cl.Status == models.CampaignLeadUnsubscribed {
		return apperr.BadRequest("lead has unsubscribed from this campaign")
	}
	switch ev {
	case EventSent:
		raise(cl, models.CampaignLeadSent)
		cl.LastSentAt = &now
	case EventOpened:
		raise(cl, models.CampaignLeadOpened)
		if cl.OpenedAt == nil {
			cl.OpenedAt = &now
		}
	case EventReplied:
		raise(cl, models.CampaignLeadReplied)
		if cl.OpenedAt == nil {
			cl.OpenedAt = &now
		}
		if cl.RepliedAt == nil {
			cl.RepliedAt = &now
		}
	case EventUnsubscribed:
		cl.Status = models.CampaignLeadUnsubscribed
	default:
		return apperr.Validation("unknown email event %q", ev)
	}
	return nil
}

// NextStep returns the first step after the lead's current one.
func NextStep(steps []models.CampaignStep, current int) (models.CampaignStep, bool) {
	sorted := append([]models.CampaignStep(nil), steps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StepNumber < sorted[j].StepNumber })
	for _, s := range sorted {
		if s.StepNumber > current {
			return s, true
		}
	}
	return models.CampaignStep{}, false
}

// Due reports the step to send to cl at now, if any. The first step goes out as soon as the lead
// is enrolled; later steps wait DelayDays after the previous send. Leads that replied or
// unsubscribed get nothing more.
func Due(cl models.CampaignLead, steps []models.CampaignStep, now time.Time) (models.CampaignStep, bool) {
	if cl.Status == models.CampaignLeadReplied || cl.Status == models.CampaignLeadUnsubscribed {
		return models.CampaignStep{}, false
	}
	next, ok := NextStep(steps, cl.CurrentStep)
	if !ok {
		return models.CampaignStep{}, false
	}
	if cl.CurrentStep == 0 || cl.LastSentAt == nil {
		return next, true
	}
	if cl.LastSentAt.AddDate(0, 0, next.DelayDays).After(now) {
		return models.CampaignStep{}, false
	}
	return next, true
}

// MessageData is what step templates can reference.
type MessageData struct {
	FirstName    string
	ContactName  string
	Organization string
	Email        string
	CampaignName string
}

// DataFor builds template data from a campaign lead.
func DataFor(cl models.CampaignLead, campaignName string) MessageData {
	first := strings.TrimSpace(cl.LeadContactName)
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	return MessageData{
		FirstName:    first,
		ContactName:  cl.LeadContactName,
		Organization: cl.LeadOrg,
		Email:        cl.LeadEmail,
		CampaignName: campaignName,
	}
}

func parse(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// Render fills a step's subject and body.
func Render(step models.CampaignStep, data MessageData) (subject, body string, err error) {
	render := func(name, text string) (string, error) {
		t, err := parse(name, text)
		if err != nil {
			return "", err
		}
		var b bytes.Buffer
		if err := t.Execute(&b, data); err != nil {
			return "", err
		}
		return b.String(), nil
	}
	if subject, err = render("subject", step.Subject); err != nil {
		return "", "", apperr.Validation("step %d subject: %v", step.StepNumber, err)
	}
	if body, err = render("body", step.BodyTemplate); err != nil {
		return "", "", apperr.Validation("step %d body: %v", step.StepNumber, err)
	}
	return subject, body, nil
}

// ValidateStep checks a step and that its templates render against sample data.
func ValidateStep(s models.CampaignStep) error {
	if s.StepNumber < 1 {
		return apperr.Validation("step_number must be at least 1")
	}
	if s.DelayDays < 0 {
		return apperr.Validation("delay_days must not be negative")
	}
	if strings.TrimSpace(s.Subject) == "" {
		return apperr.Validation("subject is required")
	}
	_, _, err := Render(s, MessageData{})
	return err
}

// ValidateSteps checks every step and that step numbers are unique.
func ValidateSteps(steps []models.CampaignStep) error {
	seen := map[int]struct{}{}
	for _, s := range steps {
		if err := ValidateStep(s); err != nil {
			return err
		}
		if _, dup := seen[s.StepNumber]; dup {
			return apperr.Conflict("step number %d is used twice", s.StepNumber)
		}
		seen[s.StepNumber] = struct{}{}
	}
	return nil
}

// SetStatus moves c to next. Activating needs at least one step; a completed campaign stays completed.
func SetStatus(c *models.Campaign, next models.CampaignStatus, steps int) error {
	if !next.Valid() {
		return apperr.Validation("invalid status %q", next)
	}
	if c.Status == next {
		return nil
	}
	if c.Status == models.CampaignCompleted {
		return apperr.BadRequest("campaign is completed")
	}
	if next == models.CampaignDraft {
		return apperr.BadRequest("campaign cannot return to draft")
	}
	if next == models.CampaignActive && steps == 0 {
		return apperr.BadRequest("campaign has no steps")
	}
	c.Status = next
	return nil
}
