package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/pkg/mailer"
	"github.com/commandcentered/backend/pkg/queue"
)

// dispatchBatch caps the sends enqueued per tick.
const dispatchBatch = 500

// DueFinder lists sends that are due.
type DueFinder interface {
	DueSends(ctx context.Context, now time.Time, limit int) ([]DueSend, error)
}

// Enqueuer queues campaign emails. *queue.Queue implements it.
type Enqueuer interface {
	EnqueueCampaignEmail(ctx context.Context, payload queue.CampaignEmailPayload) error
}

// Dispatcher finds due steps and queues them for the sender.
type Dispatcher struct {
	store  DueFinder
	queue  Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store DueFinder, q Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, queue: q, logger: logger, now: time.Now}
}

// Dispatch enqueues every due send and returns how many were queued.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	due, err := d.store.DueSends(ctx, d.now(), dispatchBatch)
	if err != nil {
		return 0, fmt.Errorf("find due sends: %w", err)
	}
	queued := 0
	for _, s := range due {
		err := d.queue.EnqueueCampaignEmail(ctx, queue.CampaignEmailPayload{
			TenantID:       s.TenantID,
			CampaignID:     s.CampaignID,
			CampaignLeadID: s.CampaignLeadID,
			StepNumber:     s.StepNumber,
		})
		if err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// Run is the cron entry point.
func (d *Dispatcher) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	n, err := d.Dispatch(ctx)
	if err != nil {
		d.logger.Error("campaign dispatch failed", zap.Int("queued", n), zap.Error(err))
		return
	}
	d.logger.Info("campaign dispatch complete", zap.Int("queued", n))
}

// SendStore loads and records campaign sends.
type SendStore interface {
	LoadTarget(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, stepNumber int) (*SendTarget, error)
	MarkSent(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, stepNumber int, now time.Time) error
}

// Mailer delivers one message. *mailer.SMTP implements it.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Sender processes campaign_email jobs.
type Sender struct {
	store  SendStore
	mail   Mailer
	logger *zap.Logger
	now    func() time.Time
}

// NewSender creates a sender.
func NewSender(store SendStore, mail Mailer, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{store: store, mail: mail, logger: logger, now: time.Now}
}

// Process sends one queued step. Jobs that no longer apply (campaign paused, lead replied or
// unsubscribed, step already sent) are dropped without error.
func (s *Sender) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeCampaignEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var p queue.CampaignEmailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	log := s.logger.With(zap.String("job_id", job.ID), zap.String("campaign_lead_id", p.CampaignLeadID.String()),
		zap.Int("step", p.StepNumber))

	t, err := s.store.LoadTarget(ctx, p.TenantID, p.CampaignID, p.CampaignLeadID, p.StepNumber)
	if apperr.IsNotFound(err) {
		log.Info("campaign send target is gone, dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	if reason := skipReason(t); reason != "" {
		log.Info("campaign send skipped", zap.String("reason", reason))
		return nil
	}

	subject, body, err := Render(t.Step, DataFor(*t.Lead, t.Campaign.Name))
	if err != nil {
		log.Warn("campaign step does not render, dropping job", zap.Error(err))
		return nil
	}
	if err := s.mail.Send(ctx, mailer.Message{To: t.Lead.LeadEmail, Subject: subject, Body: body}); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			log.Warn("smtp not configured, campaign email not sent")
		}
		return err
	}
	if err := s.store.MarkSent(ctx, p.TenantID, p.CampaignID, p.CampaignLeadID, p.StepNumber, s.now()); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	log.Info("campaign email sent")
	return nil
}

func skipReason(t *SendTarget) string {
	switch {
	case t.Campaign.Status != models.CampaignActive:
		return "campaign is " + string(t.Campaign.Status)
	case t.Lead.Status == models.CampaignLeadReplied || t.Lead.Status == models.CampaignLeadUnsubscribed:
		return "lead is " + string(t.Lead.Status)
	case t.Lead.CurrentStep >= t.Step.StepNumber:
		return "step already sent"
	case t.Lead.LeadEmail == "":
		return "lead has no email"
	}
	return ""
}
