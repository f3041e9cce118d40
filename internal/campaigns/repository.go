package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
	"github.com/commandcentered/backend/internal/tenancy"
	"github.com/commandcentered/backend/pkg/database"
)

const campaignColumns = `id, tenant_id, name, status, total_leads, sent_count, opened_count, replied_count, created_at, updated_at`

const stepColumns = `id, campaign_id, step_number, step_name, subject, body_template, delay_days`

const campaignLeadColumns = `cl.id, cl.campaign_id, cl.lead_id, cl.status, cl.current_step, cl.last_sent_at, cl.opened_at,
	cl.replied_at, l.email, l.contact_name, l.organization`

// Repository persists campaigns, steps and campaign leads.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a campaign repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// RunInTx runs fn with a repository bound to one transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(*Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var status string
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &status, &c.TotalLeads, &c.SentCount, &c.OpenedCount,
		&c.RepliedCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = models.CampaignStatus(status)
	return &c, nil
}

func scanCampaignLead(row pgx.Row) (*models.CampaignLead, error) {
	var cl models.CampaignLead
	var status string
	if err := row.Scan(&cl.ID, &cl.CampaignID, &cl.LeadID, &status, &cl.CurrentStep, &cl.LastSentAt, &cl.OpenedAt,
		&cl.RepliedAt, &cl.LeadEmail, &cl.LeadContactName, &cl.LeadOrg); err != nil {
		return nil, err
	}
	cl.Status = models.CampaignLeadStatus(status)
	return &cl, nil
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *models.CampaignStatus) ([]models.Campaign, error) {
	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}
	rows, err := r.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`, tenantID, st)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Get returns a campaign with its steps.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 AND tenant_id = $2`,
		id, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "campaign")
	}
	if c.Steps, err = r.Steps(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) Steps(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignStep, error) {
	rows, err := r.db.Query(ctx, `SELECT `+stepColumns+` FROM campaign_steps WHERE campaign_id = $1 ORDER BY step_number`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	steps := []models.CampaignStep{}
	for rows.Next() {
		var s models.CampaignStep
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.StepNumber, &s.StepName, &s.Subject, &s.BodyTemplate, &s.DelayDays); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// Create inserts c and its steps.
func (r *Repository) Create(ctx context.Context, c *models.Campaign) error {
	return r.RunInTx(ctx, func(tx *Repository) error {
		err := tx.db.QueryRow(ctx, `INSERT INTO campaigns (tenant_id, name, status) VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`, c.TenantID, c.Name, string(c.Status)).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return apperr.FromDB(err, "campaign")
		}
		for i := range c.Steps {
			c.Steps[i].CampaignID = c.ID
			if err := tx.CreateStep(ctx, c.TenantID, &c.Steps[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) Update(ctx context.Context, c *models.Campaign) error {
	err := r.db.QueryRow(ctx, `UPDATE campaigns SET name = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 RETURNING updated_at`,
		c.ID, c.TenantID, c.Name, string(c.Status)).Scan(&c.UpdatedAt)
	return apperr.FromDB(err, "campaign")
}

// Delete removes a campaign with its steps and leads.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return apperr.FromDB(err, "campaign")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign")
	}
	return nil
}

func (r *Repository) CreateStep(ctx context.Context, tenantID uuid.UUID, s *models.CampaignStep) error {
	err := r.db.QueryRow(ctx, `INSERT INTO campaign_steps (tenant_id, campaign_id, step_number, step_name, subject, body_template, delay_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		tenantID, s.CampaignID, s.StepNumber, s.StepName, s.Subject, s.BodyTemplate, s.DelayDays).Scan(&s.ID)
	return apperr.FromDB(err, "campaign step")
}

func (r *Repository) UpdateStep(ctx context.Context, tenantID uuid.UUID, s *models.CampaignStep) error {
	tag, err := r.db.Exec(ctx, `UPDATE campaign_steps SET step_number = $4, step_name = $5, subject = $6, body_template = $7,
		delay_days = $8 WHERE id = $1 AND campaign_id = $2 AND tenant_id = $3`,
		s.ID, s.CampaignID, tenantID, s.StepNumber, s.StepName, s.Subject, s.BodyTemplate, s.DelayDays)
	if err != nil {
		return apperr.FromDB(err, "campaign step")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign step")
	}
	return nil
}

func (r *Repository) DeleteStep(ctx context.Context, tenantID, campaignID, stepID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM campaign_steps WHERE id = $1 AND campaign_id = $2 AND tenant_id = $3`,
		stepID, campaignID, tenantID)
	if err != nil {
		return apperr.FromDB(err, "campaign step")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign step")
	}
	return nil
}

func (r *Repository) ListLeads(ctx context.Context, tenantID, campaignID uuid.UUID) ([]models.CampaignLead, error) {
	rows, err := r.db.Query(ctx, `SELECT `+campaignLeadColumns+` FROM campaign_leads cl
		JOIN leads l ON l.id = cl.lead_id
		WHERE cl.campaign_id = $1 AND cl.tenant_id = $2
		ORDER BY l.contact_name`, campaignID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.CampaignLead{}
	for rows.Next() {
		cl, err := scanCampaignLead(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cl)
	}
	return list, rows.Err()
}

// GetLead returns one campaign lead. forUpdate locks the row for the caller's transaction.
func (r *Repository) GetLead(ctx context.Context, tenantID, campaignLeadID uuid.UUID, forUpdate bool) (*models.CampaignLead, error) {
	q := `SELECT ` + campaignLeadColumns + ` FROM campaign_leads cl
		JOIN leads l ON l.id = cl.lead_id
		WHERE cl.id = $1 AND cl.tenant_id = $2`
	if forUpdate {
		q += ` FOR UPDATE OF cl`
	}
	cl, err := scanCampaignLead(r.db.QueryRow(ctx, q, campaignLeadID, tenantID))
	if err != nil {
		return nil, apperr.FromDB(err, "campaign lead")
	}
	return cl, nil
}

// AddLeads enrolls leads, skipping those already enrolled, and refreshes the counters.
func (r *Repository) AddLeads(ctx context.Context, tenantID, campaignID uuid.UUID, leadIDs []uuid.UUID) (*models.Campaign, error) {
	var out *models.Campaign
	err := r.RunInTx(ctx, func(tx *Repository) error {
		if err := tenancy.Require(ctx, tx.db, tenancy.Campaign, tenantID, campaignID); err != nil {
			return err
		}
		if err := tenancy.RequireAll(ctx, tx.db, tenancy.Lead, tenantID, leadIDs); err != nil {
			return err
		}
		if _, err := tx.db.Exec(ctx, `INSERT INTO campaign_leads (tenant_id, campaign_id, lead_id, status)
			SELECT $1, $2, unnest($3::uuid[]), 'PENDING'
			ON CONFLICT (campaign_id, lead_id) DO NOTHING`, tenantID, campaignID, leadIDs); err != nil {
			return apperr.FromDB(err, "campaign lead")
		}
		var err error
		out, err = tx.Recount(ctx, tenantID, campaignID)
		return err
	})
	return out, err
}

// RemoveLeads unenrolls leads and refreshes the counters.
func (r *Repository) RemoveLeads(ctx context.Context, tenantID, campaignID uuid.UUID, leadIDs []uuid.UUID) (*models.Campaign, error) {
	var out *models.Campaign
	err := r.RunInTx(ctx, func(tx *Repository) error {
		if err := tenancy.Require(ctx, tx.db, tenancy.Campaign, tenantID, campaignID); err != nil {
			return err
		}
		if _, err := tx.db.Exec(ctx, `DELETE FROM campaign_leads WHERE tenant_id = $1 AND campaign_id = $2 AND lead_id = ANY($3)`,
			tenantID, campaignID, leadIDs); err != nil {
			return err
		}
		var err error
		out, err = tx.Recount(ctx, tenantID, campaignID)
		return err
	})
	return out, err
}

// Recount stores counters derived from the campaign's lead statuses.
func (r *Repository) Recount(ctx context.Context, tenantID, campaignID uuid.UUID) (*models.Campaign, error) {
	rows, err := r.db.Query(ctx, `SELECT status FROM campaign_leads WHERE campaign_id = $1 AND tenant_id = $2`,
		campaignID, tenantID)
	if err != nil {
		return nil, err
	}
	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CampaignLeadStatus, error) {
		var s string
		err := row.Scan(&s)
		return models.CampaignLeadStatus(s), err
	})
	if err != nil {
		return nil, err
	}
	counts := Count(statuses)
	c, err := scanCampaign(r.db.QueryRow(ctx, `UPDATE campaigns SET total_leads = $3, sent_count = $4, opened_count = $5,
		replied_count = $6, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+campaignColumns, campaignID, tenantID, counts.Total, counts.Sent, counts.Opened, counts.Replied))
	if err != nil {
		return nil, apperr.FromDB(err, "campaign")
	}
	return c, nil
}

func (r *Repository) UpdateLead(ctx context.Context, tenantID uuid.UUID, cl *models.CampaignLead) error {
	tag, err := r.db.Exec(ctx, `UPDATE campaign_leads SET status = $3, current_step = $4, last_sent_at = $5, opened_at = $6,
		replied_at = $7, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
		cl.ID, tenantID, string(cl.Status), cl.CurrentStep, cl.LastSentAt, cl.OpenedAt, cl.RepliedAt)
	if err != nil {
		return apperr.FromDB(err, "campaign lead")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign lead")
	}
	return nil
}

// Track applies an engagement event to a campaign lead and refreshes the campaign counters.
func (r *Repository) Track(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, ev EmailEvent, now time.Time) (*models.CampaignLead, error) {
	var out *models.CampaignLead
	err := r.RunInTx(ctx, func(tx *Repository) error {
		cl, err := tx.GetLead(ctx, tenantID, campaignLeadID, true)
		if err != nil {
			return err
		}
		if cl.CampaignID != campaignID {
			return apperr.NotFound("campaign lead")
		}
		if err := ApplyEvent(cl, ev, now); err != nil {
			return err
		}
		if err := tx.UpdateLead(ctx, tenantID, cl); err != nil {
			return err
		}
		if _, err := tx.Recount(ctx, tenantID, campaignID); err != nil {
			return err
		}
		out = cl
		return nil
	})
	return out, err
}

// DueSend identifies a campaign lead whose next step should go out.
type DueSend struct {
	TenantID       uuid.UUID
	CampaignID     uuid.UUID
	CampaignLeadID uuid.UUID
	StepNumber     int
}

// DueSends lists, across tenants, the next step due for each lead of every active campaign.
// The timing rule matches Due.
func (r *Repository) DueSends(ctx context.Context, now time.Time, limit int) ([]DueSend, error) {
	rows, err := r.db.Query(ctx, `SELECT c.tenant_id, c.id, cl.id, s.step_number
		FROM campaign_leads cl
		JOIN campaigns c ON c.id = cl.campaign_id
		JOIN LATERAL (
			SELECT step_number, delay_days FROM campaign_steps
			WHERE campaign_id = c.id AND step_number > cl.current_step
			ORDER BY step_number LIMIT 1
		) s ON true
		WHERE c.status = 'ACTIVE'
		  AND cl.status IN ('PENDING', 'SENT', 'OPENED')
		  AND (cl.current_step = 0 OR cl.last_sent_at IS NULL
		       OR cl.last_sent_at + make_interval(days => s.delay_days) <= $1)
		ORDER BY cl.last_sent_at NULLS FIRST
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DueSend, error) {
		var d DueSend
		err := row.Scan(&d.TenantID, &d.CampaignID, &d.CampaignLeadID, &d.StepNumber)
		return d, err
	})
}

// SendTarget is everything needed to send one step.
type SendTarget struct {
	Campaign *models.Campaign
	Lead     *models.CampaignLead
	Step     models.CampaignStep
}

// LoadTarget loads the campaign, lead and step for a queued send.
func (r *Repository) LoadTarget(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, stepNumber int) (*SendTarget, error) {
	c, err := r.Get(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	cl, err := r.GetLead(ctx, tenantID, campaignLeadID, false)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Steps {
		if s.StepNumber == stepNumber {
			return &SendTarget{Campaign: c, Lead: cl, Step: s}, nil
		}
	}
	return nil, apperr.NotFound("campaign step")
}

// MarkSent records that stepNumber went out. A step already recorded is left alone.
func (r *Repository) MarkSent(ctx context.Context, tenantID, campaignID, campaignLeadID uuid.UUID, stepNumber int, now time.Time) error {
	return r.RunInTx(ctx, func(tx *Repository) error {
		cl, err := tx.GetLead(ctx, tenantID, campaignLeadID, true)
		if err != nil {
			return err
		}
		if cl.CurrentStep >= stepNumber {
			return nil
		}
		if err := ApplyEvent(cl, EventSent, now); err != nil {
			return err
		}
		cl.CurrentStep = stepNumber
		if err := tx.UpdateLead(ctx, tenantID, cl); err != nil {
			return err
		}
		_, err = tx.Recount(ctx, tenantID, campaignID)
		return err
	})
}
