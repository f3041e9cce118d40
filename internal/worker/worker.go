// Package worker drains the Redis job queue.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/commandcentered/backend/pkg/queue"
)

// JobQueue is the queue the worker drains. *queue.Queue implements it.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// JobHandler processes one job.
type JobHandler interface {
	Process(ctx context.Context, job *queue.Job) error
}

// Processor routes dequeued jobs to handlers by type.
type Processor struct {
	queue    JobQueue
	handlers map[queue.JobType]JobHandler
	logger   *zap.Logger
	backoff  time.Duration
}

// NewProcessor creates a queue processor.
func NewProcessor(q JobQueue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{queue: q, handlers: map[queue.JobType]JobHandler{}, logger: logger, backoff: queue.RetryBackoff}
}

// Handle registers h for jobs of type t.
func (p *Processor) Handle(t queue.JobType, h JobHandler) {
	p.handlers[t] = h
}

// ProcessOne dispatches job and retries it on failure. Jobs of unknown type go straight to retry,
// and so to the DLQ once attempts run out.
func (p *Processor) ProcessOne(ctx context.Context, job *queue.Job) error {
	h, ok := p.handlers[job.Type]
	var err error
	if !ok {
		p.logger.Error("no handler for job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		job.Attempt = queue.MaxRetries - 1
		err = p.queue.Retry(ctx, job)
		return err
	}
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	if err = h.Process(ctx, job); err != nil {
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		if reErr := p.queue.Retry(ctx, job); reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
	}
	return err
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("queue worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.ProcessOne(ctx, job); err != nil {
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
