package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/pkg/queue"
)

type fakeQueue struct {
	retried []queue.Job
}

func (f *fakeQueue) Dequeue(context.Context) (*queue.Job, error) { return nil, nil }

func (f *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	job.Attempt++
	f.retried = append(f.retried, *job)
	return nil
}

type handlerFunc func(context.Context, *queue.Job) error

func (f handlerFunc) Process(ctx context.Context, job *queue.Job) error { return f(ctx, job) }

func TestProcessOneRoutesByType(t *testing.T) {
	q := &fakeQueue{}
	p := NewProcessor(q, nil)
	var got string
	p.Handle(queue.JobTypeCampaignEmail, handlerFunc(func(_ context.Context, job *queue.Job) error {
		got = job.ID
		return nil
	}))

	require.NoError(t, p.ProcessOne(context.Background(), &queue.Job{ID: "a", Type: queue.JobTypeCampaignEmail}))
	assert.Equal(t, "a", got)
	assert.Empty(t, q.retried)
}

func TestProcessOneRetriesFailures(t *testing.T) {
	q := &fakeQueue{}
	p := NewProcessor(q, nil)
	p.Handle(queue.JobTypeCampaignEmail, handlerFunc(func(context.Context, *queue.Job) error {
		return errors.New("smtp down")
	}))

	assert.Error(t, p.ProcessOne(context.Background(), &queue.Job{ID: "b", Type: queue.JobTypeCampaignEmail}))
	require.Len(t, q.retried, 1)
	assert.Equal(t, 1, q.retried[0].Attempt)
}

func TestProcessOneUnknownTypeGoesToLastAttempt(t *testing.T) {
	q := &fakeQueue{}
	p := NewProcessor(q, nil)

	require.NoError(t, p.ProcessOne(context.Background(), &queue.Job{ID: "c", Type: "mystery"}))
	require.Len(t, q.retried, 1)
	assert.Equal(t, queue.MaxRetries, q.retried[0].Attempt)
}
