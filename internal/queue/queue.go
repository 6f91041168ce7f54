package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/metrics"
)

var ErrQueueFull = errors.New("job queue is full")

type Job struct {
	ID      string
	Options executor.ExecuteOptions
	Result  chan *executor.ExecutionResult
	Err     chan error
	Ctx     context.Context
}

type Manager struct {
	jobQueue chan *Job
}

func NewManager(capacity int) *Manager {
	return &Manager{
		jobQueue: make(chan *Job, capacity),
	}
}

// Submit enqueues job without blocking and fails with ErrQueueFull when
// the queue is at capacity.
func (m *Manager) Submit(job *Job) error {
	select {
	case m.jobQueue <- job:
		m.UpdateQueueMetric()
		return nil
	default:
		metrics.QueueRejections.Inc()
		return ErrQueueFull
	}
}

// Dispatch submits opts as a new job and waits for a worker to finish it
// or for ctx to end.
func (m *Manager) Dispatch(ctx context.Context, opts executor.ExecuteOptions) (*executor.ExecutionResult, error) {
	job := &Job{
		ID:      uuid.NewString(),
		Options: opts,
		Result:  make(chan *executor.ExecutionResult, 1),
		Err:     make(chan error, 1),
		Ctx:     ctx,
	}
	if err := m.Submit(job); err != nil {
		return nil, err
	}

	select {
	case res := <-job.Result:
		return res, nil
	case err := <-job.Err:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) NextJob() <-chan *Job {
	return m.jobQueue
}

func (m *Manager) UpdateQueueMetric() {
	metrics.QueueDepth.Set(float64(len(m.jobQueue)))
}
