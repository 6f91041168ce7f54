package worker

import (
	"context"
	"time"

	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/metrics"
	"github.com/itstheanurag/ligo-compiler-api/internal/queue"
	"github.com/rs/zerolog"
)

type Worker struct {
	id       int
	executor *executor.Executor
	manager  *queue.Manager
	logger   *zerolog.Logger
}

func NewWorker(id int, exec *executor.Executor, manager *queue.Manager, logger *zerolog.Logger) *Worker {
	return &Worker{
		id:       id,
		executor: exec,
		manager:  manager,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Int("worker_id", w.id).Msg("worker started")
	for {
		select {
		case job := <-w.manager.NextJob():
			w.manager.UpdateQueueMetric()
			metrics.ActiveWorkers.Inc()
			w.processJob(ctx, job)
			metrics.ActiveWorkers.Dec()
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", w.id).Msg("worker stopping")
			return
		}
	}
}

// processJob runs job until it finishes, its caller goes away or the pool
// is stopped, whichever comes first.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	op := job.Options.Operation

	jobCtx, cancel := context.WithCancel(job.Ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// The client may have gone away while the job was queued.
	if err := jobCtx.Err(); err != nil {
		w.logger.Debug().Int("worker_id", w.id).Str("job_id", job.ID).Msg("skipping cancelled job")
		metrics.CompilationsTotal.WithLabelValues(op, "cancelled").Inc()
		job.Err <- err
		return
	}

	w.logger.Info().Int("worker_id", w.id).Str("job_id", job.ID).Str("operation", op).Msg("processing job")

	startTime := time.Now()
	result, err := w.executor.Execute(jobCtx, job.Options)
	duration := time.Since(startTime).Milliseconds()

	status := executor.Classify(result, err)
	metrics.CompilationsTotal.WithLabelValues(op, status).Inc()
	metrics.CompilationDuration.WithLabelValues(op).Observe(float64(duration))

	if err != nil {
		w.logger.Warn().Err(err).Int("worker_id", w.id).Str("job_id", job.ID).Str("status", status).Msg("job failed")
		job.Err <- err
		return
	}

	if result.Truncated {
		metrics.OutputTruncations.Inc()
		w.logger.Warn().Str("job_id", job.ID).Msg("compiler output truncated")
	}

	w.logger.Info().
		Int("worker_id", w.id).
		Str("job_id", job.ID).
		Str("status", status).
		Int64("duration_ms", duration).
		Msg("job finished")

	job.Result <- result
}
