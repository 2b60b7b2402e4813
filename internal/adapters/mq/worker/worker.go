// Package worker runs the batch worker pool. Games are embarrassingly
// parallel: each worker owns one game at a time end to end, and no state is
// shared across game boundaries.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/tempo/internal/adapters/mq/queue"
	"github.com/okian/tempo/pkg/logger"
	"github.com/okian/tempo/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive game jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Processor runs one game through the pipeline. Failures are per-game by
// contract: an error from Process never stops the batch.
type Processor interface {
	Process(ctx context.Context, gameID string) error
}

// Worker drains the queue until it is closed or the context is canceled.
type Worker struct {
	queue     Queue
	processor Processor
	name      string

	done chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		processor: processor,
		name:      "worker",
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes jobs until the queue closes or ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.IncActiveWorkers()
			if err := w.processor.Process(ctx, job.GameID); err != nil {
				// Per-game isolation: log and move on.
				w.logger.Error(ctx, "game processing failed",
					logger.String("gameID", job.GameID),
					logger.Error(err),
				)
			}
			metrics.DecActiveWorkers()
		}
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of count workers.
func NewPool(count int, q Queue, processor Processor, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, count),
		logger:  logger.Nop(),
	}
	for i := 0; i < count; i++ {
		p.workers[i] = NewWorker(q, processor, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker drained the queue or ctx expired.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", w.name, ctx.Err())
		}
	}
	return nil
}

// Shutdown waits for workers to finish within the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.String("worker", w.name))
		}
	}
	return nil
}
