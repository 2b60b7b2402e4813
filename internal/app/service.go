// Package app wires the detection pipeline into a batch service: a queue of
// game jobs, a worker pool, and per-game transactional orchestration.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	gamequeue "github.com/okian/tempo/internal/adapters/mq/queue"
	workerpool "github.com/okian/tempo/internal/adapters/mq/worker"
	"github.com/okian/tempo/internal/domain/derive"
	"github.com/okian/tempo/internal/domain/detect"
	"github.com/okian/tempo/internal/domain/model"
	"github.com/okian/tempo/internal/domain/validate"
	"github.com/okian/tempo/pkg/logger"
)

// Source supplies each game's raw events. Acquisition (scraping, API
// clients) lives behind this boundary.
type Source interface {
	// GameIDs lists the games available for processing.
	GameIDs(ctx context.Context) ([]string, error)

	// EventsForGame returns one game's raw rows in feed order.
	EventsForGame(ctx context.Context, gameID string) ([]model.RawEvent, error)
}

// Sink receives sealed output. Persistence details live behind this boundary.
type Sink interface {
	// SavePossessions stores a sealed game's possessions atomically.
	SavePossessions(ctx context.Context, gameID string, possessions []model.Possession) error

	// SaveReport stores the per-game pipeline report, sealed or failed.
	SaveReport(ctx context.Context, result GameResult) error
}

// BatchSummary is the outcome of one batch run.
type BatchSummary struct {
	RunID       string
	Games       int
	Sealed      int
	Failed      int
	Possessions int
	Realism     validate.BatchVerdict
	Elapsed     time.Duration
}

// Service runs batches of games through the pipeline.
type Service struct {
	source Source
	sink   Sink

	orch      *Orchestrator
	validator *validate.Validator

	workerCount int
	queueSize   int
	logger      logger.Logger

	mu      sync.Mutex
	results []GameResult
}

// New constructs a Service. The zero options give a single-machine batch
// with one worker per CPU.
func New(source Source, sink Sink, opts ...Option) *Service {
	s := &Service{
		source:      source,
		sink:        sink,
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validate.New()
	}
	if s.orch == nil {
		s.orch = NewOrchestrator(detect.New(), derive.New(), s.validator)
	}
	return s
}

// Run processes every game the source lists and returns the batch summary.
// A batch always completes: individual game failures are recorded, never
// propagated as batch errors.
func (s *Service) Run(ctx context.Context) (BatchSummary, error) {
	start := time.Now()
	summary := BatchSummary{RunID: uuid.NewString()}

	ids, err := s.source.GameIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing games: %w", err)
	}

	q := gamequeue.NewInMemoryQueue(gamequeue.WithCapacity(max(s.queueSize, len(ids))))
	seen := make(map[string]struct{}, len(ids))
	enqueued := 0
	for _, id := range ids {
		// A source listing a game twice must not process it twice.
		if _, dup := seen[id]; dup {
			s.logger.Warn(ctx, "duplicate game id skipped", logger.String("gameID", id))
			continue
		}
		seen[id] = struct{}{}
		if !q.Enqueue(ctx, gamequeue.Job{GameID: id}) {
			return summary, fmt.Errorf("enqueue game %s: queue full", id)
		}
		enqueued++
	}
	if err := q.Close(); err != nil {
		return summary, err
	}

	pool := workerpool.NewPool(s.workerCount, q, &gameProcessor{svc: s},
		workerpool.WithLogger(s.logger))
	pool.Start(ctx)
	if err := pool.Wait(ctx); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}

	s.mu.Lock()
	results := make([]GameResult, len(s.results))
	copy(results, s.results)
	s.results = nil
	s.mu.Unlock()

	var sample []validate.GameSummary
	for _, r := range results {
		if r.Sealed() {
			summary.Sealed++
			summary.Possessions += len(r.Possessions)
			sample = append(sample, validate.GameSummary{
				GameID:           r.GameID,
				TotalPossessions: len(r.Possessions),
				Imbalance:        r.Report.Imbalance,
			})
		} else {
			summary.Failed++
		}
	}
	summary.Games = enqueued
	summary.Realism = s.validator.Batch(sample)
	summary.Elapsed = time.Since(start)

	s.logger.Info(ctx, "batch finished",
		logger.String("runID", summary.RunID),
		logger.Int("games", summary.Games),
		logger.Int("sealed", summary.Sealed),
		logger.Int("failed", summary.Failed),
		logger.Int("possessions", summary.Possessions),
		logger.String("realism", summary.Realism.Verdict.String()),
		logger.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// record collects one game's result for the batch summary.
func (s *Service) record(r GameResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

// gameProcessor adapts the orchestrator to the worker pool's Processor.
type gameProcessor struct {
	svc *Service
}

func (g *gameProcessor) Process(ctx context.Context, gameID string) error {
	raws, err := g.svc.source.EventsForGame(ctx, gameID)
	if err != nil {
		g.svc.record(GameResult{
			GameID:     gameID,
			Phase:      PhaseFailed,
			Diagnostic: fmt.Sprintf("reading events: %v", err),
		})
		return fmt.Errorf("reading events for %s: %w", gameID, err)
	}

	result := g.svc.orch.ProcessGame(ctx, gameID, raws)

	if result.Sealed() {
		if err := g.svc.sink.SavePossessions(ctx, gameID, result.Possessions); err != nil {
			// Persistence failure fails the game transactionally.
			result = GameResult{
				GameID:     gameID,
				Phase:      PhaseFailed,
				EventCount: result.EventCount,
				Diagnostic: fmt.Sprintf("saving possessions: %v", err),
			}
		}
	}
	if err := g.svc.sink.SaveReport(ctx, result); err != nil {
		g.svc.logger.Error(ctx, "saving report failed",
			logger.String("gameID", gameID),
			logger.Error(err),
		)
	}

	g.svc.record(result)
	if result.Phase == PhaseFailed {
		return fmt.Errorf("game %s failed: %s", gameID, result.Diagnostic)
	}
	return nil
}
