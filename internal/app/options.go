package app

import (
	"time"

	"github.com/okian/tempo/internal/domain/validate"
	"github.com/okian/tempo/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent game workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the game-job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithOrchestrator replaces the default pipeline orchestrator.
func WithOrchestrator(o *Orchestrator) Option {
	return func(s *Service) {
		if o != nil {
			s.orch = o
		}
	}
}

// WithValidator replaces the default validator (also used for the batch
// realism guard).
func WithValidator(v *validate.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// OrchestratorOption applies a configuration option to the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRejectedRatio sets the rejected-event ratio above which a game fails.
func WithRejectedRatio(ratio float64) OrchestratorOption {
	return func(o *Orchestrator) {
		if ratio > 0 && ratio < 1 {
			o.rejectedRatio = ratio
		}
	}
}

// WithGameTimeout sets the per-game wall-clock budget; zero disables it.
func WithGameTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.gameTimeout = d
		}
	}
}

// WithOrchestratorLogger sets the orchestrator logger.
func WithOrchestratorLogger(log logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}
