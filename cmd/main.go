// Command tempo runs the possession-detection batch over a sqlite database
// of raw play-by-play events.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tempo/internal/adapters/store"
	app "github.com/okian/tempo/internal/app"
	"github.com/okian/tempo/internal/config"
	"github.com/okian/tempo/internal/domain/derive"
	"github.com/okian/tempo/internal/domain/detect"
	"github.com/okian/tempo/internal/domain/validate"
	"github.com/okian/tempo/pkg/logger"
	"github.com/okian/tempo/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional Prometheus listener for long batches.
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			log.Info(ctx, "metrics listener started", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error(ctx, "metrics listener failed", logger.Error(err))
			}
		}()
		defer srv.Close()
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "opening store failed", logger.String("db_path", cfg.DBPath), logger.Error(err))
		return 1
	}
	defer db.Close()

	svc := app.New(db, db, buildOptions(cfg, log)...)

	summary, err := svc.Run(ctx)
	if err != nil {
		log.Error(ctx, "batch run failed", logger.Error(err))
		return 1
	}
	if summary.Realism.Verdict == validate.VerdictFail {
		log.Error(ctx, "batch realism guard failed; the detector itself is suspect",
			logger.Float64("mean_possessions", summary.Realism.MeanPossessions),
		)
		return 2
	}
	return 0
}

// buildOptions translates configuration into service options.
func buildOptions(cfg *config.Config, log logger.Logger) []app.Option {
	validator := validate.New(
		validate.WithTolerancePct(cfg.FormulaTolerancePct),
		validate.WithMaxImbalance(cfg.MaxTeamImbalance),
	)
	orch := app.NewOrchestrator(
		detect.New(detect.WithLogger(log.Named("detect"))),
		derive.New(
			derive.WithShotClockBound(cfg.ShotClockSeconds),
			derive.WithClutchThresholds(cfg.ClutchWindowSeconds, cfg.ClutchMaxMargin),
			derive.WithGarbageMargin(cfg.GarbageMinMargin),
			derive.WithFastbreakBound(cfg.FastbreakMaxSeconds),
			derive.WithWallClockTempo(cfg.WallClockTempo),
		),
		validator,
		app.WithRejectedRatio(cfg.RejectedEventRatio),
		app.WithGameTimeout(time.Duration(cfg.GameTimeoutMS)*time.Millisecond),
		app.WithOrchestratorLogger(log.Named("orchestrator")),
	)
	return []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithOrchestrator(orch),
		app.WithValidator(validator),
	}
}
