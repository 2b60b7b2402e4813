// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) for defaults and Load(ctx) for layered loading.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the optional Prometheus listen address; empty disables
	// the metrics listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// DBPath points at the sqlite database holding raw events and results.
	DBPath string `koanf:"db_path"`

	// WorkerCount bounds parallelism across games.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory game-job queue.
	QueueSize int `koanf:"queue_size"`

	// FormulaTolerancePct is the acceptance band for Oliver-formula deviation.
	FormulaTolerancePct float64 `koanf:"formula_tolerance_pct"`

	// MaxTeamImbalance bounds per-team possession count difference per game.
	MaxTeamImbalance int `koanf:"max_team_imbalance"`

	// RejectedEventRatio is the share of rejected events above which a game
	// fails atomically.
	RejectedEventRatio float64 `koanf:"rejected_event_ratio"`

	// ShotClockSeconds is the duration bound above which a possession is flagged.
	ShotClockSeconds float64 `koanf:"shot_clock_seconds"`

	// Situational-flag thresholds.
	ClutchWindowSeconds float64 `koanf:"clutch_window_seconds"`
	ClutchMaxMargin     int     `koanf:"clutch_max_margin"`
	GarbageMinMargin    int     `koanf:"garbage_min_margin"`
	FastbreakMaxSeconds float64 `koanf:"fastbreak_max_seconds"`

	// WallClockTempo toggles tempo-efficiency derivation from wall clocks.
	WallClockTempo bool `koanf:"wall_clock_tempo"`

	// GameTimeoutMS is the optional per-game wall-clock budget; zero disables.
	// A timed-out game fails, it never blocks the batch.
	GameTimeoutMS int `koanf:"game_timeout_ms"`
}

// New creates a Config with defaults. Context is accepted first per the
// project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		MetricsAddr:         "",
		DBPath:              "tempo.db",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           10_000,
		FormulaTolerancePct: 5.0,
		MaxTeamImbalance:    2,
		RejectedEventRatio:  0.05,
		ShotClockSeconds:    35.0,
		ClutchWindowSeconds: 300.0,
		ClutchMaxMargin:     5,
		GarbageMinMargin:    20,
		FastbreakMaxSeconds: 4.0,
		WallClockTempo:      true,
		GameTimeoutMS:       0,
	}
}
