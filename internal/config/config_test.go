package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tempo/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given no configuration sources", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Defaults are in place", func() {
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.DBPath, ShouldEqual, "tempo.db")
			So(cfg.WorkerCount, ShouldBeGreaterThanOrEqualTo, 1)
			So(cfg.FormulaTolerancePct, ShouldEqual, 5.0)
			So(cfg.MaxTeamImbalance, ShouldEqual, 2)
			So(cfg.RejectedEventRatio, ShouldEqual, 0.05)
			So(cfg.WallClockTempo, ShouldBeTrue)
			So(cfg.GameTimeoutMS, ShouldEqual, 0)
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEMPO_LOG_LEVEL", "debug")
	t.Setenv("TEMPO_WORKER_COUNT", "3")
	t.Setenv("TEMPO_FORMULA_TOLERANCE_PCT", "7.5")
	t.Setenv("TEMPO_DB_PATH", "/tmp/games.db")

	Convey("Given TEMPO_-prefixed environment variables", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("They override the defaults", func() {
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.WorkerCount, ShouldEqual, 3)
			So(cfg.FormulaTolerancePct, ShouldEqual, 7.5)
			So(cfg.DBPath, ShouldEqual, "/tmp/games.db")
		})

		Convey("Untouched fields keep their defaults", func() {
			So(cfg.MaxTeamImbalance, ShouldEqual, 2)
			So(cfg.RejectedEventRatio, ShouldEqual, 0.05)
		})
	})
}

func TestFileLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempo.yaml")
	body := []byte("log_level: warn\nworker_count: 2\nmax_team_imbalance: 4\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEMPO_CONFIG", path)
	t.Setenv("TEMPO_LOG_LEVEL", "error")

	Convey("Given a YAML file plus an env override", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("The file overrides defaults and env overrides the file", func() {
			So(cfg.LogLevel, ShouldEqual, "error")
			So(cfg.WorkerCount, ShouldEqual, 2)
			So(cfg.MaxTeamImbalance, ShouldEqual, 4)
		})
	})

	Convey("Given a config path that does not exist", t, func() {
		t.Setenv("TEMPO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"empty db path", "TEMPO_DB_PATH", ""},
		{"zero workers", "TEMPO_WORKER_COUNT", "0"},
		{"negative tolerance", "TEMPO_FORMULA_TOLERANCE_PCT", "-1"},
		{"rejected ratio at one", "TEMPO_REJECTED_EVENT_RATIO", "1"},
		{"zero imbalance bound", "TEMPO_MAX_TEAM_IMBALANCE", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			Convey("Loading with "+tc.name+" is rejected", t, func() {
				_, err := config.Load(context.Background())
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	}
}
