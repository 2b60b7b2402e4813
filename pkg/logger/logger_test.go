package logger

import (
	"context"
	"errors"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	log := Get()
	log.Debug(ctx, "debug message", String("k", "v"))
	log.Info(ctx, "info message", Int("n", 7), Float64("f", 0.5), Bool("b", true))
	log.Warn(ctx, "warn message", Any("v", struct{}{}))
	log.Error(ctx, "error message", Error(errors.New("boom")))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("detector")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "test message")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("level %q rejected: %v", level, err)
		}
	}
	if err := SetLevelString("shouty"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	if log == nil {
		t.Fatal("nop logger is nil")
	}
	log.Info(context.Background(), "discarded")
	if log.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
