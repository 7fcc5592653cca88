package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"csscompat/compat"
	"csscompat/config"
)

const fixture = "../compat/testdata/compat-data.json"

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	if ctx == nil {
		t.Fatal("ContextWithEnv() returned nil")
	}

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}

	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
}

func TestEnvFromContext(t *testing.T) {
	t.Run("valid context", func(t *testing.T) {
		ctx := ContextWithEnv(context.Background())
		env := EnvFromContext(ctx)

		if env == nil {
			t.Error("Expected non-nil environment")
		}
	})

	t.Run("panic on missing env", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic when env not in context")
			}
		}()

		// Use plain context without env
		EnvFromContext(context.Background())
	})
}

func TestLocalEnv_Uptime(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)

	time.Sleep(10 * time.Millisecond)
	uptime := env.Uptime()

	if uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
	if uptime > 1*time.Second {
		t.Errorf("Uptime() = %v, unexpectedly large", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}

		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Error("Expected restoreStdLog to be set")
		}

		env.RestoreStdLog()
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}

		// Should not panic
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_Dataset(t *testing.T) {
	t.Run("from configuration", func(t *testing.T) {
		env := &LocalEnv{
			Cfg: &config.Config{Dataset: config.DatasetConfig{Path: fixture, Aliases: true}},
			Log: zaptest.NewLogger(t),
		}
		d, err := env.Dataset()
		if err != nil {
			t.Fatalf("Dataset() error = %v", err)
		}
		if d.CSS.Properties["-moz-column-count"] == nil {
			t.Error("aliases requested but -moz-column-count is missing")
		}

		again, err := env.Dataset()
		if err != nil || again != d {
			t.Error("dataset should be loaded once")
		}
	})

	t.Run("command line wins", func(t *testing.T) {
		env := &LocalEnv{
			Cfg:         &config.Config{Dataset: config.DatasetConfig{Path: "/nonexistent.json"}},
			DatasetPath: fixture,
		}
		d, err := env.Dataset()
		if err != nil {
			t.Fatalf("Dataset() error = %v", err)
		}
		if d.CSS.Properties["-moz-column-count"] != nil {
			t.Error("aliases were not requested")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{}}
		if _, err := env.Dataset(); !errors.Is(err, ErrNoDataset) {
			t.Errorf("Dataset() error = %v, want ErrNoDataset", err)
		}
	})
}

func TestLocalEnv_Runtimes(t *testing.T) {
	d, err := compat.Load(fixture)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Run("command line", func(t *testing.T) {
		env := &LocalEnv{
			Cfg:     &config.Config{Targets: []config.TargetConfig{{Name: "chrome", Version: "75"}}},
			Targets: []string{"firefox 68", "Safari@13"},
		}
		got, err := env.Runtimes(d)
		if err != nil {
			t.Fatalf("Runtimes() error = %v", err)
		}
		if len(got) != 2 || got[0].Name != "firefox" || got[1].Name != "safari" {
			t.Fatalf("Runtimes() = %v", got)
		}
		if got[0].Status != compat.StatusCurrent || got[1].Status != compat.StatusBeta {
			t.Errorf("statuses = %s, %s", got[0].Status, got[1].Status)
		}
	})

	t.Run("repeated runtime", func(t *testing.T) {
		env := &LocalEnv{
			Log:     zaptest.NewLogger(t),
			Targets: []string{"firefox 68", "firefox@68", "safari 12.1"},
		}
		got, err := env.Runtimes(d)
		if err != nil {
			t.Fatalf("Runtimes() error = %v", err)
		}
		if len(got) != 2 || got[0].Name != "firefox" || got[1].Name != "safari" {
			t.Errorf("Runtimes() = %v", got)
		}
	})

	t.Run("configuration", func(t *testing.T) {
		env := &LocalEnv{
			Cfg: &config.Config{Targets: []config.TargetConfig{
				{Name: "Chrome", Version: "75", Path: "/opt/chrome/chrome"},
				{Name: "lynx", Version: "2.8"},
			}},
		}
		got, err := env.Runtimes(d)
		if err != nil {
			t.Fatalf("Runtimes() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Runtimes() = %v", got)
		}
		if got[0].Name != "chrome" || got[0].Status != compat.StatusCurrent || got[0].ExecutablePath != "/opt/chrome/chrome" {
			t.Errorf("chrome target = %+v", got[0])
		}
		if got[1].Status != compat.StatusCustom || got[1].Version != 2.8 {
			t.Errorf("unknown runtime = %+v", got[1])
		}
	})

	t.Run("defaults", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{}}
		got, err := env.Runtimes(d)
		if err != nil {
			t.Fatalf("Runtimes() error = %v", err)
		}
		if len(got) != len(compat.SelectableRuntimes(d)) {
			t.Errorf("Runtimes() = %v", got)
		}
	})

	t.Run("bad specification", func(t *testing.T) {
		env := &LocalEnv{Targets: []string{"firefox"}}
		if _, err := env.Runtimes(d); !errors.Is(err, compat.ErrBadRuntime) {
			t.Errorf("Runtimes() error = %v", err)
		}
		env = &LocalEnv{Cfg: &config.Config{Targets: []config.TargetConfig{{Name: "firefox", Version: "latest"}}}}
		if _, err := env.Runtimes(d); !errors.Is(err, compat.ErrBadRuntime) {
			t.Errorf("Runtimes() error = %v", err)
		}
	})
}

func TestLocalEnv_Integration(t *testing.T) {
	// Simulate a typical usage pattern
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)

	// Set up environment
	env.Cfg = &config.Config{Version: 1}
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Rpt = &config.Report{}

	// Redirect logs
	env.RedirectStdLog()

	// Simulate some work
	time.Sleep(5 * time.Millisecond)

	// Check uptime
	if env.Uptime() < 5*time.Millisecond {
		t.Error("Uptime too small")
	}

	// Restore logs
	env.RestoreStdLog()

	// Verify all fields are accessible
	if env.Cfg == nil || env.Log == nil || env.Rpt == nil {
		t.Error("Environment not properly initialized")
	}
}
