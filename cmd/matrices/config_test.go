package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file is empty config", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("loadConfig returned error: %v", err)
		}
		if cfg.Size != nil || cfg.Strategy != "" {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("fields are decoded", func(t *testing.T) {
		path := writeConfig(t, "size: 64\nworkers: 8\nstrategy: loop\ndtype: f32\nchunk: 4\nshm_dir: /tmp/seg\nlog_level: debug\nserver_address: 0.0.0.0:9000\n")
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig returned error: %v", err)
		}
		if cfg.Size == nil || *cfg.Size != 64 {
			t.Fatalf("unexpected size: %v", cfg.Size)
		}
		if cfg.Workers == nil || *cfg.Workers != 8 {
			t.Fatalf("unexpected workers: %v", cfg.Workers)
		}
		if cfg.Chunk == nil || *cfg.Chunk != 4 {
			t.Fatalf("unexpected chunk: %v", cfg.Chunk)
		}
		if cfg.Strategy != "loop" || cfg.DType != "f32" || cfg.ShmDir != "/tmp/seg" {
			t.Fatalf("unexpected strings: %+v", cfg)
		}
		if cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
			t.Fatalf("unexpected output/server fields: %+v", cfg)
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := writeConfig(t, "size: [1,\n")
		if _, err := loadConfig(path); err == nil {
			t.Fatalf("expected parse error")
		}
	})

	t.Run("env overrides location", func(t *testing.T) {
		path := writeConfig(t, "strategy: processes\n")
		t.Setenv(envConfig, path)
		if got := configPath(); got != path {
			t.Fatalf("configPath: got %q want %q", got, path)
		}
	})
}

// runWithFlags parses args against the multiply flags and applies cfg the
// way the command does.
func runWithFlags(t *testing.T, cfg Config, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "multiply",
		Flags: append(problemFlags(), strategyFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyProblemConfig(cmd, cfg)
			applyStrategyConfig(cmd, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"multiply"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestExplicitFlagsBeatConfig(t *testing.T) {
	sz, wk, ch := 32, 6, 3
	cfg := Config{Size: &sz, Workers: &wk, Chunk: &ch, Strategy: "loop", DType: "f64", Launcher: "process"}

	runWithFlags(t, cfg, "--size", "5", "-s", "threads")
	if size != 5 {
		t.Fatalf("explicit --size lost: got %d", size)
	}
	if strategyName != "threads" {
		t.Fatalf("explicit --strategy lost: got %q", strategyName)
	}
	if workers != 6 || chunk != 3 || dtypeName != "f64" || launcher != "process" {
		t.Fatalf("config defaults not applied: workers=%d chunk=%d dtype=%q launcher=%q", workers, chunk, dtypeName, launcher)
	}

	runWithFlags(t, Config{})
	if size != 4 || workers != 2 || strategyName != "threads" || dtypeName != "i64" {
		t.Fatalf("flag defaults not restored: size=%d workers=%d strategy=%q dtype=%q", size, workers, strategyName, dtypeName)
	}
}

func TestDebugFlagForcesDebugLevel(t *testing.T) {
	cmd := &cli.Command{
		Name:  "matrices",
		Flags: loggingFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyLoggingConfig(cmd, Config{LogLevel: "warn", LogFormat: "json"})
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"matrices", "--debug"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if logLevel != "debug" || logFormat != "json" {
		t.Fatalf("unexpected logging: level=%q format=%q", logLevel, logFormat)
	}
}
