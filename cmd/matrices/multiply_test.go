package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
	"github.com/Danielfrancoi/matrices/internal/spawn"
)

func testJob(t *testing.T, strategy string, n, w int) multiplyJob {
	t.Helper()
	sp, err := spawn.NewExecSpawner()
	if err != nil {
		t.Fatalf("spawner: %v", err)
	}
	return multiplyJob{
		n:        n,
		workers:  w,
		strategy: strategy,
		seed:     7,
		verify:   true,
		opts:     matmul.Options{ShmDir: t.TempDir(), Spawner: sp},
	}
}

func TestRunMultiplyEveryStrategy(t *testing.T) {
	for _, name := range matmul.Names() {
		if !matmul.Has(name) {
			continue
		}
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runMultiply[int64](context.Background(), &out, testJob(t, name, 6, 3)); err != nil {
				t.Fatalf("runMultiply: %v", err)
			}
			for _, want := range []string{"Statistics:", "- Matrix size: 6 x 6", "- Strategy: " + name, "- Workers: 3", "- Verified: matches sequential"} {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestRunMultiplyClampsWorkers(t *testing.T) {
	var logs, out bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.Setup(&logs, "info", "text"))
	if err := runMultiply[float64](ctx, &out, testJob(t, "threads", 3, 8)); err != nil {
		t.Fatalf("runMultiply: %v", err)
	}
	if !strings.Contains(out.String(), "- Workers: 3") {
		t.Fatalf("workers not clamped:\n%s", out.String())
	}
	if !strings.Contains(logs.String(), "reducing workers") {
		t.Fatalf("missing clamp warning in logs: %s", logs.String())
	}
}

func TestRunMultiplyPrintsMatrices(t *testing.T) {
	job := testJob(t, "sequential", 2, 1)
	job.print = true
	var out bytes.Buffer
	if err := runMultiply[float32](context.Background(), &out, job); err != nil {
		t.Fatalf("runMultiply: %v", err)
	}
	s := out.String()
	for _, want := range []string{"Matrix A:", "Matrix B:", "Result (C = A x B):", "- Element type: f32"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "Matrix A:") > strings.Index(s, "Statistics:") {
		t.Fatalf("matrices must precede statistics:\n%s", s)
	}
}

func TestRunMultiplyRejectsUnknownStrategy(t *testing.T) {
	var out bytes.Buffer
	err := runMultiply[int32](context.Background(), &out, testJob(t, "gpu", 2, 1))
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestPrintBench(t *testing.T) {
	var out bytes.Buffer
	printBench(&out, []benchRow{{strategy: "threads", n: 1024, workers: 4, best: 2e9, mean: 3e9}})
	s := out.String()
	if !strings.Contains(s, "1,024") {
		t.Fatalf("expected grouped size in table:\n%s", s)
	}
	if !strings.Contains(s, "threads") || !strings.Contains(s, "MFLOP/s") {
		t.Fatalf("unexpected table:\n%s", s)
	}
}

func TestPositive(t *testing.T) {
	got := positive([]int64{4, -1, 0, 2, 4, 8})
	want := []int{2, 4, 8}
	if len(got) != len(want) {
		t.Fatalf("positive: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positive: got %v want %v", got, want)
		}
	}
}
