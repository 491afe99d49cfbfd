// Package spawn starts worker processes by re-executing the current binary
// with a task descriptor in its environment.
//
// A program that may act as a worker calls MaybeRun first thing in main (and
// in TestMain for test binaries). When the descriptor variable is present,
// MaybeRun decodes it, dispatches to the handler registered for its role, and
// exits the process with the handler's status.
package spawn

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/Danielfrancoi/matrices/internal/logger"
)

// EnvTask names the environment variable carrying the JSON Task.
const EnvTask = "MATRICES_WORKER_TASK"

// Task is the descriptor handed to a worker process.
type Task struct {
	Role    string          `json:"role"`
	Job     string          `json:"job"`
	Payload json.RawMessage `json:"payload"`
}

// NewTask encodes payload for role.
func NewTask(role, job string, payload any) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s task: %w", role, err)
	}
	return Task{Role: role, Job: job, Payload: raw}, nil
}

// Decode unmarshals the payload into dst.
func (t Task) Decode(dst any) error {
	if err := json.Unmarshal(t.Payload, dst); err != nil {
		return fmt.Errorf("decode %s task: %w", t.Role, err)
	}
	return nil
}

// Handler runs a task inside the worker process.
type Handler func(ctx context.Context, t Task) error

var (
	mu       sync.RWMutex
	handlers = map[string]Handler{}
)

// Register installs the handler for role. Packages register from init.
func Register(role string, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := handlers[role]; dup {
		panic("spawn: duplicate role " + role)
	}
	handlers[role] = h
}

// Roles lists registered roles.
func Roles() []string {
	mu.RLock()
	defer mu.RUnlock()
	roles := make([]string, 0, len(handlers))
	for r := range handlers {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// Run decodes raw and runs the matching handler.
func Run(ctx context.Context, raw string) error {
	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	mu.RLock()
	h, ok := handlers[t.Role]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for role %q (have %s)", t.Role, strings.Join(Roles(), ", "))
	}
	return h(ctx, t)
}

// MaybeRun returns immediately in an ordinary process. In a worker process it
// runs the task and exits: 0 on success, 1 on failure.
func MaybeRun() {
	raw, ok := os.LookupEnv(EnvTask)
	if !ok {
		return
	}
	os.Exit(runWorker(raw, os.Stderr))
}

func runWorker(raw string, stderr io.Writer) int {
	log := logger.FromEnv(stderr).With("pid", os.Getpid())
	ctx := logger.WithContext(context.Background(), log)
	if err := Run(ctx, raw); err != nil {
		log.Error("worker failed", "err", err)
		return 1
	}
	return 0
}

// Process is a started worker.
type Process interface {
	Pid() int
	// Wait blocks until the worker exits and reports a non-zero exit.
	Wait() error
}

// Spawner starts worker processes.
type Spawner interface {
	Start(ctx context.Context, t Task) (Process, error)
}

// ExecSpawner re-executes the current binary. Env is appended to the
// inherited environment of every child.
type ExecSpawner struct {
	Path   string
	Env    []string
	Stderr io.Writer
}

// NewExecSpawner resolves the running executable.
func NewExecSpawner(env ...string) (*ExecSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &ExecSpawner{Path: exe, Env: env, Stderr: os.Stderr}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p *execProcess) Wait() error { return p.cmd.Wait() }

// Start launches one child. The child gets no arguments beyond argv[0] so a
// test binary does not try to interpret them; MaybeRun intercepts it first.
func (s *ExecSpawner) Start(_ context.Context, t Task) (Process, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	cmd := exec.Command(s.Path)
	cmd.Env = append(append(os.Environ(), s.Env...), EnvTask+"="+string(raw))
	cmd.Stdout = s.Stderr
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

// WaitAll waits for every process and returns one error per process (nil for
// a clean exit).
func WaitAll(procs []Process) []error {
	errs := make([]error, len(procs))
	for i, p := range procs {
		errs[i] = p.Wait()
	}
	return errs
}
