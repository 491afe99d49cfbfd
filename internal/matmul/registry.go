package matmul

import (
	"fmt"
	"strings"

	"github.com/Danielfrancoi/matrices/internal/distrib"
	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/loop"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/procpool"
	"github.com/Danielfrancoi/matrices/internal/spawn"
	"github.com/Danielfrancoi/matrices/internal/threads"
)

const (
	NameSequential  = "sequential"
	NameThreads     = threads.Name
	NameLoop        = loop.Name
	NameProcesses   = procpool.Name
	NameDistributed = distrib.Name
)

// Names lists every strategy in a stable order.
func Names() []string {
	return []string{NameSequential, NameThreads, NameLoop, NameProcesses, NameDistributed}
}

// Available returns a comma-separated list of strategies usable on this
// platform.
func Available() string {
	var out []string
	for _, name := range Names() {
		if Has(name) {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

var aliases = map[string]string{
	"seq":    NameSequential,
	"thread": NameThreads,
	"pool":   NameLoop,
	"omp":    NameLoop,
	"procs":  NameProcesses,
	"fork":   NameProcesses,
	"mpi":    NameDistributed,
	"dist":   NameDistributed,
}

// Normalize maps a user-supplied name or alias to its canonical form. The
// empty string selects threads.
func Normalize(name string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return NameThreads, nil
	}
	if canon, ok := aliases[s]; ok {
		return canon, nil
	}
	for _, n := range Names() {
		if s == n {
			return n, nil
		}
	}
	return "", failure.InvalidArgument("unknown strategy %q (expected %s)", name, strings.Join(Names(), ", "))
}

// Options carries the knobs of every strategy; each one reads only its own.
type Options struct {
	// Threads budget; nil uses the process-wide budget.
	Budget *threads.Budget
	// Loop pool and chunk size; nil uses the shared pool, chunk 0 a static
	// schedule.
	Pool  *loop.Pool
	Chunk int
	// Process pool segment location.
	ShmDir  string
	ShmName string
	// Distributed launcher and hub address.
	Launcher string
	Addr     string
	// Spawner starts child processes for processes and distributed.
	Spawner spawn.Spawner
}

// New builds the named strategy for element type T.
func New[T matrix.Element](name string, opts Options) (Strategy[T], error) {
	canon, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	if !Has(canon) {
		return nil, failure.Unsupported("strategy %s is not available on this platform (have %s)", canon, Available())
	}
	switch canon {
	case NameSequential:
		return Sequential[T](), nil
	case NameThreads:
		return threads.New[T](opts.Budget), nil
	case NameLoop:
		if opts.Chunk < 0 {
			return nil, failure.InvalidArgument("chunk must not be negative, got %d", opts.Chunk)
		}
		return loop.New[T](opts.Pool, opts.Chunk), nil
	case NameProcesses:
		return procpool.New[T](procpool.Options{Dir: opts.ShmDir, Name: opts.ShmName, Spawner: opts.Spawner}), nil
	case NameDistributed:
		s, err := distrib.New[T](distrib.Options{Launcher: opts.Launcher, Addr: opts.Addr, Spawner: opts.Spawner})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("strategy %s has no constructor", canon)
	}
}
