// Package collective implements the blocking collectives used by the
// distributed strategy: broadcast, scatterv, gatherv and barrier.
//
// Every participant calls the same collectives in the same order. A Hub
// pairs the calls by per-rank sequence number: the i-th collective of every
// rank forms one round, and the round completes when all ranks have arrived.
// Ranks reach the hub either in-process (Hub.Local) or over HTTP (Server and
// Dial). Any inconsistency aborts the hub, failing every pending and future
// round, because a broken collective leaves the job with no usable result.
package collective

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

// Op identifies a collective.
type Op uint8

const (
	OpBcast Op = iota + 1
	OpScatterv
	OpGatherv
	OpBarrier
)

func (o Op) String() string {
	switch o {
	case OpBcast:
		return "bcast"
	case OpScatterv:
		return "scatterv"
	case OpGatherv:
		return "gatherv"
	case OpBarrier:
		return "barrier"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Contribution is one rank's side of a round. Counts and Displs are byte
// offsets and are only read from the root.
type Contribution struct {
	Op      Op
	Root    int
	Payload []byte
	Counts  []int
	Displs  []int
}

// Comm is one rank's handle on a group.
type Comm interface {
	Rank() int
	Size() int
	// Exchange submits c as this rank's next collective and blocks until the
	// round completes, returning this rank's share of the result.
	Exchange(ctx context.Context, c Contribution) ([]byte, error)
}

type round struct {
	op        Op
	root      int
	contribs  []*Contribution
	arrived   int
	collected int
	results   [][]byte
	done      chan struct{}
}

// Hub is the rendezvous point of one group of size ranks.
type Hub struct {
	size int

	mu     sync.Mutex
	rounds map[uint64]*round

	abortOnce sync.Once
	aborted   chan struct{}
	abortErr  error
}

func NewHub(size int) (*Hub, error) {
	if size < 1 {
		return nil, failure.InvalidArgument("group size must be positive, got %d", size)
	}
	return &Hub{
		size:    size,
		rounds:  make(map[uint64]*round),
		aborted: make(chan struct{}),
	}, nil
}

func (h *Hub) Size() int { return h.size }

// Abort fails every pending and future round with err. Only the first call
// has an effect.
func (h *Hub) Abort(err error) {
	h.abortOnce.Do(func() {
		if !errors.Is(err, failure.ErrCollectiveFailure) {
			err = failure.CollectiveFailure(err, "group aborted")
		}
		h.mu.Lock()
		h.abortErr = err
		h.mu.Unlock()
		close(h.aborted)
	})
}

// Err returns the abort error, or nil while the hub is healthy.
func (h *Hub) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abortErr
}

// Exchange is the server side of Comm.Exchange for rank's seq-th call.
func (h *Hub) Exchange(ctx context.Context, seq uint64, rank int, c Contribution) ([]byte, error) {
	r, err := h.arrive(seq, rank, c)
	if err != nil {
		h.Abort(err)
		return nil, h.Err()
	}

	select {
	case <-r.done:
	default:
		select {
		case <-r.done:
		case <-h.aborted:
			return nil, h.Err()
		case <-ctx.Done():
			h.Abort(fmt.Errorf("rank %d left during %s: %w", rank, c.Op, ctx.Err()))
			return nil, h.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	res := r.results[rank]
	r.collected++
	if r.collected == h.size {
		delete(h.rounds, seq)
	}
	return res, nil
}

func (h *Hub) arrive(seq uint64, rank int, c Contribution) (*round, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.abortErr != nil {
		return nil, h.abortErr
	}
	if rank < 0 || rank >= h.size {
		return nil, failure.CollectiveFailure(nil, "rank %d outside group of %d", rank, h.size)
	}
	if c.Root < 0 || c.Root >= h.size {
		return nil, failure.CollectiveFailure(nil, "rank %d named root %d outside group of %d", rank, c.Root, h.size)
	}
	r, ok := h.rounds[seq]
	if !ok {
		r = &round{
			op:       c.Op,
			root:     c.Root,
			contribs: make([]*Contribution, h.size),
			done:     make(chan struct{}),
		}
		h.rounds[seq] = r
	}
	if r.op != c.Op || r.root != c.Root {
		return nil, failure.CollectiveFailure(nil,
			"collective %d: rank %d called %s(root %d), group is in %s(root %d)", seq, rank, c.Op, c.Root, r.op, r.root)
	}
	if r.contribs[rank] != nil {
		return nil, failure.CollectiveFailure(nil, "collective %d: rank %d arrived twice", seq, rank)
	}
	r.contribs[rank] = &c
	r.arrived++
	if r.arrived == h.size {
		results, err := complete(r, h.size)
		if err != nil {
			return nil, failure.CollectiveFailure(err, "collective %d %s", seq, r.op)
		}
		r.results = results
		close(r.done)
	}
	return r, nil
}

func complete(r *round, size int) ([][]byte, error) {
	results := make([][]byte, size)
	root := r.contribs[r.root]
	switch r.op {
	case OpBarrier:
	case OpBcast:
		for i := range results {
			results[i] = root.Payload
		}
	case OpScatterv:
		if err := checkLayout(root.Counts, root.Displs, size, len(root.Payload)); err != nil {
			return nil, err
		}
		for i := range results {
			results[i] = root.Payload[root.Displs[i] : root.Displs[i]+root.Counts[i]]
		}
	case OpGatherv:
		if len(root.Counts) != size || len(root.Displs) != size {
			return nil, fmt.Errorf("root layout has %d counts and %d displs for %d ranks", len(root.Counts), len(root.Displs), size)
		}
		total := 0
		for i := range root.Counts {
			total = max(total, root.Displs[i]+root.Counts[i])
		}
		if err := checkLayout(root.Counts, root.Displs, size, total); err != nil {
			return nil, err
		}
		buf := make([]byte, total)
		for i, c := range r.contribs {
			if len(c.Payload) != root.Counts[i] {
				return nil, fmt.Errorf("rank %d sent %d bytes, root expects %d", i, len(c.Payload), root.Counts[i])
			}
			copy(buf[root.Displs[i]:], c.Payload)
		}
		results[r.root] = buf
	default:
		return nil, fmt.Errorf("unknown collective %s", r.op)
	}
	return results, nil
}

func checkLayout(counts, displs []int, size, limit int) error {
	if len(counts) != size || len(displs) != size {
		return fmt.Errorf("root layout has %d counts and %d displs for %d ranks", len(counts), len(displs), size)
	}
	for i := range counts {
		if counts[i] < 0 || displs[i] < 0 || displs[i]+counts[i] > limit {
			return fmt.Errorf("rank %d range [%d,%d) outside buffer of %d", i, displs[i], displs[i]+counts[i], limit)
		}
	}
	return nil
}

// localComm reaches the hub without leaving the process.
type localComm struct {
	hub  *Hub
	rank int
	seq  uint64
}

// Local returns rank's in-process handle. A handle must not be shared
// between goroutines.
func (h *Hub) Local(rank int) Comm {
	return &localComm{hub: h, rank: rank}
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.hub.size }

func (c *localComm) Exchange(ctx context.Context, con Contribution) ([]byte, error) {
	seq := c.seq
	c.seq++
	return c.hub.Exchange(ctx, seq, c.rank, con)
}
