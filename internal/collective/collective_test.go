package collective

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

// runRanks runs fn once per rank and returns each rank's error.
func runRanks(size int, comm func(rank int) Comm, fn func(c Comm) error) []error {
	errs := make([]error, size)
	var g errgroup.Group
	for r := 0; r < size; r++ {
		g.Go(func() error {
			errs[r] = fn(comm(r))
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func localRanks(t *testing.T, size int) (*Hub, func(int) Comm) {
	t.Helper()
	hub, err := NewHub(size)
	require.NoError(t, err)
	return hub, hub.Local
}

func httpRanks(t *testing.T, size int) (*Hub, func(int) Comm) {
	t.Helper()
	hub, err := NewHub(size)
	require.NoError(t, err)
	e := echo.New()
	NewServer(hub).Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, func(rank int) Comm {
		c, err := Dial(context.Background(), srv.URL, rank, size)
		if err != nil {
			panic(err)
		}
		return c
	}
}

var transports = map[string]func(*testing.T, int) (*Hub, func(int) Comm){
	"local": localRanks,
	"http":  httpRanks,
}

func TestScatterComputeGather(t *testing.T) {
	t.Parallel()
	for name, transport := range transports {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			const size = 3
			_, comm := transport(t, size)
			src := []int32{1, 2, 3, 4, 5, 6, 7}
			counts := []int{3, 2, 2}
			displs := []int{0, 3, 5}
			var gathered []int32

			errs := runRanks(size, comm, func(c Comm) error {
				ctx := context.Background()
				var send []int32
				if c.Rank() == 0 {
					send = src
				}
				factor, err := Bcast(ctx, c, 0, []int64{10})
				if err != nil {
					return err
				}
				part, err := Scatterv(ctx, c, 0, send, counts, displs)
				if err != nil {
					return err
				}
				if len(part) != counts[c.Rank()] {
					return errors.New("wrong share")
				}
				for i := range part {
					part[i] *= int32(factor[0])
				}
				if err := Barrier(ctx, c); err != nil {
					return err
				}
				out, err := Gatherv(ctx, c, 0, part, counts, displs)
				if err != nil {
					return err
				}
				if c.Rank() == 0 {
					gathered = out
				} else if out != nil {
					return errors.New("non-root received gather buffer")
				}
				return nil
			})
			for r, err := range errs {
				require.NoError(t, err, "rank %d", r)
			}
			require.Equal(t, []int32{10, 20, 30, 40, 50, 60, 70}, gathered)
		})
	}
}

func TestReduceMax(t *testing.T) {
	t.Parallel()
	const size = 4
	_, comm := localRanks(t, size)
	times := []float64{0.5, 2.25, 1, 0}
	got := make([]float64, size)
	errs := runRanks(size, comm, func(c Comm) error {
		v, err := ReduceMax(context.Background(), c, 0, times[c.Rank()])
		got[c.Rank()] = v
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, []float64{2.25, 2.25, 1, 0}, got)
}

func TestRoundsAreReleased(t *testing.T) {
	t.Parallel()
	hub, comm := localRanks(t, 2)
	errs := runRanks(2, comm, func(c Comm) error {
		for i := 0; i < 5; i++ {
			if err := Barrier(context.Background(), c); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, errors.Join(errs...))
	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.Empty(t, hub.rounds)
}

func TestMismatchedCollectiveAbortsGroup(t *testing.T) {
	t.Parallel()
	for name, transport := range transports {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			hub, comm := transport(t, 2)
			errs := runRanks(2, comm, func(c Comm) error {
				if c.Rank() == 0 {
					return Barrier(context.Background(), c)
				}
				_, err := Bcast(context.Background(), c, 0, []float32{1})
				return err
			})
			for r, err := range errs {
				require.ErrorIs(t, err, failure.ErrCollectiveFailure, "rank %d", r)
			}
			require.ErrorIs(t, hub.Err(), failure.ErrCollectiveFailure)
		})
	}
}

func TestBadScatterLayout(t *testing.T) {
	t.Parallel()
	_, comm := localRanks(t, 2)
	errs := runRanks(2, comm, func(c Comm) error {
		_, err := Scatterv(context.Background(), c, 0, []float64{1, 2}, []int{1, 2}, []int{0, 1})
		return err
	})
	for _, err := range errs {
		require.ErrorIs(t, err, failure.ErrCollectiveFailure)
	}
}

func TestGatherCountMismatch(t *testing.T) {
	t.Parallel()
	_, comm := localRanks(t, 2)
	errs := runRanks(2, comm, func(c Comm) error {
		send := []int64{1}
		if c.Rank() == 1 {
			send = []int64{1, 2}
		}
		_, err := Gatherv(context.Background(), c, 0, send, []int{1, 1}, []int{0, 1})
		return err
	})
	for _, err := range errs {
		require.ErrorIs(t, err, failure.ErrCollectiveFailure)
	}
}

func TestAbortReleasesWaiters(t *testing.T) {
	t.Parallel()
	hub, err := NewHub(3)
	require.NoError(t, err)
	cause := failure.WorkerFailed(errors.New("exit status 1"), "rank 2")

	done := make(chan error, 2)
	for r := 0; r < 2; r++ {
		go func() { done <- Barrier(context.Background(), hub.Local(r)) }()
	}
	time.Sleep(10 * time.Millisecond)
	hub.Abort(cause)
	for i := 0; i < 2; i++ {
		err := <-done
		require.ErrorIs(t, err, failure.ErrCollectiveFailure)
		require.ErrorIs(t, err, failure.ErrWorkerFailed)
	}
	require.ErrorIs(t, Barrier(context.Background(), hub.Local(2)), failure.ErrCollectiveFailure)
}

func TestCancelledRankAbortsGroup(t *testing.T) {
	t.Parallel()
	hub, err := NewHub(2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Barrier(ctx, hub.Local(0))
	require.ErrorIs(t, err, failure.ErrCollectiveFailure)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDialChecksGroupSize(t *testing.T) {
	t.Parallel()
	hub, err := NewHub(2)
	require.NoError(t, err)
	e := echo.New()
	NewServer(hub).Register(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	_, err = Dial(context.Background(), srv.URL, 0, 3)
	require.ErrorIs(t, err, failure.ErrCollectiveFailure)
	_, err = Dial(context.Background(), srv.URL, 2, 2)
	require.ErrorIs(t, err, failure.ErrCollectiveFailure)
	c, err := Dial(context.Background(), srv.URL+"/", 1, 2)
	require.NoError(t, err)
	require.Equal(t, 1, c.Rank())
	require.Equal(t, 2, c.Size())
}

func TestNewHubRejectsEmptyGroup(t *testing.T) {
	t.Parallel()
	_, err := NewHub(0)
	require.ErrorIs(t, err, failure.ErrInvalidArgument)
}
