package loop

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type task struct {
	fn   func()
	done chan struct{}
}

// Pool is a fixed set of goroutines that persist across calls. Each call
// borrows a done slot, queues its tasks, and waits for one signal per task.
type Pool struct {
	size      int
	tasks     chan task
	doneSlots chan chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewPool starts size workers. size <= 0 selects GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		size:      size,
		tasks:     make(chan task, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, size)
	}
	for w := 0; w < size; w++ {
		go func() {
			for t := range p.tasks {
				t.fn()
				t.done <- struct{}{}
			}
		}()
	}
	return p
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns the process-wide pool, started on first use.
func Shared() *Pool {
	sharedOnce.Do(func() { shared = NewPool(0) })
	return shared
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Close stops the workers once queued tasks finish. Run falls back to the
// calling goroutine afterwards.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.tasks)
	})
}

// Run executes every fn on the pool and returns once all have finished.
func (p *Pool) Run(fns []func()) {
	if len(fns) == 0 {
		return
	}
	if p.closed.Load() {
		for _, fn := range fns {
			fn()
		}
		return
	}
	done := <-p.doneSlots
	// The slot buffer holds size signals; wait as we go when there are more
	// tasks than that so workers never block on send.
	pending := 0
	for _, fn := range fns {
		if pending == cap(done) {
			<-done
			pending--
		}
		p.tasks <- task{fn: fn, done: done}
		pending++
	}
	for ; pending > 0; pending-- {
		<-done
	}
	p.doneSlots <- done
}
