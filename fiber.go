package corepg

import (
	"fmt"
	"sync"
)

// fiberState mirrors spec.md §3's Fiber state machine:
// {Init, Running, Yielded, Aborting, Finished, Idle}.
type fiberState int

const (
	fiberInit fiberState = iota
	fiberRunning
	fiberYielded
	fiberAborting
	fiberFinished
	fiberIdle
)

// Handle is passed to a fiber's callback so it can yield control back
// to the caller. It is the Go analogue of hilti::rt::resumable::Handle.
type Handle struct {
	fiber *Fiber
}

// Yield suspends the running callback, handing control back to
// whoever last called Run or Resume. The callback resumes at this
// point in its call stack (the closure's program counter, in a
// goroutine this is literal, unlike a C++ stackful fiber where it is
// simulated) when Resume is next called.
//
// Yield is the package's only suspension point, matching spec.md §5:
// "A fiber may suspend only inside the runtime's wait_for_input*
// primitives."
func (h *Handle) Yield() {
	h.fiber.yield()
}

// Aborted reports whether the fiber has been asked to abort. Long
// running callbacks that loop should check this between iterations so
// cancellation can take effect promptly; Yield itself also observes it.
func (h *Handle) Aborted() bool {
	select {
	case <-h.fiber.abortCh:
		return true
	default:
		return false
	}
}

// Fiber is a cooperative coroutine implemented with a goroutine and a
// pair of unbuffered handoff channels — Go's idiomatic rendering of
// spec.md §9 Design Note option (a), "stackful coroutines with an
// explicit per-parser context": the goroutine's own call stack plays
// the role of the saved stack, and the channel handoff plays the role
// of setjmp/longjmp-style switching in the original hilti::rt::Fiber.
type Fiber struct {
	state    fiberState
	resumeCh chan struct{}
	yieldCh  chan struct{}
	abortCh  chan struct{}
	doneCh   chan struct{}

	result any
	err    error

	started bool
}

func newFiber() *Fiber {
	return &Fiber{
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
		abortCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		state:    fiberInit,
	}
}

// yield is called from inside the running callback (via Handle.Yield).
// If the fiber was aborted while suspended, it does not return: it
// unwinds the callback, which finishes with a "fiber aborted" error.
func (f *Fiber) yield() {
	f.state = fiberYielded
	f.yieldCh <- struct{}{}
	<-f.resumeCh
	select {
	case <-f.abortCh:
		panic("fiber aborted")
	default:
	}
	f.state = fiberRunning
}

// start launches the callback on its own goroutine and blocks until it
// either yields or finishes.
func (f *Fiber) start(fn func(*Handle) (any, error)) {
	f.started = true
	f.state = fiberRunning
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("fiber: panic in callback: %v", r)
			}
			f.state = fiberFinished
			close(f.doneCh)
		}()
		res, err := fn(&Handle{fiber: f})
		f.result, f.err = res, err
	}()
	f.awaitYieldOrDone()
}

// resume continues a yielded fiber and blocks until it yields again or
// finishes.
func (f *Fiber) resume() {
	if f.state != fiberYielded {
		return
	}
	f.resumeCh <- struct{}{}
	f.awaitYieldOrDone()
}

func (f *Fiber) awaitYieldOrDone() {
	select {
	case <-f.yieldCh:
	case <-f.doneCh:
	}
}

// abort requests cancellation. It is idempotent: once issued, the next
// scheduled resumption unwinds the fiber, per spec.md §5.
func (f *Fiber) abort() {
	select {
	case <-f.abortCh:
		// already aborted
	default:
		close(f.abortCh)
	}
	if f.state == fiberYielded {
		f.state = fiberAborting
		f.resumeCh <- struct{}{}
		<-f.doneCh
	}
}

func (f *Fiber) isDone() bool {
	switch f.state {
	case fiberRunning, fiberYielded:
		return false
	default:
		return true
	}
}

// Resumable is the external handle to a fiber plus its eventual result
// or error, per spec.md §3/§9. Exactly one of {Run, nothing} may be
// called to start it; Resume continues it after a Yield.
type Resumable struct {
	fiber *Fiber
	fn    func(*Handle) (any, error)
	done  bool
}

// NewResumable creates a Resumable wrapping fn. fn must call
// Handle.Yield when it needs more input; it will then be suspended
// until Resume is called.
func NewResumable(fn func(*Handle) (any, error)) *Resumable {
	return &Resumable{fiber: newFiber(), fn: fn}
}

// Run starts execution. It must be called exactly once, before Resume.
func (r *Resumable) Run() {
	r.fiber.start(r.fn)
	r.done = r.fiber.isDone()
}

// Resume continues execution after a prior Yield.
func (r *Resumable) Resume() {
	r.fiber.resume()
	r.done = r.fiber.isDone()
}

// Abort requests cancellation without resuming.
func (r *Resumable) Abort() {
	r.fiber.abort()
	r.done = true
}

// HasResult reports whether the function completed normally (no error)
// and produced a result.
func (r *Resumable) HasResult() bool {
	return r.done && r.fiber.err == nil
}

// Done reports whether the function has completed (successfully,
// with an error, or aborted).
func (r *Resumable) Done() bool { return r.done }

// Result returns the function's result once HasResult is true.
func (r *Resumable) Result() any { return r.fiber.result }

// Err returns any error the callback returned or panicked with.
func (r *Resumable) Err() error { return r.fiber.err }

// FiberContext mirrors hilti::rt::detail::FiberContext: a per-parser-
// driver pool of reusable fibers, bounded by Config.FiberPoolSize.
// Unlike the C++ original there is no separate "shared stack" fiber —
// goroutine stacks already grow and shrink on demand, so the
// optimization in spec.md §9 ("an optimization, not a correctness
// requirement... may use independent stacks exclusively") does not
// need a Go analogue.
type FiberContext struct {
	mu       sync.Mutex
	poolSize int
	cache    []*Fiber
	total    uint64
	current  uint64
	maxLive  uint64
	log      *Logger
}

// NewFiberContext returns a FiberContext that caches up to
// cfg.FiberPoolSize idle fibers for reuse. A FiberContext must not be
// used concurrently from more than one goroutine, matching spec.md §5
// ("the fiber cache is per thread; accessing it from another thread is
// undefined").
func NewFiberContext(cfg Config) *FiberContext {
	size := cfg.FiberPoolSize
	if size <= 0 {
		size = 16
	}
	return &FiberContext{poolSize: size, log: DefaultLogger().With("component", "fiber")}
}

// NewResumable creates a Resumable using a fiber drawn from the pool
// (or a fresh one, if the pool is empty), for the given callback.
func (fc *FiberContext) NewResumable(fn func(*Handle) (any, error)) *Resumable {
	fc.mu.Lock()
	var f *Fiber
	if n := len(fc.cache); n > 0 {
		f = fc.cache[n-1]
		fc.cache = fc.cache[:n-1]
		*f = *newFiber()
	} else {
		f = newFiber()
		fc.total++
		fc.log.Debug("fiber allocated", "total", fc.total)
	}
	fc.current++
	if fc.current > fc.maxLive {
		fc.maxLive = fc.current
	}
	fc.mu.Unlock()

	return &Resumable{fiber: f, fn: fn}
}

// Release returns a finished Resumable's fiber to the pool, if there
// is room. Calling Release on a Resumable that is not yet Done is a
// no-op.
func (fc *FiberContext) Release(r *Resumable) {
	if r == nil || !r.done {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.current--
	if len(fc.cache) < fc.poolSize {
		fc.cache = append(fc.cache, r.fiber)
	}
}

// Statistics reports FiberContext.Stats for diagnostics, recovering
// hilti::rt::detail::Fiber::Statistics (spec.md SPEC_FULL.md §4).
type Statistics struct {
	Total   uint64
	Current uint64
	Cached  uint64
	Max     uint64
}

// Stats returns a snapshot of the pool's usage counters.
func (fc *FiberContext) Stats() Statistics {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return Statistics{
		Total:   fc.total,
		Current: fc.current,
		Cached:  uint64(len(fc.cache)),
		Max:     fc.maxLive,
	}
}
