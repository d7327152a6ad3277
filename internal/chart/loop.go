package chart

import "sync"

// loop serialises work onto the goroutine that owns a chart's layout state.
// The pending queue is the only structure shared with other goroutines.
type loop struct {
	mu      sync.Mutex
	pending []func()
	running bool
	closed  bool
	wake    chan struct{}
}

func newLoop() *loop {
	return &loop{wake: make(chan struct{}, 1)}
}

// post queues fn and reports whether it was accepted.
func (l *loop) post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// drain runs everything queued so far and returns how many functions ran.
func (l *loop) drain() int {
	l.mu.Lock()
	fns := l.pending
	l.pending = nil
	l.mu.Unlock()

	ran := 0
	for _, fn := range fns {
		if l.isClosed() {
			break
		}
		fn()
		ran++
	}
	return ran
}

func (l *loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// enter marks the loop as driven by a Run goroutine.
func (l *loop) enter() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.closed {
		return false
	}
	l.running = true
	return true
}

func (l *loop) exit() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

// shutdown closes the loop and runs fn on the owning goroutine: inline when
// nothing drives the loop, otherwise on the Run goroutine, waiting for it.
// It returns false if the loop was already closed.
func (l *loop) shutdown(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.closed = true
	l.pending = nil
	if !l.running {
		l.mu.Unlock()
		fn()
		return true
	}

	done := make(chan struct{})
	l.pending = append(l.pending, func() {
		fn()
		close(done)
	})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-done
	return true
}

// final runs the teardown queued by shutdown. It is called by Run on its
// way out.
func (l *loop) final() {
	l.mu.Lock()
	if !l.closed {
		l.mu.Unlock()
		return
	}
	fns := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
