package logging

import (
	"errors"
	"sync"

	"github.com/d5h-foss/hwtest"
)

// FullPolicy decides what Submit does when the queue is full.
type FullPolicy int

const (
	// Block waits until the delivery worker frees a slot. Default:
	// losing PASS/FAIL events would hide real results.
	Block FullPolicy = iota
	// DropOldest discards the oldest queued event to make room. Meant
	// for telemetry producers that must not be slowed down.
	DropOldest
	// Fail returns ErrQueueFull to the producer.
	Fail
)

var (
	ErrQueueFull  = errors.New("log queue full")
	ErrSinkClosed = errors.New("log sink closed")
)

const defaultCapacity = 256

type item struct {
	event hwtest.Event
	flush chan struct{} // non-nil for flush markers
}

// Sink serializes events from any number of producers onto a single
// delivery worker, which hands them to the backend one at a time.
// Ordering is preserved per producer; timestamps order events globally.
type Sink struct {
	backend Backend
	queue   chan item
	policy  FullPolicy
	onError func(error)
	onDrop  func()

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Option configures a Sink.
type Option func(*Sink)

// WithCapacity sets the queue length. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Sink) {
		if n >= 1 {
			s.queue = make(chan item, n)
		}
	}
}

// WithPolicy sets the full-queue policy.
func WithPolicy(p FullPolicy) Option {
	return func(s *Sink) { s.policy = p }
}

// WithErrorHandler installs a callback for backend write failures. The
// callback runs on the delivery worker, never on a producer.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sink) {
		if fn != nil {
			s.onError = fn
		}
	}
}

// WithDropHook installs a callback invoked once per event discarded by
// the DropOldest policy, e.g. to feed a metrics counter.
func WithDropHook(fn func()) Option {
	return func(s *Sink) {
		if fn != nil {
			s.onDrop = fn
		}
	}
}

// NewSink starts the delivery worker and returns a ready sink.
func NewSink(backend Backend, opts ...Option) *Sink {
	s := &Sink{
		backend: backend,
		queue:   make(chan item, defaultCapacity),
		policy:  Block,
		onError: func(error) {},
		onDrop:  func() {},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.deliver()
	return s
}

func (s *Sink) deliver() {
	defer close(s.done)
	for it := range s.queue {
		if it.flush != nil {
			close(it.flush)
			continue
		}
		if err := s.backend.Write(it.event); err != nil {
			s.onError(err)
		}
	}
}

// Submit queues an event for delivery. It blocks only per the sink's
// full-queue policy and never waits on the backend itself.
func (s *Sink) Submit(e hwtest.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	it := item{event: e}
	select {
	case s.queue <- it:
		return nil
	default:
	}

	switch s.policy {
	case DropOldest:
		for {
			select {
			case s.queue <- it:
				return nil
			default:
			}
			// Make room; racing with the worker is fine either way.
			select {
			case dropped := <-s.queue:
				if dropped.flush != nil {
					close(dropped.flush)
				} else {
					s.onDrop()
				}
			default:
			}
		}
	case Fail:
		return ErrQueueFull
	default: // Block
		s.queue <- it
		return nil
	}
}

// Flush blocks until every event queued before the call is delivered.
func (s *Sink) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	marker := item{flush: make(chan struct{})}
	s.queue <- marker
	s.mu.RUnlock()

	<-marker.flush
	return nil
}

// Close drains the queue, stops the worker, and returns once every
// already-queued event reached the backend. Safe to call twice.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return nil
}
