package component

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/logging"
)

// captureBackend records delivered events for assertions.
type captureBackend struct {
	mu     sync.Mutex
	events []hwtest.Event
}

func (b *captureBackend) Write(e hwtest.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *captureBackend) snapshot() []hwtest.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]hwtest.Event{}, b.events...)
}

func TestRegistry_RegisterDuplicateName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, nil)
	a := &stubComponent{name: "valve-1"}
	b := &stubComponent{name: "valve-1"}

	if err := r.Register(a); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	// Same instance again is a no-op.
	if err := r.Register(a); err != nil {
		t.Fatalf("re-registering the same instance should be a no-op, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 component, got %d", r.Len())
	}

	// A different instance under the same name is a config error.
	err := r.Register(b)
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}
	if dup.Name != "valve-1" {
		t.Fatalf("error names %q", dup.Name)
	}
}

func TestRegistry_CheckAllEmitsOneEventPerResult(t *testing.T) {
	t.Parallel()

	backend := &captureBackend{}
	sink := logging.NewSink(backend)
	defer func() { _ = sink.Close() }()

	r := NewRegistry(sink, nil)
	mustRegister(t, r,
		&stubComponent{name: "a", results: []hwtest.CheckResult{
			{Component: "a", Passed: true},
			{Component: "a", Passed: false},
		}},
		&stubComponent{name: "b", results: []hwtest.CheckResult{
			{Component: "b", Passed: true},
		}},
	)

	sum, err := r.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Passes != 2 || sum.Fails != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	events := backend.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantTypes := []hwtest.EventType{hwtest.EventPass, hwtest.EventFail, hwtest.EventPass}
	for i, e := range events {
		if e.Type() != wantTypes[i] {
			t.Fatalf("event %d type = %s, want %s", i, e.Type(), wantTypes[i])
		}
	}
}

func TestRegistry_CheckAllComponentErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("bus stall")
	tail := &stubComponent{name: "tail", results: []hwtest.CheckResult{{Passed: true}}}
	r := NewRegistry(nil, nil)
	mustRegister(t, r,
		&stubComponent{name: "head", results: []hwtest.CheckResult{{Passed: false}}},
		&stubComponent{name: "mid", err: boom},
		tail,
	)

	sum, err := r.CheckAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped component error, got %v", err)
	}
	// Results collected before the failure still count.
	if sum.Fails != 1 {
		t.Fatalf("partial summary = %+v", sum)
	}
	if tail.calls != 0 {
		t.Fatalf("components after the failing one must not run")
	}
}

func mustRegister(t *testing.T, r *Registry, components ...Component) {
	t.Helper()
	for _, c := range components {
		if err := r.Register(c); err != nil {
			t.Fatalf("register %s: %v", c.Name(), err)
		}
	}
}
