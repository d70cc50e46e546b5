package component

import (
	"context"
	"fmt"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/logging"
	"github.com/d5h-foss/hwtest/internal/metrics"
)

// DuplicateNameError reports two distinct components registered under
// one name. Names identify components in the log stream, so collisions
// are rejected at registration, before the run starts.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("component %q already registered", e.Name)
}

// Summary aggregates one check point.
type Summary struct {
	Passes int
	Fails  int
}

// Registry holds the components validated at every check point, in
// registration order. Registration is additive; nothing is removed
// during a run.
type Registry struct {
	sink       *logging.Sink
	metrics    *metrics.Metrics
	components []Component
	byName     map[string]Component
}

// NewRegistry returns a registry emitting PASS/FAIL events to sink.
// metrics may be nil.
func NewRegistry(sink *logging.Sink, m *metrics.Metrics) *Registry {
	return &Registry{
		sink:    sink,
		metrics: m,
		byName:  make(map[string]Component),
	}
}

// Register adds a component. Registering the same instance again is a
// no-op; a different instance with the same name is a DuplicateNameError.
func (r *Registry) Register(c Component) error {
	if existing, ok := r.byName[c.Name()]; ok {
		if existing == c {
			return nil
		}
		return &DuplicateNameError{Name: c.Name()}
	}
	r.byName[c.Name()] = c
	r.components = append(r.components, c)
	return nil
}

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.components) }

// CheckAll validates every registered component in order, emitting
// exactly one PASS or FAIL event per result. A component returning an
// error stops the pass and surfaces the error to the caller.
func (r *Registry) CheckAll(ctx context.Context) (Summary, error) {
	var sum Summary
	for _, c := range r.components {
		results, err := c.Check(ctx)
		if err != nil {
			return sum, fmt.Errorf("check %s: %w", c.Name(), err)
		}
		for _, result := range results {
			if result.Passed {
				sum.Passes++
			} else {
				sum.Fails++
			}
			r.metrics.ObserveCheck(result.Passed)
			if r.sink != nil {
				if err := r.sink.Submit(hwtest.NewCheckEvent(result)); err != nil {
					return sum, fmt.Errorf("submit %s result: %w", c.Name(), err)
				}
			}
		}
	}
	return sum, nil
}
