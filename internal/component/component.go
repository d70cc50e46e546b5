package component

import (
	"context"
	"fmt"
	"time"

	"github.com/d5h-foss/hwtest"
)

// Component is a stateful device abstraction under test. Check compares
// current telemetry against whatever the component was last commanded to
// do and returns one result per comparison. An error return means the
// check could not run at all; that aborts the run, a failed bound does
// not.
type Component interface {
	Name() string
	Check(ctx context.Context) ([]hwtest.CheckResult, error)
}

// Checker accumulates results for a component's Check implementation.
// The bound helpers mirror the usual one-sided and two-sided comparisons;
// a misordered finite bound pair is a scenario bug and is reported as an
// error from Results rather than as a failed check.
type Checker struct {
	component    string
	subcomponent string
	now          func() time.Time
	results      []hwtest.CheckResult
	err          error
}

func NewChecker(component string) *Checker {
	return &Checker{component: component, now: time.Now}
}

// Sub returns a checker recording under the same component with a
// subcomponent label, for composites that delegate to children.
func (c *Checker) Sub(subcomponent string) *Checker {
	return &Checker{
		component:    c.component,
		subcomponent: subcomponent,
		now:          c.now,
	}
}

// Between records whether lower <= value <= upper.
func (c *Checker) Between(lower, value, upper float64) {
	if lower > upper {
		if c.err == nil {
			c.err = fmt.Errorf("%s: bounds [%v, %v]: %w",
				c.component, lower, upper, hwtest.ErrInvalidBounds)
		}
		return
	}
	c.record(lower, value, upper)
}

// Less records whether value <= upper, with an open lower bound.
func (c *Checker) Less(value, upper float64) {
	c.record(hwtest.NegInf, value, upper)
}

// Greater records whether value >= lower, with an open upper bound.
func (c *Checker) Greater(lower, value float64) {
	c.record(lower, value, hwtest.Inf)
}

func (c *Checker) record(lower, value, upper float64) {
	c.results = append(c.results, hwtest.CheckResult{
		Component:    c.component,
		Subcomponent: c.subcomponent,
		At:           c.now().UTC(),
		Lower:        lower,
		Value:        value,
		Upper:        upper,
		Passed:       lower <= value && value <= upper,
	})
}

// Results returns the accumulated results, or the first bound error.
func (c *Checker) Results() ([]hwtest.CheckResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.results, nil
}

// Merge appends another checker's results, keeping any error.
func (c *Checker) Merge(other *Checker) {
	if c.err == nil {
		c.err = other.err
	}
	c.results = append(c.results, other.results...)
}

// Group is a composite component that delegates to children in order.
// Its results carry the group's name with each child as subcomponent.
// Register either the group or its children, not both, unless you want
// every child validated twice per check point.
type Group struct {
	name     string
	children []Component
}

func NewGroup(name string, children ...Component) *Group {
	return &Group{name: name, children: children}
}

func (g *Group) Name() string { return g.name }

func (g *Group) Check(ctx context.Context) ([]hwtest.CheckResult, error) {
	var all []hwtest.CheckResult
	for _, child := range g.children {
		results, err := child.Check(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", g.name, child.Name(), err)
		}
		for _, r := range results {
			r.Component = g.name
			if r.Subcomponent == "" {
				r.Subcomponent = child.Name()
			}
			all = append(all, r)
		}
	}
	return all, nil
}
