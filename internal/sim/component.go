package sim

import (
	"context"
	"fmt"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/component"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

// Flow bounds checked at each check point.
const (
	openFlowLower   = 4.5
	openFlowUpper   = 5.5
	closedFlowUpper = 0.5
)

// Valve is the component wrapper over the simulated valve: it commands
// the device from the test goroutine and validates the latest sampled
// flow against what was last commanded.
type Valve struct {
	name       string
	driver     sampler.Driver
	buf        *sampler.Handoff
	expectOpen bool
}

// NewValve builds a valve component reading telemetry from buf. buf may
// be nil, in which case every check reads the driver directly.
func NewValve(name string, driver sampler.Driver, buf *sampler.Handoff) *Valve {
	return &Valve{name: name, driver: driver, buf: buf}
}

func (v *Valve) Name() string { return v.name }

// Open commands the valve open. Runs on the caller's goroutine.
func (v *Valve) Open(ctx context.Context) error {
	return v.command(ctx, true)
}

// Shut commands the valve closed.
func (v *Valve) Shut(ctx context.Context) error {
	return v.command(ctx, false)
}

func (v *Valve) command(ctx context.Context, open bool) error {
	if _, err := v.driver.Write(ctx, sampler.Params{"open": open}); err != nil {
		return &sampler.DriverError{Device: v.name, Op: "write", Err: err}
	}
	v.expectOpen = open
	return nil
}

// Settled reports whether the flow reached the band for the commanded
// position. Used as a CheckAfterTrue predicate.
func (v *Valve) Settled() bool {
	sample, ok := v.latest()
	if !ok {
		return false
	}
	flow := sample.Values["flow_lpm"]
	if v.expectOpen {
		return flow >= openFlowLower
	}
	return flow <= closedFlowUpper
}

func (v *Valve) latest() (hwtest.Sample, bool) {
	if v.buf == nil {
		return hwtest.Sample{}, false
	}
	return v.buf.Latest()
}

// Check validates the current flow against the last commanded state.
func (v *Valve) Check(ctx context.Context) ([]hwtest.CheckResult, error) {
	sample, ok := v.latest()
	if !ok {
		// No background sample yet: read in the foreground. A failure
		// here is fatal, since the check point has no value to judge.
		var err error
		sample, err = v.driver.Read(ctx, nil)
		if err != nil {
			return nil, &sampler.DriverError{Device: v.name, Op: "read", Err: err}
		}
	}

	flow, ok := sample.Values["flow_lpm"]
	if !ok {
		return nil, fmt.Errorf("sample for %s has no flow_lpm", v.name)
	}

	checker := component.NewChecker(v.name)
	if v.expectOpen {
		checker.Between(openFlowLower, flow, openFlowUpper)
	} else {
		checker.Less(flow, closedFlowUpper)
	}
	return checker.Results()
}

var _ component.Component = (*Valve)(nil)
