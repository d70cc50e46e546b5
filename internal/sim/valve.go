// Package sim provides a simulated valve rig so the harness can run end
// to end without hardware attached.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

// Simulation constants.
const (
	DeviceName  = "valve-1"
	FullFlowLPM = 5.0  // steady-state flow when fully open, L/min
	OpenRampLPM = 25.0 // flow change per second while opening
	ShutRampLPM = 40.0 // flow change per second while closing
)

// ValveDriver simulates a solenoid valve with a downstream flow meter.
// Reads come from the sampler goroutine, writes from the test
// goroutine, so the internal state is mutex-guarded.
type ValveDriver struct {
	mu   sync.Mutex
	open bool
	flow float64
	last time.Time
	now  func() time.Time
}

func NewValveDriver() *ValveDriver {
	d := &ValveDriver{now: time.Now}
	d.last = d.now()
	return d
}

// Read advances the flow model by the elapsed wall time and reports the
// current reading.
func (d *ValveDriver) Read(ctx context.Context, _ sampler.Params) (hwtest.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.advance(now.Sub(d.last).Seconds())
	d.last = now

	openVal := 0.0
	if d.open {
		openVal = 1.0
	}
	return hwtest.Sample{
		Device: DeviceName,
		At:     now.UTC(),
		Values: map[string]float64{
			"flow_lpm":  d.flow,
			"commanded": openVal,
		},
	}, nil
}

// Write accepts {"open": bool} and commands the valve.
func (d *ValveDriver) Write(ctx context.Context, p sampler.Params) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := p["open"].(bool); ok {
		now := d.now()
		d.advance(now.Sub(d.last).Seconds())
		d.last = now
		d.open = v
	}
	return nil, nil
}

// advance moves flow toward its target. Callers hold the mutex.
func (d *ValveDriver) advance(elapsed float64) {
	if elapsed <= 0 {
		return
	}
	target := 0.0
	rate := ShutRampLPM
	if d.open {
		target = FullFlowLPM
		rate = OpenRampLPM
	}
	step := rate * elapsed
	switch {
	case d.flow < target:
		d.flow = minFloat(d.flow+step, target)
	case d.flow > target:
		d.flow = maxFloat(d.flow-step, target)
	}
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
