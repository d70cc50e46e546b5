package sampler

import (
	"context"
	"fmt"

	"github.com/d5h-foss/hwtest"
)

// Params is the implementation-defined argument bag passed to a driver.
type Params map[string]any

// Driver is the hardware capability consumed by the rig: synchronous
// reads and writes against one device. Reads are issued from the
// sampler's goroutine; writes stay on the caller's goroutine so commands
// never race with sampling.
type Driver interface {
	Read(ctx context.Context, p Params) (hwtest.Sample, error)
	Write(ctx context.Context, p Params) (any, error)
}

// DriverError wraps a failed driver operation.
type DriverError struct {
	Device string
	Op     string // "read" | "write"
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s %s: %v", e.Device, e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// FatalError reports that the sampler gave up after too many
// consecutive read failures. Distinct from a failed check: the run
// could not continue, not merely a bound violation.
type FatalError struct {
	Device      string
	Consecutive int
	LastFailure error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("sampler %s: %d consecutive read failures, last: %v",
		e.Device, e.Consecutive, e.LastFailure)
}

func (e *FatalError) Unwrap() error { return e.LastFailure }
