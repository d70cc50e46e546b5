package controller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAction reports malformed action arguments. Resolution
// happens before the action executes, so a bad scenario fails fast
// instead of mid-run.
var ErrInvalidAction = errors.New("invalid action arguments")

// Action is one resolved suspension of the test program. Each action
// executes exactly once and decides how waiting relates to the check
// point it wraps.
type Action interface {
	validate() error
	run(ctx context.Context, c *Controller) error
}

// WaitAndCheck suspends for Delay, then validates every registered
// component. Delay zero checks immediately without suspending.
type WaitAndCheck struct {
	Delay time.Duration
}

func (a WaitAndCheck) validate() error {
	if a.Delay < 0 {
		return fmt.Errorf("%w: negative delay %v", ErrInvalidAction, a.Delay)
	}
	return nil
}

func (a WaitAndCheck) run(ctx context.Context, c *Controller) error {
	if a.Delay > 0 {
		if err := c.sleep(ctx, a.Delay); err != nil {
			return err
		}
	}
	return c.checkPoint(ctx)
}

// CheckAndWait validates immediately, then suspends for Delay before
// the test program resumes.
type CheckAndWait struct {
	Delay time.Duration
}

func (a CheckAndWait) validate() error {
	if a.Delay < 0 {
		return fmt.Errorf("%w: negative delay %v", ErrInvalidAction, a.Delay)
	}
	return nil
}

func (a CheckAndWait) run(ctx context.Context, c *Controller) error {
	if err := c.checkPoint(ctx); err != nil {
		return err
	}
	if a.Delay > 0 {
		return c.sleep(ctx, a.Delay)
	}
	return nil
}

// CheckAfterTrue polls Predicate at PollInterval until it reports true
// or the cumulative wait exceeds Timeout. On timeout, OnTimeout (if
// set) runs once, and the check point still happens: skipping it would
// hide whatever state the timeout left behind.
type CheckAfterTrue struct {
	Predicate    func() bool
	PollInterval time.Duration
	Timeout      time.Duration
	OnTimeout    func()
}

func (a CheckAfterTrue) validate() error {
	if a.Predicate == nil {
		return fmt.Errorf("%w: nil predicate", ErrInvalidAction)
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %v", ErrInvalidAction, a.PollInterval)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v", ErrInvalidAction, a.Timeout)
	}
	return nil
}

func (a CheckAfterTrue) run(ctx context.Context, c *Controller) error {
	var elapsed time.Duration
	for !a.Predicate() {
		if elapsed >= a.Timeout {
			if a.OnTimeout != nil {
				a.OnTimeout()
			}
			break
		}
		if err := c.sleep(ctx, a.PollInterval); err != nil {
			return err
		}
		elapsed += a.PollInterval
	}
	return c.checkPoint(ctx)
}
