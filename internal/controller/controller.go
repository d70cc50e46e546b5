package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/d5h-foss/hwtest/internal/component"
	"github.com/d5h-foss/hwtest/internal/logger"
	"github.com/d5h-foss/hwtest/internal/logging"
)

// State of a controller over its lifetime. Running subdivides per step
// into resolve, execute, and check, but those never outlive one Run
// iteration, so only the coarse states are observable.
type State int32

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrAlreadyRun reports a second Run call; a controller drives exactly
// one run.
var ErrAlreadyRun = errors.New("controller already run")

// Controller drives a test program step by step: resume the program,
// resolve the suspension into an action, execute it, and validate every
// registered component at the action's check point. Only the resolved
// wait and poll intervals block the test flow.
type Controller struct {
	program  Program
	registry *component.Registry

	defaultAction Action
	setup         func(ctx context.Context) error
	teardown      func(ctx context.Context) error
	sleep         func(ctx context.Context, d time.Duration) error
	sinks         []*logging.Sink
	log           *logger.Logger

	state atomic.Int32
	fails int
}

// Option configures a controller.
type Option func(*Controller)

// WithDefaultAction sets the action used for payload-free suspensions.
func WithDefaultAction(a Action) Option {
	return func(c *Controller) { c.defaultAction = a }
}

// WithSetup runs fn before the first program resumption.
func WithSetup(fn func(ctx context.Context) error) Option {
	return func(c *Controller) { c.setup = fn }
}

// WithTeardown runs fn after the program ends, even on a fatal error.
func WithTeardown(fn func(ctx context.Context) error) Option {
	return func(c *Controller) { c.teardown = fn }
}

// WithSinks registers sinks to flush before Run returns, so no queued
// PASS/FAIL event is lost even when the run aborts.
func WithSinks(sinks ...*logging.Sink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, sinks...) }
}

// WithSleep replaces the suspension primitive; tests use this to run
// scenarios without real waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithLogger attaches a structured logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New builds a controller for one program against one registry.
func New(program Program, registry *component.Registry, opts ...Option) *Controller {
	c := &Controller{
		program:       program,
		registry:      registry,
		defaultAction: WaitAndCheck{},
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Fails returns the fail count accumulated so far.
func (c *Controller) Fails() int { return c.fails }

// Run drives the program to completion and returns the total number of
// failed checks. A non-nil error means the run could not complete; the
// fail count returned alongside covers the checks that did happen.
// Queued log events are flushed before Run returns in every outcome.
func (c *Controller) Run(ctx context.Context) (int, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return 0, ErrAlreadyRun
	}

	runErr := c.runProgram(ctx)

	// Release a program abandoned mid-run (fatal action or validation
	// error) so its scenario goroutine is not left parked in a yield.
	if cl, ok := c.program.(interface{ Close() }); ok {
		cl.Close()
	}

	if c.teardown != nil {
		if err := c.teardown(ctx); err != nil && runErr == nil {
			runErr = err
		}
	}
	c.drainSinks()

	if runErr != nil {
		c.state.Store(int32(Failed))
		return c.fails, runErr
	}
	c.state.Store(int32(Completed))
	return c.fails, nil
}

func (c *Controller) runProgram(ctx context.Context) error {
	if c.setup != nil {
		if err := c.setup(ctx); err != nil {
			return err
		}
	}

	for {
		step, done, err := c.program.Resume(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		action, err := c.resolve(step)
		if err != nil {
			return err
		}
		if err := action.run(ctx, c); err != nil {
			return err
		}
	}
}

// resolve turns a suspension payload into a concrete, validated action.
func (c *Controller) resolve(step Step) (Action, error) {
	var action Action
	switch step.kind {
	case stepDelay:
		action = WaitAndCheck{Delay: step.delay}
	case stepAction:
		action = step.action
	default:
		action = c.defaultAction
	}
	if err := action.validate(); err != nil {
		return nil, err
	}
	return action, nil
}

// checkPoint validates all registered components against their state as
// of this moment and accumulates the fail count.
func (c *Controller) checkPoint(ctx context.Context) error {
	sum, err := c.registry.CheckAll(ctx)
	c.fails += sum.Fails
	if err != nil {
		return err
	}
	if c.log != nil {
		c.log.Debugw("check_point", "passes", sum.Passes, "fails", sum.Fails)
	}
	return nil
}

func (c *Controller) drainSinks() {
	for _, sink := range c.sinks {
		if err := sink.Flush(); err != nil && c.log != nil {
			c.log.Errorw("sink_flush_failed", "err", err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
