package controller

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type stepKind int

const (
	stepDefault stepKind = iota
	stepDelay
	stepAction
)

// Step is the payload of one suspension point. An empty step asks for
// the controller's default action; a delay step is shorthand for
// WaitAndCheck; an action step is used as-is.
type Step struct {
	kind   stepKind
	delay  time.Duration
	action Action
}

// Next suspends with no payload; the controller's default action runs.
func Next() Step { return Step{} }

// After suspends with a bare delay, shorthand for WaitAndCheck(d).
func After(d time.Duration) Step { return Step{kind: stepDelay, delay: d} }

// Do suspends with an explicit action.
func Do(a Action) Step { return Step{kind: stepAction, action: a} }

// Program is a resumable test scenario. Resume runs the scenario up to
// its next suspension point and reports the step, completion, or a
// fatal scenario error. A program is driven by a single controller.
type Program interface {
	Resume(ctx context.Context) (step Step, done bool, err error)
}

type sequence struct {
	steps []Step
	next  int
}

// Sequence is the simplest program: a fixed list of suspension points.
func Sequence(steps ...Step) Program {
	return &sequence{steps: steps}
}

func (s *sequence) Resume(ctx context.Context) (Step, bool, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, false, err
	}
	if s.next >= len(s.steps) {
		return Step{}, true, nil
	}
	step := s.steps[s.next]
	s.next++
	return step, false, nil
}

// Yield hands a step to the controller and blocks the scenario until
// the controller resumes it.
type Yield func(Step)

// ScriptFunc is a scenario written as straight-line code. It runs on
// its own goroutine; every yield call is a suspension point. Returning
// ends the program; returning an error (or panicking) fails the run.
type ScriptFunc func(ctx context.Context, yield Yield) error

// Script adapts a ScriptFunc to the Program contract. The scenario
// goroutine only ever runs between a Resume call and the next yield,
// so scenario code and controller never execute concurrently.
type Script struct {
	fn       ScriptFunc
	started  bool
	finished bool
	steps    chan Step
	resume   chan struct{}
	result   chan error
	quit     chan struct{}
	quitOnce sync.Once
}

func NewScript(fn ScriptFunc) *Script {
	return &Script{
		fn:     fn,
		steps:  make(chan Step),
		resume: make(chan struct{}),
		result: make(chan error, 1),
		quit:   make(chan struct{}),
	}
}

// Close releases the scenario goroutine when the run stops resuming
// the program before it completes, so an abandoned mid-run scenario
// does not sit in a yield forever. The controller calls it after every
// run; idempotent and safe at any time.
func (s *Script) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

type scriptAbort struct{}

func (s *Script) Resume(ctx context.Context) (Step, bool, error) {
	if s.finished {
		return Step{}, true, nil
	}
	if !s.started {
		s.started = true
		go s.drive(ctx)
	} else {
		select {
		case s.resume <- struct{}{}:
		case <-ctx.Done():
			s.finished = true
			return Step{}, false, ctx.Err()
		}
	}

	select {
	case step := <-s.steps:
		return step, false, nil
	case err := <-s.result:
		s.finished = true
		return Step{}, true, err
	case <-ctx.Done():
		s.finished = true
		return Step{}, false, ctx.Err()
	}
}

// drive runs the scenario function, converting panics into program
// errors and unwinding cleanly when the run context is canceled while
// the scenario sits in a yield.
func (s *Script) drive(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			if _, aborted := r.(scriptAbort); aborted {
				s.result <- ctx.Err()
			} else {
				s.result <- fmt.Errorf("test program panic: %v", r)
			}
		}
	}()

	yield := func(step Step) {
		select {
		case s.steps <- step:
		case <-ctx.Done():
			panic(scriptAbort{})
		case <-s.quit:
			panic(scriptAbort{})
		}
		select {
		case <-s.resume:
		case <-ctx.Done():
			panic(scriptAbort{})
		case <-s.quit:
			panic(scriptAbort{})
		}
	}

	s.result <- s.fn(ctx, yield)
}
