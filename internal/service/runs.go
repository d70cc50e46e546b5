package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/controller"
	"github.com/d5h-foss/hwtest/internal/logger"
	"github.com/d5h-foss/hwtest/internal/repository"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

var (
	ErrRunActive = errors.New("a test run is already active")
	ErrNoRun     = errors.New("no active test run")
)

const samplerStopGrace = 2 * time.Second

// Run bundles the moving parts of one test run. Cleanup runs after the
// controller returns and must close the run's sinks, draining queued
// events.
type Run struct {
	Controller *controller.Controller
	Sampler    *sampler.Sampler // optional
	// StopGrace bounds the wait for the sampler loop on shutdown.
	// Zero means the built-in default.
	StopGrace time.Duration
	Cleanup   func() error
}

// RunFactory builds a fresh run. Called once per Start; the context is
// canceled when the run is aborted.
type RunFactory func(ctx context.Context) (*Run, error)

// RunService owns the lifecycle of the (single) active run and records
// its status through the repository.
type RunService struct {
	runRepo repository.RunRepo
	factory RunFactory
	log     *logger.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunService(runRepo repository.RunRepo, factory RunFactory, log *logger.Logger) *RunService {
	return &RunService{runRepo: runRepo, factory: factory, log: log}
}

// Start launches the configured scenario in the background and records
// the RUNNING status. Fails with ErrRunActive if a run is in flight.
func (s *RunService) Start(ctx context.Context) (hwtest.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return hwtest.RunStatus{}, ErrRunActive
	}

	now := time.Now().UTC()
	status := hwtest.RunStatus{
		ID:        1,
		RunID:     uuid.NewString(),
		State:     hwtest.RunStateRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.runRepo.Save(ctx, status); err != nil {
		return hwtest.RunStatus{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.active = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.execute(runCtx, cancel, status)

	return status, nil
}

// Abort cancels the active run and waits for it to wind down, bounded
// by the caller's context. Already-queued events are still delivered:
// the run's cleanup closes its sinks before Abort returns.
func (s *RunService) Abort(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNoRun
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runResult struct {
	fails int
	err   error
}

func (s *RunService) execute(ctx context.Context, cancel context.CancelFunc, status hwtest.RunStatus) {
	defer func() {
		cancel()
		s.mu.Lock()
		s.active = false
		close(s.done)
		s.mu.Unlock()
	}()

	run, err := s.factory(ctx)
	if err != nil {
		s.finish(status, 0, err)
		return
	}

	if run.Sampler != nil {
		if err := run.Sampler.Start(ctx); err != nil {
			s.finish(status, 0, err)
			return
		}
	}

	resCh := make(chan runResult, 1)
	go func() {
		fails, err := run.Controller.Run(ctx)
		resCh <- runResult{fails: fails, err: err}
	}()

	var res runResult
	if run.Sampler != nil {
		select {
		case res = <-resCh:
		case fatal := <-run.Sampler.Fatal():
			// The sampler gave up; abort the controller but keep its
			// fail count, then report the escalation as the run error.
			cancel()
			res = <-resCh
			res.err = fatal
		}
		grace := run.StopGrace
		if grace <= 0 {
			grace = samplerStopGrace
		}
		if err := run.Sampler.Stop(grace); err != nil && !errors.Is(err, sampler.ErrNotStarted) {
			s.log.Errorw("sampler_stop_failed", "err", err)
		}
	} else {
		res = <-resCh
	}

	if run.Cleanup != nil {
		if err := run.Cleanup(); err != nil {
			s.log.Errorw("run_cleanup_failed", "err", err)
		}
	}
	s.finish(status, res.fails, res.err)
}

// finish persists the terminal status. Uses a fresh context: the run
// context is usually canceled by the time we get here.
func (s *RunService) finish(status hwtest.RunStatus, fails int, runErr error) {
	status.Fails = fails
	status.UpdatedAt = time.Now().UTC()
	if runErr != nil {
		status.State = hwtest.RunStateFailed
		status.Error = runErr.Error()
	} else {
		status.State = hwtest.RunStateCompleted
	}

	ctx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSave()
	if err := s.runRepo.Save(ctx, status); err != nil {
		s.log.Errorw("run_status_save_failed", "err", err, "state", status.State)
	}
	s.log.Infow("run_finished",
		"run_id", status.RunID, "state", status.State, "fails", fails)
}
