package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/logger"
	"github.com/d5h-foss/hwtest/internal/logging"
	"github.com/d5h-foss/hwtest/internal/metrics"
)

var (
	ErrAlreadyStarted = errors.New("sampler already started")
	ErrNotStarted     = errors.New("sampler not started")
	ErrStopTimeout    = errors.New("sampler did not stop within grace period")
)

const (
	DefaultPeriod           = 20 * time.Millisecond // 50 Hz
	DefaultFailureThreshold = 5
)

// Sampler polls a driver at a fixed period on its own goroutine,
// publishing each sample into the handoff buffer and, when a sink is
// attached, emitting a TELEMETRY event per sample. A failed read is
// logged and skipped; too many consecutive failures escalate through
// Fatal and stop the loop.
type Sampler struct {
	driver     Driver
	device     string
	readParams Params // retained read params, passed to every tick
	period     time.Duration
	threshold  int

	buf     *Handoff
	sink    *logging.Sink
	toEvent func(hwtest.Sample) hwtest.Event
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	fatal   chan error
}

// Config carries sampler construction knobs.
type Config struct {
	// Device names the sampled device in telemetry and errors.
	Device           string
	Period           time.Duration
	FailureThreshold int
	ReadParams       Params
	// Buffer is the handoff buffer to publish into. Nil allocates a
	// private one; pass a shared buffer to let foreground readers
	// outlive the sampler.
	Buffer *Handoff
	// Sink receives TELEMETRY events; nil disables telemetry logging.
	Sink *logging.Sink
	// ToEvent overrides the sample-to-event conversion.
	ToEvent func(hwtest.Sample) hwtest.Event
	Metrics *metrics.Metrics
}

// New returns a sampler for the given driver. log must not be nil.
func New(driver Driver, log *logger.Logger, cfg Config) *Sampler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	toEvent := cfg.ToEvent
	if toEvent == nil {
		toEvent = func(s hwtest.Sample) hwtest.Event {
			return hwtest.TelemetryFromSample(s)
		}
	}
	buf := cfg.Buffer
	if buf == nil {
		buf = &Handoff{}
	}
	return &Sampler{
		driver:     driver,
		device:     cfg.Device,
		readParams: cfg.ReadParams,
		period:     cfg.Period,
		threshold:  cfg.FailureThreshold,
		buf:        buf,
		sink:       cfg.Sink,
		toEvent:    toEvent,
		log:        log,
		metrics:    cfg.Metrics,
		fatal:      make(chan error, 1),
	}
}

// Buffer exposes the handoff buffer for foreground readers.
func (s *Sampler) Buffer() *Handoff { return s.buf }

// Fatal delivers at most one escalated error for the sampler's lifetime.
func (s *Sampler) Fatal() <-chan error { return s.fatal }

// Start spawns the sampling loop. Returns ErrAlreadyStarted on reuse.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx)
	return nil
}

// Stop signals the loop to exit, waits up to grace for it, then flushes
// pending telemetry. Safe to call at any time, including twice.
func (s *Sampler) Stop(grace time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(grace):
		return ErrStopTimeout
	}

	if s.sink != nil {
		if err := s.sink.Flush(); err != nil && !errors.Is(err, logging.ErrSinkClosed) {
			return err
		}
	}
	return nil
}

func (s *Sampler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := s.driver.Read(ctx, s.readParams)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				consecutive++
				s.metrics.ObserveReadFailure()
				s.log.Errorw("sampler_read_failed",
					"device", s.device, "err", err, "consecutive", consecutive)
				if consecutive >= s.threshold {
					s.escalate(&FatalError{
						Device:      s.device,
						Consecutive: consecutive,
						LastFailure: err,
					})
					return
				}
				continue // best effort; next tick, no retry
			}
			consecutive = 0
			s.publish(sample)
		}
	}
}

func (s *Sampler) publish(sample hwtest.Sample) {
	if sample.Device == "" {
		sample.Device = s.device
	}
	if sample.At.IsZero() {
		sample.At = time.Now().UTC()
	}
	sample.Seq = s.buf.Generation() + 1
	s.buf.Publish(sample)
	s.metrics.ObserveSample(s.buf.Generation())

	if s.sink == nil {
		return
	}
	if err := s.sink.Submit(s.toEvent(sample)); err != nil {
		// Telemetry is lossy by configuration; log and move on.
		s.log.Infow("telemetry_submit_failed", "err", err)
	}
}

func (s *Sampler) escalate(err error) {
	s.log.Errorw("sampler_fatal", "err", err)
	select {
	case s.fatal <- err:
	default:
	}
}
