package service

import (
	"context"
	"time"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/repository"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

type MonitoringService struct {
	runRepo repository.RunRepo
	buf     *sampler.Handoff
}

func NewMonitoringService(runRepo repository.RunRepo, buf *sampler.Handoff) *MonitoringService {
	return &MonitoringService{runRepo: runRepo, buf: buf}
}

// Status returns the latest persisted run status. If no run was ever
// recorded, returns a baseline IDLE snapshot.
func (s *MonitoringService) Status(ctx context.Context) (hwtest.RunStatus, error) {
	status, err := s.runRepo.Load(ctx)
	if err != nil {
		return hwtest.RunStatus{}, err
	}
	if status.ID == 0 {
		return s.baselineStatus(), nil
	}
	status.UpdatedAt = toUTC(status.UpdatedAt)
	status.StartedAt = toUTC(status.StartedAt)
	return status, nil
}

// Latest returns the freshest background sample, if any was published.
func (s *MonitoringService) Latest() (hwtest.Sample, bool) {
	if s.buf == nil {
		return hwtest.Sample{}, false
	}
	return s.buf.Latest()
}

// baselineStatus is the snapshot for a rig that has never run.
func (s *MonitoringService) baselineStatus() hwtest.RunStatus {
	return hwtest.RunStatus{
		ID:        1, // DB schema enforces single-row status with id=1
		State:     hwtest.RunStateIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
