package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/sampler"
)

func TestMonitoring_StatusBaselineWhenNeverRan(t *testing.T) {
	t.Parallel()

	svc := NewMonitoringService(&fakeRunRepo{}, nil)
	s, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if s.State != hwtest.RunStateIdle || s.ID != 1 {
		t.Fatalf("baseline = %+v", s)
	}
	if s.UpdatedAt.IsZero() {
		t.Fatalf("baseline must carry a timestamp")
	}
}

func TestMonitoring_StatusNormalizedToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5", 5*3600)
	repo := &fakeRunRepo{load: hwtest.RunStatus{
		ID:        1,
		State:     hwtest.RunStateCompleted,
		StartedAt: time.Date(2026, 8, 28, 14, 0, 0, 0, loc),
		UpdatedAt: time.Date(2026, 8, 28, 14, 5, 0, 0, loc),
	}}

	svc := NewMonitoringService(repo, nil)
	s, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if s.StartedAt.Location() != time.UTC || s.UpdatedAt.Location() != time.UTC {
		t.Fatalf("timestamps not UTC: %+v", s)
	}
	if s.State != hwtest.RunStateCompleted {
		t.Fatalf("state = %s", s.State)
	}
}

func TestMonitoring_StatusRepoError(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{loadErr: errors.New("db down")}
	svc := NewMonitoringService(repo, nil)
	if _, err := svc.Status(context.Background()); err == nil {
		t.Fatalf("expected repo error")
	}
}

func TestMonitoring_Latest(t *testing.T) {
	t.Parallel()

	buf := &sampler.Handoff{}
	svc := NewMonitoringService(&fakeRunRepo{}, buf)

	if _, ok := svc.Latest(); ok {
		t.Fatalf("expected no sample before first publish")
	}

	buf.Publish(hwtest.Sample{Device: "valve-1", Seq: 1, Values: map[string]float64{"flow_lpm": 4.8}})
	s, ok := svc.Latest()
	if !ok || s.Device != "valve-1" || s.Values["flow_lpm"] != 4.8 {
		t.Fatalf("latest = %+v ok=%v", s, ok)
	}
}

func TestMonitoring_LatestWithoutBuffer(t *testing.T) {
	t.Parallel()

	svc := NewMonitoringService(&fakeRunRepo{}, nil)
	if _, ok := svc.Latest(); ok {
		t.Fatalf("nil buffer must report no sample")
	}
}
