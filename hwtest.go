package hwtest

import (
	"errors"
	"math"
	"time"
)

// Run states persisted in the run_status row.
const (
	RunStateIdle      = "IDLE"
	RunStateRunning   = "RUNNING"
	RunStateCompleted = "COMPLETED"
	RunStateFailed    = "FAILED"
)

// Inf and NegInf are the open bound markers used by check results.
var (
	Inf    = math.Inf(1)
	NegInf = math.Inf(-1)
)

// ErrInvalidBounds reports a finite lower bound above a finite upper bound.
// It is a configuration mistake in the test scenario, not a device failure.
var ErrInvalidBounds = errors.New("lower bound exceeds upper bound")

// CheckResult is one bounds comparison produced by a component check.
// Lower and Upper may be NegInf/Inf for one-sided checks.
type CheckResult struct {
	Component    string    `json:"component"`
	Subcomponent string    `json:"subcomponent,omitempty"`
	At           time.Time `json:"at"`
	Lower        float64   `json:"lower"`
	Value        float64   `json:"value"`
	Upper        float64   `json:"upper"`
	Passed       bool      `json:"passed"`
}

// Sample is the fixed-layout telemetry record handed off from the
// background sampler to the foreground. Values is copied on publish and
// on read; nothing else is shared between the two sides.
type Sample struct {
	Device string             `json:"device"`
	At     time.Time          `json:"at"`
	Seq    uint64             `json:"seq"`
	Values map[string]float64 `json:"values"`
}

// CloneValues returns a copy of the sample with its own Values map.
func (s Sample) CloneValues() Sample {
	if s.Values == nil {
		return s
	}
	vals := make(map[string]float64, len(s.Values))
	for k, v := range s.Values {
		vals[k] = v
	}
	s.Values = vals
	return s
}

// RunStatus is the current snapshot of the (single) test run.
type RunStatus struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	State     string    `json:"state"` // IDLE | RUNNING | COMPLETED | FAILED
	Fails     int       `json:"fails"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventRecord is a persisted log event as stored and listed by the
// event repository. Line holds the serialized comma-separated columns.
type EventRecord struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"` // PASS | FAIL | TELEMETRY
	Component  string    `json:"component"`
	Line       string    `json:"line"`
	Metadata   any       `json:"metadata,omitempty"`
}

// Operator is an API user allowed to control the rig.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don't expose hash
}
