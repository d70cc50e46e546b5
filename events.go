package hwtest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// EventType tags a log event variant.
type EventType string

const (
	EventPass      EventType = "PASS"
	EventFail      EventType = "FAIL"
	EventTelemetry EventType = "TELEMETRY"
)

// Event is a structured log event. Each variant has a fixed, append-only
// column schema: the shared prefix (timestamp, type tag) followed by the
// variant's own fields in declaration order. Keys and Columns always line
// up index for index; line-oriented back-ends join Columns with commas.
type Event interface {
	Type() EventType
	Time() time.Time
	Keys() []string
	Columns() []string
}

var baseKeys = []string{"timestamp", "type"}

// CheckEvent is the shared layout of PASS and FAIL events. The optional
// subcomponent column is appended last so older consumers keep working.
type CheckEvent struct {
	Result CheckResult
	tag    EventType
}

// NewCheckEvent builds a PASS or FAIL event from a check result.
func NewCheckEvent(r CheckResult) CheckEvent {
	tag := EventFail
	if r.Passed {
		tag = EventPass
	}
	return CheckEvent{Result: r, tag: tag}
}

func (e CheckEvent) Type() EventType { return e.tag }

func (e CheckEvent) Time() time.Time { return e.Result.At }

func (e CheckEvent) Keys() []string {
	keys := append(append([]string{}, baseKeys...),
		"component_name", "lower_bound", "value", "upper_bound")
	if e.Result.Subcomponent != "" {
		keys = append(keys, "subcomponent_name")
	}
	return keys
}

func (e CheckEvent) Columns() []string {
	cols := []string{
		FormatTimestamp(e.Result.At),
		string(e.tag),
		e.Result.Component,
		FormatBound(e.Result.Lower),
		FormatBound(e.Result.Value),
		FormatBound(e.Result.Upper),
	}
	if e.Result.Subcomponent != "" {
		cols = append(cols, e.Result.Subcomponent)
	}
	return cols
}

// TelemetryField is one named reading in a telemetry event.
type TelemetryField struct {
	Key   string
	Value float64
}

// TelemetryEvent carries device readings sampled outside a check point.
// Fields keep their declaration order; new fields may only be appended.
type TelemetryEvent struct {
	At     time.Time
	Device string
	Fields []TelemetryField
}

// TelemetryFromSample flattens a sample into a telemetry event with
// fields sorted by key, so the column order is stable across samples.
func TelemetryFromSample(s Sample) TelemetryEvent {
	fields := make([]TelemetryField, 0, len(s.Values))
	for k, v := range s.Values {
		fields = append(fields, TelemetryField{Key: k, Value: v})
	}
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j-1].Key > fields[j].Key; j-- {
			fields[j-1], fields[j] = fields[j], fields[j-1]
		}
	}
	return TelemetryEvent{At: s.At, Device: s.Device, Fields: fields}
}

func (e TelemetryEvent) Type() EventType { return EventTelemetry }

func (e TelemetryEvent) Time() time.Time { return e.At }

func (e TelemetryEvent) Keys() []string {
	keys := append(append([]string{}, baseKeys...), "device")
	for _, f := range e.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func (e TelemetryEvent) Columns() []string {
	cols := []string{FormatTimestamp(e.At), string(EventTelemetry), e.Device}
	for _, f := range e.Fields {
		cols = append(cols, FormatBound(f.Value))
	}
	return cols
}

// Line renders an event as a single comma-separated record.
func Line(e Event) string {
	return strings.Join(e.Columns(), ",")
}

// FormatTimestamp renders a time as unix seconds with sub-second
// precision when present.
func FormatTimestamp(t time.Time) string {
	secs := float64(t.UnixNano()) / float64(time.Second)
	return strconv.FormatFloat(secs, 'f', -1, 64)
}

// FormatBound renders a bound or value, mapping the infinities to the
// "-inf"/"inf" markers used by the line format.
func FormatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
