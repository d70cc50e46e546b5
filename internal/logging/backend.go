package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/d5h-foss/hwtest"
)

// Backend writes one event at a time. Implementations must not buffer
// across events: by the time Write returns, the event is delivered (or
// the error says it is not).
type Backend interface {
	Write(e hwtest.Event) error
}

// LineBackend writes the comma-separated line format to an io.Writer,
// one line per event.
type LineBackend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineBackend returns a line-oriented backend. A nil writer means
// stdout.
func NewLineBackend(w io.Writer) *LineBackend {
	if w == nil {
		w = os.Stdout
	}
	return &LineBackend{w: w}
}

func (b *LineBackend) Write(e hwtest.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := fmt.Fprintln(b.w, hwtest.Line(e)); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	return nil
}

// NullBackend discards every event. Useful as the default for drivers
// that have no logger attached.
type NullBackend struct{}

func (NullBackend) Write(hwtest.Event) error { return nil }

// MultiBackend fans one event out to several backends. Every backend
// sees the event even when an earlier one fails; the first error wins.
type MultiBackend struct {
	backends []Backend
}

func NewMultiBackend(backends ...Backend) *MultiBackend {
	return &MultiBackend{backends: backends}
}

func (b *MultiBackend) Write(e hwtest.Event) error {
	var first error
	for _, backend := range b.backends {
		if err := backend.Write(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Backend = (*LineBackend)(nil)
	_ Backend = NullBackend{}
	_ Backend = (*MultiBackend)(nil)
)
