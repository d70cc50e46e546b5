package sampler

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/d5h-foss/hwtest"
)

// Handoff passes the latest sample from the sampler goroutine to any
// number of readers without blocking either side. The sample travels
// through an atomic pointer to a clone that is never mutated after
// publication. A generation counter doubles as write lock: it is odd
// while a publish is in progress, so a reader that sees an odd value,
// or a value that moved under it, retries instead of returning a stale
// pairing of sample and generation. There is exactly one writer.
type Handoff struct {
	gen    atomic.Uint64
	sample atomic.Pointer[hwtest.Sample]
}

const spinsBeforeSleep = 64

// Publish overwrites the buffered sample. Older unread samples are
// gone for good: the foreground only ever wants the freshest value.
func (h *Handoff) Publish(s hwtest.Sample) {
	g := h.gen.Load()
	h.gen.Store(g + 1) // odd: write in progress
	c := s.CloneValues()
	h.sample.Store(&c)
	h.gen.Store(g + 2)
}

// Latest returns a self-consistent copy of the newest sample. ok is
// false only when nothing has been published yet. Retries while the
// writer is mid-publish and yields the processor if it is persistently
// in the way.
func (h *Handoff) Latest() (hwtest.Sample, bool) {
	for spins := 0; ; spins++ {
		g1 := h.gen.Load()
		if g1 == 0 {
			return hwtest.Sample{}, false
		}
		if g1&1 == 0 {
			p := h.sample.Load()
			if p != nil && h.gen.Load() == g1 {
				// The pointee is immutable once stored, so copying
				// it here needs no further coordination.
				return p.CloneValues(), true
			}
		}
		if spins < spinsBeforeSleep {
			runtime.Gosched()
		} else {
			time.Sleep(50 * time.Microsecond)
		}
	}
}

// Generation returns the number of completed publishes.
func (h *Handoff) Generation() uint64 {
	return h.gen.Load() / 2
}
