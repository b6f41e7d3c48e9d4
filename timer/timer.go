package timer

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic time source behind get_time and user-level
// sleeping.
type Clock interface {
	NowMs() uint64
}

// Monotonic counts milliseconds since it was created (i.e., since boot).
type Monotonic struct {
	boot time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{boot: time.Now()}
}

func (m *Monotonic) NowMs() uint64 {
	return uint64(time.Since(m.boot).Milliseconds())
}

// Manual is a clock that only moves when told to; for tests and for
// replaying a boot deterministically.
type Manual struct {
	ms atomic.Uint64
}

func NewManual(start uint64) *Manual {
	m := &Manual{}
	m.ms.Store(start)
	return m
}

func (m *Manual) NowMs() uint64 {
	return m.ms.Load()
}

func (m *Manual) Advance(ms uint64) {
	m.ms.Add(ms)
}
