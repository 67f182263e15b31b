//go:build !tinygo

package hal

import "time"

type hostTime struct {
	ch  chan uint64
	seq uint64
	hz  uint32

	last time.Time
	acc  time.Duration
}

func newHostTime(hz uint32) *hostTime {
	if hz == 0 {
		hz = 1000
	}
	return &hostTime{ch: make(chan uint64, 1024), hz: hz}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }
func (t *hostTime) TickHz() uint32       { return t.hz }

func (t *hostTime) tickDur() time.Duration {
	d := time.Second / time.Duration(t.hz)
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}

// step converts wall time elapsed since the previous call into ticks. The first call
// emits n ticks.
func (t *hostTime) step(n uint64) {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	dur := t.tickDur()
	ticks := uint64(t.acc / dur)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % dur
	t.stepN(ticks)
}

// stepN emits n ticks. Only the newest sequence number matters to readers, so a
// full channel drops ticks instead of blocking.
func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
