package core

import (
	"sync"
	"time"
)

// HostTimer is a Timer backed by the monotonic wall clock. The one-shot
// callback runs on a runtime timer goroutine, which plays the role of the
// compare-match interrupt.
type HostTimer struct {
	mu sync.Mutex

	clockHz   uint32
	running   bool
	swEnabled bool
	swBase    time.Time // start of the segment not yet read
	swAccum   uint64    // cycles from segments closed by Stop

	oneShot   *time.Timer
	oneShotID uint32
	stopAtDue bool

	wake chan struct{}
}

// NewHostTimer creates a stopped wall-clock timer counting at clockHz
func NewHostTimer(clockHz uint32) *HostTimer {
	if clockHz == 0 {
		clockHz = ClockFreq
	}
	return &HostTimer{
		clockHz: clockHz,
		wake:    make(chan struct{}, 1),
	}
}

func (h *HostTimer) Init() error {
	return nil
}

func (h *HostTimer) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.stopAtDue = false
	h.swBase = time.Now()
}

func (h *HostTimer) Stop(mode StopMode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mode == StopOnDeadline && h.oneShot != nil {
		h.stopAtDue = true
		return
	}
	if h.running {
		h.swAccum += h.cyclesSince(h.swBase)
		h.running = false
	}
	h.cancelOneShot()
	if mode == StopImmediateReset {
		h.swAccum = 0
	}
}

func (h *HostTimer) EnableStopwatch(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.swEnabled = on
	h.swAccum = 0
	h.swBase = time.Now()
}

func (h *HostTimer) ReadAndResetStopwatch() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.swEnabled {
		return 0
	}

	total := h.swAccum
	h.swAccum = 0
	if h.running {
		c := h.cyclesSince(h.swBase)
		total += c
		// Advance the base by exactly what was counted so sub-cycle
		// remainders carry into the next read.
		h.swBase = h.swBase.Add(h.durationFor(c))
	}
	if total > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(total)
}

func (h *HostTimer) ArmOneShot(fn func(ctx any), ctx any, cycles uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cancelOneShot()
	h.oneShotID++
	id := h.oneShotID
	h.oneShot = time.AfterFunc(h.durationFor(uint64(cycles)), func() {
		h.mu.Lock()
		if id != h.oneShotID {
			h.mu.Unlock()
			return
		}
		h.oneShot = nil
		if h.stopAtDue {
			h.swAccum += h.cyclesSince(h.swBase)
			h.running = false
			h.stopAtDue = false
		}
		h.mu.Unlock()
		fn(ctx)
	})
}

func (h *HostTimer) Sleep(done func() bool) {
	if done != nil && done() {
		return
	}
	<-h.wake
}

func (h *HostTimer) Wake() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// cancelOneShot must be called with h.mu held
func (h *HostTimer) cancelOneShot() {
	if h.oneShot != nil {
		h.oneShot.Stop()
		h.oneShot = nil
	}
	h.oneShotID++
}

func (h *HostTimer) cyclesSince(t time.Time) uint64 {
	us := uint64(time.Since(t) / time.Microsecond)
	return us * uint64(h.clockHz) / 1000000
}

func (h *HostTimer) durationFor(cycles uint64) time.Duration {
	return time.Duration(cycles * 1000000 / uint64(h.clockHz)) * time.Microsecond
}
