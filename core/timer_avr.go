//go:build tinygo && avr

package core

import (
	"device/avr"
	"runtime/interrupt"
)

// AVRTimer drives the run loop from Timer1, the 16-bit timer left free by
// the TinyGo runtime. It counts CPU cycles (prescaler 1); the overflow
// interrupt extends the count to 32 bits and the compare A interrupt
// delivers the one-shot.
type AVRTimer struct {
	overflows uint16 // high half of the cycle count
	swEnabled bool
	swBase    uint32

	armed     bool
	deadline  uint32
	stopAtDue bool
	oneShotFn func(ctx any)
	oneShotCx any
}

var timer1 *AVRTimer

// NewAVRTimer returns the Timer1 driver. Only one instance exists.
func NewAVRTimer() *AVRTimer {
	if timer1 == nil {
		timer1 = &AVRTimer{}
	}
	return timer1
}

func (t *AVRTimer) Init() error {
	avr.TCCR1B.Set(0) // stopped
	avr.TCCR1A.Set(0) // normal mode
	avr.TCNT1H.Set(0)
	avr.TCNT1L.Set(0)
	avr.TIFR1.Set(avr.TIFR1_TOV1 | avr.TIFR1_OCF1A)
	avr.TIMSK1.Set(avr.TIMSK1_TOIE1)

	interrupt.New(avr.IRQ_TIMER1_OVF, timer1Overflow)
	interrupt.New(avr.IRQ_TIMER1_COMPA, timer1CompareA)
	return nil
}

func (t *AVRTimer) Start() {
	t.stopAtDue = false
	avr.TCCR1B.Set(avr.TCCR1B_CS10)
}

func (t *AVRTimer) Stop(mode StopMode) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	switch mode {
	case StopOnDeadline:
		if t.armed {
			t.stopAtDue = true
			return
		}
		avr.TCCR1B.Set(0)
	case StopImmediate:
		avr.TCCR1B.Set(0)
	case StopImmediateReset:
		avr.TCCR1B.Set(0)
		avr.TCNT1H.Set(0)
		avr.TCNT1L.Set(0)
		avr.TIFR1.Set(avr.TIFR1_TOV1 | avr.TIFR1_OCF1A)
		t.overflows = 0
		t.swBase = 0
		t.disarm()
	}
}

func (t *AVRTimer) EnableStopwatch(on bool) {
	state := interrupt.Disable()
	t.swEnabled = on
	t.swBase = t.now()
	interrupt.Restore(state)
}

func (t *AVRTimer) ReadAndResetStopwatch() uint32 {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	if !t.swEnabled {
		return 0
	}
	now := t.now()
	elapsed := now - t.swBase
	t.swBase = now
	return elapsed
}

// ArmOneShot arranges for fn to run from the compare interrupt after cycles.
// Very short delays run fn at once.
func (t *AVRTimer) ArmOneShot(fn func(ctx any), ctx any, cycles uint32) {
	if cycles < 64 {
		fn(ctx)
		return
	}

	state := interrupt.Disable()
	t.deadline = t.now() + cycles
	t.oneShotFn = fn
	t.oneShotCx = ctx
	t.armed = true
	avr.OCR1AH.Set(uint8(t.deadline >> 8))
	avr.OCR1AL.Set(uint8(t.deadline))
	avr.TIFR1.Set(avr.TIFR1_OCF1A)
	avr.TIMSK1.SetBits(avr.TIMSK1_OCIE1A)
	interrupt.Restore(state)
}

// now returns the 32-bit cycle count. Interrupts must be disabled.
func (t *AVRTimer) now() uint32 {
	low := uint16(avr.TCNT1L.Get()) // reading L latches H
	low |= uint16(avr.TCNT1H.Get()) << 8
	high := t.overflows
	if avr.TIFR1.HasBits(avr.TIFR1_TOV1) && low < 0x8000 {
		high++ // overflow pending, not yet counted
	}
	return uint32(high)<<16 | uint32(low)
}

// disarm must be called with interrupts disabled
func (t *AVRTimer) disarm() {
	t.armed = false
	t.oneShotFn = nil
	t.oneShotCx = nil
	avr.TIMSK1.ClearBits(avr.TIMSK1_OCIE1A)
}

func timer1Overflow(interrupt.Interrupt) {
	timer1.overflows++
}

func timer1CompareA(interrupt.Interrupt) {
	t := timer1
	if !t.armed || int32(t.now()-t.deadline) < 0 {
		return // compare value reached in an earlier 16-bit lap
	}

	fn, ctx := t.oneShotFn, t.oneShotCx
	t.disarm()
	if t.stopAtDue {
		avr.TCCR1B.Set(0)
		t.stopAtDue = false
	}
	if fn != nil {
		fn(ctx)
	}
}
