//go:build tinygo && avr

package core

import (
	"device/avr"
	"runtime/interrupt"
)

// avrSleeper enters idle sleep mode, which keeps the timers and the USART
// clocked so their interrupts resume the CPU.
type avrSleeper struct{}

// NewSleeper returns the platform low-power wait
func NewSleeper() Sleeper {
	return avrSleeper{}
}

func (avrSleeper) Sleep(done func() bool) {
	state := interrupt.Disable()
	if done != nil && done() {
		interrupt.Restore(state)
		return
	}
	// SM2:0 = 000 selects idle mode. sei takes effect after the following
	// instruction, so a pending interrupt can only wake us from sleep.
	avr.SMCR.Set(avr.SMCR_SE)
	avr.Asm("sei\nsleep")
	avr.SMCR.Set(0)
	interrupt.Restore(state)
}

// Wake is a no-op: the interrupt itself resumes the CPU.
func (avrSleeper) Wake() {}
