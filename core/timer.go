package core

import "errors"

// ClockFreq is the default CPU clock of the AVR boards this toolkit targets
const ClockFreq = 16000000 // 16MHz

// ErrCycleOverflow is returned when a duration does not fit a 32-bit cycle count
var ErrCycleOverflow = errors.New("duration overflows 32-bit cycle counter")

// StopMode selects how Timer.Stop halts the counter
type StopMode uint8

const (
	// StopOnDeadline lets an armed one-shot expire before halting
	StopOnDeadline StopMode = iota
	// StopImmediate halts at once, keeping the stopwatch value
	StopImmediate
	// StopImmediateReset halts at once and clears stopwatch and one-shot
	StopImmediateReset
)

func (m StopMode) String() string {
	switch m {
	case StopOnDeadline:
		return "on-deadline"
	case StopImmediate:
		return "immediate"
	case StopImmediateReset:
		return "immediate-reset"
	default:
		return "unknown"
	}
}

// Timer is the hardware timer service driving the run loop.
// Counts are CPU clock cycles; implementations pick the prescaler.
type Timer interface {
	// Init allocates the hardware timer.
	Init() error

	// Start resumes counting.
	Start()

	// Stop halts counting according to mode.
	Stop(mode StopMode)

	// EnableStopwatch turns the free-running cycle counter on or off.
	EnableStopwatch(on bool)

	// ReadAndResetStopwatch returns the cycles counted since the previous
	// read and clears the counter, atomically with respect to the timer's
	// own overflow interrupt.
	ReadAndResetStopwatch() uint32

	// ArmOneShot calls fn(ctx) from interrupt context after the given number
	// of cycles. Arming replaces any countdown already pending.
	ArmOneShot(fn func(ctx any), ctx any, cycles uint32)
}

// Sleeper puts the processor in its lowest power mode that still receives
// timer and serial interrupts.
type Sleeper interface {
	// Sleep returns at once when done reports true, otherwise after the
	// next interrupt. done is checked with interrupts masked so a wake
	// raised just before sleeping is not lost. A nil done is never true.
	Sleep(done func() bool)

	// Wake is raised by interrupt-context code to end a Sleep. Builds where
	// the interrupt itself resumes the CPU implement it as a no-op.
	Wake()
}

// CyclesFromMS converts milliseconds to clock cycles at clockHz
func CyclesFromMS(ms uint32, clockHz uint32) (uint32, error) {
	cycles := uint64(ms) * uint64(clockHz/1000)
	if cycles > 0xFFFFFFFF {
		return 0, ErrCycleOverflow
	}
	return uint32(cycles), nil
}

// MSFromCycles converts clock cycles to milliseconds at clockHz
func MSFromCycles(cycles uint64, clockHz uint32) uint64 {
	perMS := uint64(clockHz / 1000)
	if perMS == 0 {
		return 0
	}
	return cycles / perMS
}
