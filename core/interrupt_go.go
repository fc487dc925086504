//go:build !tinygo

package core

import "sync"

// State is the saved interrupt state returned by DisableInterrupts.
type State uintptr

// On host builds "interrupt context" is any goroutine other than the one
// running the scheduler, so the critical section is a process-wide mutex.
// Critical sections must not nest.
var interruptMu sync.Mutex

// DisableInterrupts enters a critical section and returns the previous state
func DisableInterrupts() State {
	interruptMu.Lock()
	return 0
}

// RestoreInterrupts leaves the critical section entered by DisableInterrupts
func RestoreInterrupts(state State) {
	interruptMu.Unlock()
}
