package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a scheduler event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	ID        uint8  // Task ID
	Clock     uint32 // Low 32 bits of run loop uptime in cycles
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtPromote   = 1 // Pending tasks promoted (ID unused, v1 = count)
	EvtTaskFire  = 2 // Task callback invoked (v1 = overdue cycles)
	EvtRetire    = 3 // Task slot freed (v1 = status code)
	EvtTaskError = 4 // Task returned an error code (v1 = code)
	EvtDrop      = 5 // Deadlines missed (v1 = dropped count, v2 = re-arm cycles)
	EvtIdle      = 6 // Idle sleep armed (v1 = sleep cycles, v2 = head id or 0xFF)
	EvtPause     = 7 // Run loop paused
	EvtResume    = 8 // Run loop resumed
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8        // Next write position
	timingEnabled  bool  = true // Always capture timing events
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, a host logger, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures a timing event in the ring buffer. Faults (drops
// and task errors) are also printed when debug output is enabled.
// Must not be called from inside a critical section.
func RecordTiming(eventType, id uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	evt := TimingEvent{
		EventType: eventType,
		ID:        id,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}

	state := DisableInterrupts()
	idx := timingRingHead
	timingRing[idx] = evt
	timingRingHead = (idx + 1) % TimingRingSize
	RestoreInterrupts(state)

	if eventType == EvtDrop || eventType == EvtTaskError {
		DebugPrintln(formatEvent(evt))
	}
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the short name printed for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtPromote:
		return "PROMOTE"
	case EvtTaskFire:
		return "FIRE"
	case EvtRetire:
		return "RETIRE"
	case EvtTaskError:
		return "TASK_ERR!"
	case EvtDrop:
		return "DROP!"
	case EvtIdle:
		return "IDLE"
	case EvtPause:
		return "PAUSE"
	case EvtResume:
		return "RESUME"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing writes the timing ring, oldest first, through w
func DumpTimingRing(w DebugWriter) {
	if w == nil {
		return
	}

	w("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		w(formatEvent(evt))
	}
	w("[TIMING] === End Dump ===")
}

func formatEvent(evt TimingEvent) string {
	return "[TIMING] " + EventName(evt.EventType) +
		" id=" + strconv.Itoa(int(evt.ID)) +
		" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
		" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
		" v2=" + strconv.FormatUint(uint64(evt.Value2), 10)
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	state := DisableInterrupts()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	RestoreInterrupts(state)
}
