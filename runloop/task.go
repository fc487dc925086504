// Package runloop implements a cooperative periodic-task scheduler driven by
// a single hardware timer. Elapsed time is measured with a free-running
// stopwatch so task deadlines never accumulate rounding drift, and the
// processor sleeps between deadlines.
package runloop

// Status is the code a task callback returns
type Status uint8

const (
	// StatusOK keeps the task scheduled
	StatusOK Status = 0
	// StatusAbort removes the task without reporting an error
	StatusAbort Status = 1
	// Codes from StatusError upward are application errors; the task is
	// removed and OnTaskError is called.
	StatusError Status = 2
)

// IsError reports whether s is an application error code
func (s Status) IsError() bool {
	return s >= StatusError
}

// TaskID is the slot index of a resident task. It is reused once the task
// retires.
type TaskID uint8

// TaskFunc is a task callback. ctx is the caller-owned value given to AddTask.
type TaskFunc func(ctx any) Status

// TaskErrorFunc is called when a task returns an error code
type TaskErrorFunc func(id TaskID, code Status)

// SyncErrorFunc is called when a task missed one or more whole periods
type SyncErrorFunc func(id TaskID, dropped uint16)

// Infinite as the executions count keeps a task scheduled until it aborts
// or fails. AddTask also accepts 0 for the same meaning.
const Infinite uint16 = 0xFFFF

// TaskState is the lifecycle state of a table slot
type TaskState uint8

const (
	// TaskEmpty marks a free slot
	TaskEmpty TaskState = iota
	// TaskPending is a newly added task waiting for the next tick boundary
	TaskPending
	// TaskReady is a task in its first tick after promotion
	TaskReady
	// TaskActive is a task aged and fired by every tick
	TaskActive
)

func (s TaskState) String() string {
	switch s {
	case TaskEmpty:
		return "empty"
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskActive:
		return "active"
	default:
		return "unknown"
	}
}

// task is one slot of the table
type task struct {
	fn        TaskFunc
	ctx       any
	remaining uint16
	cycles    uint32 // countdown to the next firing
	period    uint32
	state     TaskState
}

// TaskInfo is a snapshot of a resident task
type TaskInfo struct {
	ID              TaskID
	State           TaskState
	Remaining       uint16
	CyclesToNext    uint32
	CyclesPerPeriod uint32
}
