package runloop

import (
	"fmt"

	"avrkit/core"
)

// AddTask schedules fn to run executions times (0 or Infinite for forever),
// every periodMS milliseconds, first after initialDelayMS. It may be called
// from interrupt context. The task is not charged any time until the next
// tick promotes it.
func (r *Runloop) AddTask(fn TaskFunc, ctx any, executions uint16, periodMS, initialDelayMS uint32) (TaskID, error) {
	if fn == nil {
		return 0, ErrNilCallback
	}
	if periodMS == 0 && executions != 1 {
		return 0, ErrZeroPeriod
	}
	period, err := core.CyclesFromMS(periodMS, r.clockHz)
	if err != nil {
		return 0, fmt.Errorf("period %dms: %w", periodMS, ErrPeriodOverflow)
	}
	if period == 0 && executions != 1 {
		// Clocks below 1kHz round a short period down to zero cycles.
		return 0, fmt.Errorf("period %dms at %dHz: %w", periodMS, r.clockHz, ErrZeroPeriod)
	}
	delay, err := core.CyclesFromMS(initialDelayMS, r.clockHz)
	if err != nil {
		return 0, fmt.Errorf("initial delay %dms: %w", initialDelayMS, ErrPeriodOverflow)
	}
	if executions == 0 {
		executions = Infinite
	}

	state := core.DisableInterrupts()
	slot := -1
	for i := range r.tasks {
		if r.tasks[i].state == TaskEmpty {
			slot = i
			break
		}
	}
	if slot < 0 {
		core.RestoreInterrupts(state)
		return 0, ErrNoSlotFree
	}
	r.tasks[slot] = task{
		fn:        fn,
		ctx:       ctx,
		remaining: executions,
		cycles:    delay,
		period:    period,
		state:     TaskPending,
	}
	r.taskAdded.Store(true)
	core.RestoreInterrupts(state)

	r.sleeper.Wake()
	return TaskID(slot), nil
}

// promote moves every Pending task to Ready. Returns the number promoted.
func (r *Runloop) promote() int {
	n := 0
	state := core.DisableInterrupts()
	for i := range r.tasks {
		if r.tasks[i].state == TaskPending {
			r.tasks[i].state = TaskReady
			n++
		}
	}
	r.taskAdded.Store(false)
	core.RestoreInterrupts(state)
	return n
}

// retire frees slot i
func (r *Runloop) retire(i int) {
	state := core.DisableInterrupts()
	r.tasks[i] = task{}
	core.RestoreInterrupts(state)
}

// slotState reads the state of slot i. Interrupt-context AddTask may be
// claiming an empty slot at the same time.
func (r *Runloop) slotState(i int) TaskState {
	state := core.DisableInterrupts()
	s := r.tasks[i].state
	core.RestoreInterrupts(state)
	return s
}

func (r *Runloop) setSlotState(i int, s TaskState) {
	state := core.DisableInterrupts()
	r.tasks[i].state = s
	core.RestoreInterrupts(state)
}

// Capacity returns the fixed number of task slots
func (r *Runloop) Capacity() int {
	return len(r.tasks)
}

// Tasks returns a snapshot of the resident tasks in slot order
func (r *Runloop) Tasks() []TaskInfo {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	infos := make([]TaskInfo, 0, len(r.tasks))
	for i := range r.tasks {
		t := &r.tasks[i]
		if t.state == TaskEmpty {
			continue
		}
		infos = append(infos, TaskInfo{
			ID:              TaskID(i),
			State:           t.state,
			Remaining:       t.remaining,
			CyclesToNext:    t.cycles,
			CyclesPerPeriod: t.period,
		})
	}
	return infos
}
