package runloop

import "avrkit/core"

const noHead = -1

// tick runs one activation/execution pass. elapsed is the number of cycles
// read from the stopwatch since the previous tick. It returns the number of
// tasks fired and whether pending tasks were promoted.
func (r *Runloop) tick(elapsed uint32) (fired int, promoted bool) {
	r.uptime += uint64(elapsed)

	if r.taskAdded.Load() {
		n := r.promote()
		promoted = true
		r.record(core.EvtPromote, 0, uint32(n), 0)
	}

	head := noHead
	var headCycles uint32

	// Slots are visited in index order, so tasks due in the same tick fire
	// lowest slot first.
	for i := range r.tasks {
		switch r.slotState(i) {
		case TaskActive:
			t := &r.tasks[i]
			if t.cycles > elapsed {
				t.cycles -= elapsed
			} else {
				fired++
				if !r.fire(i, elapsed) {
					continue
				}
			}
		case TaskReady:
			r.setSlotState(i, TaskActive)
			if r.tasks[i].cycles == 0 {
				fired++
				if !r.fire(i, 0) {
					continue
				}
			}
		default:
			continue
		}

		if c := r.tasks[i].cycles; head == noHead || c < headCycles {
			head = i
			headCycles = c
		}
	}

	r.head = head
	return fired, promoted
}

// fire invokes the callback of slot i, which was due elapsed-cycles ago
// relative to its countdown, and requeues or retires it. Returns false when
// the slot was freed.
func (r *Runloop) fire(i int, elapsed uint32) bool {
	t := &r.tasks[i]
	id := TaskID(i)
	overdue := elapsed - t.cycles
	r.record(core.EvtTaskFire, id, overdue, 0)

	status := t.fn(t.ctx)
	switch {
	case status == StatusOK:
	case status == StatusAbort:
		r.retire(i)
		r.record(core.EvtRetire, id, uint32(status), 0)
		return false
	default:
		r.retire(i)
		r.record(core.EvtTaskError, id, uint32(status), 0)
		if r.onTaskError != nil {
			r.onTaskError(id, status)
		}
		return false
	}

	if t.remaining != Infinite {
		t.remaining--
		if t.remaining == 0 {
			r.retire(i)
			r.record(core.EvtRetire, id, uint32(status), 0)
			return false
		}
	}

	if overdue < t.period {
		// Next deadline stays on the original phase.
		t.cycles = t.period - overdue
		return true
	}

	// Whole periods were missed: skip them and realign to the phase.
	dropped := overdue / t.period
	t.cycles = t.period - overdue%t.period
	r.record(core.EvtDrop, id, dropped, t.cycles)
	if r.onSyncError != nil {
		if dropped > 0xFFFF {
			dropped = 0xFFFF
		}
		r.onSyncError(id, uint16(dropped))
	}
	return true
}

// record stamps a timing ring event with the low bits of uptime
func (r *Runloop) record(evt uint8, id TaskID, v1, v2 uint32) {
	core.RecordTiming(evt, uint8(id), uint32(r.uptime), v1, v2)
}
