package runloop

import "avrkit/core"

// sleepCycles returns how long the processor may sleep after a quiescent
// tick: until the head deadline, capped by the uptime wake interval. ok is
// false when nothing bounds the sleep.
func (r *Runloop) sleepCycles() (cycles uint32, ok bool) {
	if r.head != noHead {
		cycles, ok = r.tasks[r.head].cycles, true
	}
	if r.uptimeWake > 0 && (!ok || r.uptimeWake < cycles) {
		cycles, ok = r.uptimeWake, true
	}
	return cycles, ok
}

// idle arms the wake-up one-shot and sleeps until a wake condition holds
func (r *Runloop) idle() {
	r.woke.Store(false)

	head := uint32(0xFF)
	if r.head != noHead {
		head = uint32(r.head)
	}
	if cycles, ok := r.sleepCycles(); ok {
		r.timer.ArmOneShot(r.onWake, nil, cycles)
		r.record(core.EvtIdle, 0, cycles, head)
	} else {
		r.record(core.EvtIdle, 0, 0, head)
	}

	r.poll()
	for !r.shouldWake() {
		r.sleeper.Sleep(r.shouldWake)
		r.poll()
	}
}

// onWake is the one-shot callback; it runs in interrupt context
func (r *Runloop) onWake(any) {
	r.woke.Store(true)
	r.sleeper.Wake()
}

func (r *Runloop) shouldWake() bool {
	return !r.running.Load() ||
		r.paused.Load() ||
		r.woke.Load() ||
		r.taskAdded.Load() ||
		r.dataReady.Load() ||
		r.pollPending()
}
