package runloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"avrkit/core"
)

// MaxTasks is the default number of task slots
const MaxTasks = 8

// DefaultUptimeWakeMS bounds every idle sleep so the 32-bit stopwatch is read
// well before it can wrap (268s at 16MHz).
const DefaultUptimeWakeMS = 1000

var (
	ErrAlreadyInitialized = errors.New("runloop already initialized")
	ErrNotInitialized     = errors.New("runloop not initialized")
	ErrAlreadyRunning     = errors.New("runloop already running")
	ErrNilTimer           = errors.New("runloop needs a timer")
	ErrNilCallback        = errors.New("task callback is nil")
	ErrZeroPeriod         = errors.New("recurring task needs a nonzero period")
	ErrPeriodOverflow     = errors.New("duration overflows cycle counter")
	ErrNoSlotFree         = errors.New("no free task slot")
)

// State is the run state printed by the front end
type State uint8

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Frontend is the optional command-line front end. Trigger callbacks it
// registers may be called from interrupt context; ExecutePending and
// PrintStatus are called from the run loop.
type Frontend interface {
	// RegisterPauseTrigger installs the callback for the pause key or command.
	RegisterPauseTrigger(fn func())

	// RegisterDataTrigger installs the callback raised when a received line
	// is waiting to be executed.
	RegisterDataTrigger(fn func())

	// ExecutePending runs any complete command lines received so far.
	ExecutePending()

	// PrintStatus prints the prompt for the given state.
	PrintStatus(s State)
}

// Poller is implemented by front ends that fetch their input from the run
// loop instead of an interrupt handler, such as a UART whose receive
// interrupt only buffers bytes. Poll is called on every loop pass and after
// every wake, paused or not, and raises the registered triggers itself.
type Poller interface {
	Poll()

	// Pending reports input waiting for Poll. It may be called with
	// interrupts masked, right before the processor sleeps.
	Pending() bool
}

// Config holds run loop configuration
type Config struct {
	ClockHz      uint32 // CPU clock used for ms to cycle conversion
	MaxTasks     int    // Number of task slots, at most 255
	UptimeWakeMS uint32 // Longest idle sleep; 0 sleeps until the next deadline

	OnTaskError TaskErrorFunc
	OnSyncError SyncErrorFunc
}

// DefaultConfig returns the configuration for a 16MHz AVR
func DefaultConfig() Config {
	return Config{
		ClockHz:      core.ClockFreq,
		MaxTasks:     MaxTasks,
		UptimeWakeMS: DefaultUptimeWakeMS,
	}
}

// Runloop is a single scheduler instance. One goroutine calls Run; AddTask,
// Stop and TogglePause may be called from any goroutine or interrupt.
type Runloop struct {
	clockHz     uint32
	uptimeWake  uint32 // cycles
	onTaskError TaskErrorFunc
	onSyncError SyncErrorFunc

	timer    core.Timer
	sleeper  core.Sleeper
	frontend Frontend
	poller   Poller

	tasks  []task
	head   int
	uptime uint64 // cycles since Run started

	initialized atomic.Bool
	running     atomic.Bool
	paused      atomic.Bool
	taskAdded   atomic.Bool
	woke        atomic.Bool
	dataReady   atomic.Bool
}

// New creates an uninitialized run loop. Tasks may be added before Init.
func New(cfg Config) *Runloop {
	if cfg.ClockHz == 0 {
		cfg.ClockHz = core.ClockFreq
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = MaxTasks
	}
	if cfg.MaxTasks > 255 {
		cfg.MaxTasks = 255
	}
	uptimeWake, err := core.CyclesFromMS(cfg.UptimeWakeMS, cfg.ClockHz)
	if err != nil {
		uptimeWake = 0xFFFFFFFF
	}

	return &Runloop{
		clockHz:     cfg.ClockHz,
		uptimeWake:  uptimeWake,
		onTaskError: cfg.OnTaskError,
		onSyncError: cfg.OnSyncError,
		sleeper:     core.NewSleeper(),
		tasks:       make([]task, cfg.MaxTasks),
		head:        noHead,
	}
}

// Init binds the hardware timer and the optional front end. When timer also
// implements core.Sleeper it is used for the idle wait.
func (r *Runloop) Init(timer core.Timer, fe Frontend) error {
	if r.initialized.Load() {
		return ErrAlreadyInitialized
	}
	if timer == nil {
		return ErrNilTimer
	}
	if err := timer.Init(); err != nil {
		return fmt.Errorf("timer init: %w", err)
	}

	r.timer = timer
	if s, ok := timer.(core.Sleeper); ok {
		r.sleeper = s
	}
	r.frontend = fe
	if p, ok := fe.(Poller); ok {
		r.poller = p
	}
	if fe != nil {
		fe.RegisterPauseTrigger(r.TogglePause)
		fe.RegisterDataTrigger(r.dataAvailable)
	}

	r.initialized.Store(true)
	return nil
}

// Run executes tasks until Stop is called or ctx ends. It returns nil after
// Stop and ctx.Err() when the context ended the loop.
func (r *Runloop) Run(ctx context.Context) error {
	if !r.initialized.Load() {
		return ErrNotInitialized
	}
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	stopWatch := context.AfterFunc(ctx, r.Stop)
	defer stopWatch()

	r.uptime = 0
	r.head = noHead
	r.timer.EnableStopwatch(true)
	r.timer.ReadAndResetStopwatch()
	r.timer.Start()
	r.printStatus(Running)

	for r.running.Load() {
		if r.paused.Load() {
			r.waitWhilePaused()
			continue
		}

		fired, promoted := r.tick(r.timer.ReadAndResetStopwatch())

		r.poll()
		if r.frontend != nil && r.dataReady.Swap(false) {
			r.frontend.ExecutePending()
		}

		if fired == 0 && !promoted && r.running.Load() {
			r.idle()
		}
	}

	r.timer.EnableStopwatch(false)
	r.timer.Stop(core.StopImmediateReset)
	return ctx.Err()
}

// waitWhilePaused halts the timer so no time is charged to tasks, services
// the front end until unpaused, then resumes counting.
func (r *Runloop) waitWhilePaused() {
	r.timer.Stop(core.StopImmediate)
	r.record(core.EvtPause, 0, 0, 0)
	r.printStatus(Paused)

	for r.paused.Load() && r.running.Load() {
		r.poll()
		if r.frontend != nil && r.dataReady.Swap(false) {
			r.frontend.ExecutePending()
			continue
		}
		r.sleeper.Sleep(r.pausedWake)
	}

	r.timer.Start()
	r.record(core.EvtResume, 0, 0, 0)
	if r.running.Load() {
		r.printStatus(Running)
	}
}

// Stop ends Run at its next loop check. Calling it when not running has no
// effect.
func (r *Runloop) Stop() {
	r.running.Store(false)
	r.sleeper.Wake()
}

// TogglePause flips between running and paused. Safe from interrupt context.
func (r *Runloop) TogglePause() {
	for {
		p := r.paused.Load()
		if r.paused.CompareAndSwap(p, !p) {
			break
		}
	}
	r.sleeper.Wake()
}

// SetPaused pauses or resumes the loop
func (r *Runloop) SetPaused(paused bool) {
	r.paused.Store(paused)
	r.sleeper.Wake()
}

// pausedWake reports whether the paused wait has something to do
func (r *Runloop) pausedWake() bool {
	return !r.paused.Load() || !r.running.Load() || r.dataReady.Load() || r.pollPending()
}

// poll lets a polled front end pick up received input
func (r *Runloop) poll() {
	if r.poller != nil {
		r.poller.Poll()
	}
}

func (r *Runloop) pollPending() bool {
	return r.poller != nil && r.poller.Pending()
}

func (r *Runloop) dataAvailable() {
	r.dataReady.Store(true)
	r.sleeper.Wake()
}

// State returns the current run state
func (r *Runloop) State() State {
	switch {
	case !r.running.Load():
		return Stopped
	case r.paused.Load():
		return Paused
	default:
		return Running
	}
}

// Uptime returns the cycles counted since Run started. Call it from the run
// loop (a task or a command) or after Run returned.
func (r *Runloop) Uptime() uint64 {
	return r.uptime
}

// UptimeMS returns Uptime in milliseconds
func (r *Runloop) UptimeMS() uint64 {
	return core.MSFromCycles(r.uptime, r.clockHz)
}

// ClockHz returns the configured clock frequency
func (r *Runloop) ClockHz() uint32 {
	return r.clockHz
}

func (r *Runloop) printStatus(s State) {
	if r.frontend != nil {
		r.frontend.PrintStatus(s)
	}
}
