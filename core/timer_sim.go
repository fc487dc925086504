package core

import "sync"

// SimTimer is a Timer whose clock only moves when Advance is called. It also
// implements Sleeper: sleeping jumps logical time straight to the armed
// one-shot deadline, so a run loop driven by SimTimer runs deterministically
// and as fast as the host allows.
type SimTimer struct {
	mu sync.Mutex

	initErr error

	now       uint64 // total cycles counted while running
	stopwatch uint32
	swEnabled bool
	running   bool
	stopAtDue bool // StopOnDeadline requested with a one-shot pending

	armed      bool
	remaining  uint32
	oneShotFn  func(ctx any)
	oneShotCtx any

	wake chan struct{}
}

// NewSimTimer creates a stopped simulated timer
func NewSimTimer() *SimTimer {
	return &SimTimer{wake: make(chan struct{}, 1)}
}

// FailInit makes the next Init call return err
func (s *SimTimer) FailInit(err error) {
	s.mu.Lock()
	s.initErr = err
	s.mu.Unlock()
}

func (s *SimTimer) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initErr
}

func (s *SimTimer) Start() {
	s.mu.Lock()
	s.running = true
	s.stopAtDue = false
	s.mu.Unlock()
}

func (s *SimTimer) Stop(mode StopMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case StopOnDeadline:
		if s.armed {
			s.stopAtDue = true
			return
		}
		s.running = false
	case StopImmediate:
		s.running = false
	case StopImmediateReset:
		s.running = false
		s.stopwatch = 0
		s.disarm()
	}
}

func (s *SimTimer) EnableStopwatch(on bool) {
	s.mu.Lock()
	s.swEnabled = on
	if !on {
		s.stopwatch = 0
	}
	s.mu.Unlock()
}

func (s *SimTimer) ReadAndResetStopwatch() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.stopwatch
	s.stopwatch = 0
	return v
}

func (s *SimTimer) ArmOneShot(fn func(ctx any), ctx any, cycles uint32) {
	s.mu.Lock()
	s.armed = true
	s.remaining = cycles
	s.oneShotFn = fn
	s.oneShotCtx = ctx
	s.mu.Unlock()
}

// Advance moves logical time forward by cycles while the timer runs.
// An expiring one-shot callback is called from the caller's goroutine.
func (s *SimTimer) Advance(cycles uint32) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.now += uint64(cycles)
	if s.swEnabled {
		s.stopwatch += cycles
	}

	if !s.armed {
		s.mu.Unlock()
		return
	}
	if cycles < s.remaining {
		s.remaining -= cycles
		s.mu.Unlock()
		return
	}

	fn, ctx := s.oneShotFn, s.oneShotCtx
	s.disarm()
	if s.stopAtDue {
		s.running = false
		s.stopAtDue = false
	}
	s.mu.Unlock()

	if fn != nil {
		fn(ctx)
	}
}

// Now returns the logical time in cycles
func (s *SimTimer) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Armed reports the pending one-shot countdown, if any
func (s *SimTimer) Armed() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining, s.armed
}

// Running reports whether the counter is running
func (s *SimTimer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sleep advances to the armed deadline when the timer runs; otherwise it
// blocks until Wake.
func (s *SimTimer) Sleep(done func() bool) {
	if done != nil && done() {
		return
	}
	s.mu.Lock()
	if s.running && s.armed {
		c := s.remaining
		s.mu.Unlock()
		s.Advance(c)
		return
	}
	s.mu.Unlock()
	<-s.wake
}

func (s *SimTimer) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// disarm must be called with s.mu held
func (s *SimTimer) disarm() {
	s.armed = false
	s.remaining = 0
	s.oneShotFn = nil
	s.oneShotCtx = nil
}
