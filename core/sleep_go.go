//go:build !(tinygo && avr)

package core

// chanSleeper parks the calling goroutine until Wake. The single-slot
// channel keeps a wake raised before Sleep from being lost.
type chanSleeper struct {
	wake chan struct{}
}

// NewSleeper returns the platform low-power wait
func NewSleeper() Sleeper {
	return &chanSleeper{wake: make(chan struct{}, 1)}
}

func (s *chanSleeper) Sleep(done func() bool) {
	if done != nil && done() {
		return
	}
	<-s.wake
}

func (s *chanSleeper) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
