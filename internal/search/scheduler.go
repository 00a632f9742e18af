package search

import "time"

// CancelFunc stops a scheduled callback. It reports whether the callback
// was prevented from running; false means it already fired or was stopped.
type CancelFunc func() bool

// Scheduler abstracts delayed dispatch so the debounce window can be
// driven by hand in tests instead of waiting on the wall clock.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// TimerScheduler dispatches on real timers.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(delay, fn)
	return timer.Stop
}
