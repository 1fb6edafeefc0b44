package util

import "time"

// Timer measures the elapsed time of one recommendation call.
type Timer struct {
	start time.Time
	now   func() time.Time
}

// StartTimer creates a timer starting at the current time.
func StartTimer() Timer {
	return StartTimerAt(time.Now)
}

// StartTimerAt creates a timer reading time from now.
func StartTimerAt(now func() time.Time) Timer {
	if now == nil {
		now = time.Now
	}
	return Timer{start: now(), now: now}
}

// Elapsed returns the duration since start, zero for an unstarted timer.
func (t Timer) Elapsed() time.Duration {
	if t.start.IsZero() || t.now == nil {
		return 0
	}
	d := t.now().Sub(t.start)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedMs returns the elapsed milliseconds since start.
func (t Timer) ElapsedMs() int64 {
	return t.Elapsed().Milliseconds()
}

// ElapsedSeconds returns the elapsed time in seconds, as histograms expect.
func (t Timer) ElapsedSeconds() float64 {
	return t.Elapsed().Seconds()
}
