package flow

import "time"

// Timer is a cancellable one-shot timer handle. Flows own their timers and
// stop them deterministically on disposal so no orphaned callback mutates a
// torn-down instance.
type Timer struct {
	t *time.Timer
}

// Stop cancels the timer if it has not fired. Safe on nil.
func (t *Timer) Stop() {
	if t != nil && t.t != nil {
		t.t.Stop()
	}
}

// schedule arms a one-shot callback after d. Swapped for a fake in tests.
type schedule func(d time.Duration, fn func()) *Timer

func realSchedule(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, fn)}
}
