package scheduler

import "time"

// Clock abstracts time for the loop. Tests inject a fake.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// SinceEpoch converts a wall time into the offset stored in refresh state.
func SinceEpoch(t time.Time) time.Duration { return time.Duration(t.UnixNano()) }
