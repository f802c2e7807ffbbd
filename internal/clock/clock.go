// Package clock lets services take the current time as a dependency.
package clock

import "time"

// Clock returns the current instant in UTC.
type Clock interface {
	Now() time.Time
}

type system struct{}

// NewSystem returns a Clock backed by time.Now.
func NewSystem() Clock { return system{} }

func (system) Now() time.Time { return time.Now().UTC() }

type fixed time.Time

// NewFixed returns a Clock stuck at t.
func NewFixed(t time.Time) Clock { return fixed(t.UTC()) }

func (f fixed) Now() time.Time { return time.Time(f) }

// StartOfMonth returns midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
