package pipeline

import "sync/atomic"

// Flag is a cooperative cancellation token. It is set at most once from
// any goroutine and polled between units of work; it cannot interrupt
// an in-flight inference call.
type Flag struct {
	v atomic.Bool
}

// Set marks the flag. Safe to call more than once.
func (f *Flag) Set() { f.v.Store(true) }

// IsSet reports whether the flag was set. A nil Flag is never set.
func (f *Flag) IsSet() bool {
	return f != nil && f.v.Load()
}
