package lowering

import "time"

// Clock is the injected time source semantic temporal operators
// (LAST_MONTH, LAST_N_DAYS, THIS_YEAR) resolve against, per spec.md §9:
// "must be resolved against an injected clock, not a process clock, so
// tests are reproducible."
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock that always reports the same instant, for
// deterministic tests (spec.md §8 boundary behavior 11).
type FixedClock time.Time

func (f FixedClock) Now() time.Time { return time.Time(f) }
