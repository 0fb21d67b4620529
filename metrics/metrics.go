// Package metrics wraps github.com/rcrowley/go-metrics with the constructor
// and naming convention the teacher's own metrics package uses: package-level
// meters created once and called as meter.Mark(n) from hot paths (see the
// dirtyHitMeter/cleanMissMeter pattern in triedb/pathdb/disklayer.go).
package metrics

import gometrics "github.com/rcrowley/go-metrics"

// Meter counts events and their rate over time.
type Meter interface {
	Mark(n int64)
	Count() int64
}

// Counter tracks a monotonic or adjustable integer quantity.
type Counter interface {
	Inc(n int64)
	Dec(n int64)
	Count() int64
}

// NewRegisteredMeter creates and registers a new Meter under name, or returns
// the already-registered one if called twice (mirrors the teacher's
// idempotent registration behavior so package-level var initializers are
// safe to call more than once in tests).
func NewRegisteredMeter(name string) Meter {
	return gometrics.GetOrRegisterMeter(name, gometrics.DefaultRegistry)
}

// NewRegisteredCounter creates and registers a new Counter under name.
func NewRegisteredCounter(name string) Counter {
	return gometrics.GetOrRegisterCounter(name, gometrics.DefaultRegistry)
}
