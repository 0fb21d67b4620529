package store

import "errors"

// Sentinel errors of the storage layer, among them the Io and Corrupt
// kinds from spec.md §7. OutOfBudget is deliberately absent: this layer is
// synchronous (spec.md §4.1 "Errors").
var (
	ErrIO           = errors.New("store: io error")
	ErrCorrupt      = errors.New("store: corrupt partition")
	ErrSpansTiles   = errors.New("store: range spans more than one tile, call Align or chunk the request")
	ErrPinned       = errors.New("store: tile still pinned, cannot evict")
	ErrUnknownPart  = errors.New("store: unknown partition")
	ErrNotWritable  = errors.New("store: tile acquired read-only")
	ErrHorizonStale = errors.New("store: rollback target is newer than the current horizon")
)
