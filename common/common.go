// Package common holds small value types shared across the query execution
// core, in the spirit of go-ethereum's own common package: no behavior, just
// the vocabulary every other package imports.
package common

import "fmt"

// ID is a primitive's stable local identifier. The store never hands out
// more than 34 bits of it (spec.md §3), but it is carried as a uint64 so
// arithmetic on ranges ([low, high)) never has to worry about overflow.
type ID uint64

// MaxID is the largest value a 34-bit id can take.
const MaxID ID = (1 << 34) - 1

// Direction is the traversal order an iterator produces ids in.
type Direction int8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Less reports whether a precedes b when walking in direction d.
func (d Direction) Less(a, b ID) bool {
	if d == Backward {
		return a > b
	}
	return a < b
}

// StorageSize formats a byte count the way the teacher formats cache/buffer
// sizes in log lines (e.g. "1.00MiB").
type StorageSize float64

func (s StorageSize) String() string {
	switch {
	case s >= 1024*1024*1024*1024:
		return fmt.Sprintf("%.2fTiB", s/(1024*1024*1024*1024))
	case s >= 1024*1024*1024:
		return fmt.Sprintf("%.2fGiB", s/(1024*1024*1024))
	case s >= 1024*1024:
		return fmt.Sprintf("%.2fMiB", s/(1024*1024))
	case s >= 1024:
		return fmt.Sprintf("%.2fKiB", s/1024)
	default:
		return fmt.Sprintf("%.2fB", float64(s))
	}
}
