// Package comparator defines the external contract the query execution core
// consumes but never implements itself (spec.md §4.7, §1 "Deliberately out
// of scope: ... the high-level text/number/etc. comparators, treated as a
// trait providing compare, equality-iterator construction, and ranged bin
// iteration"). The core only ever holds a Comparator through this
// interface; concrete comparators (text collation, numeric ordering, and so
// on) live outside this tree.
package comparator

import (
	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/primitive"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// Ordering is the three-way result of Compare.
type Ordering int8

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Comparator is the trait the AND's optimizer and run loop call into
// whenever a constraint is keyed on a comparator-defined value domain
// (numeric ranges, text prefixes) rather than a plain id equality or
// linkage lookup.
type Comparator interface {
	// Compare orders two values in this comparator's domain.
	Compare(a, b primitive.Value) Ordering

	// MakeEqualityIterator builds an iterator over every id in [low, high)
	// whose value equals v, or reports None by returning a nil iterator
	// when the comparator has no efficient equality index for v.
	MakeEqualityIterator(v primitive.Value, low, high common.ID, dir common.Direction) (setiter.Iterator, bool)

	// MakeRangeIterator builds an iterator over every id in [low, high)
	// whose value falls in the comparator-defined range [lo, hi), or
	// reports None when no efficient range index exists.
	MakeRangeIterator(lo, hi primitive.Value, low, high common.ID, dir common.Direction) (setiter.Iterator, bool)

	// VRange returns the bin-walker this comparator uses to project a
	// value-range constraint onto GMAP-shaped id bins, one bin at a time.
	VRange() VRange
}

// VRange is the value-range bin-walker state machine (spec.md §4.7
// "vrange_{size,start,it_next,statistics,seek,freeze,thaw,value_in_range}"):
// the AND treats it as a sub-iterator emitting bin-by-bin GMAP iterators,
// and stores its frozen state in the AND's own cursor memory rather than
// owning its internals directly.
type VRange interface {
	// Size reports the number of bins this vrange spans.
	Size() uint64

	// Start resets the walker to its first bin in dir.
	Start(dir common.Direction)

	// ItNext advances to the next bin and returns its id-array producer,
	// or reports false once every bin has been visited.
	ItNext(b *budget.Budget) (setiter.Iterator, bool)

	// Statistics reports the walker's own cost estimate for driving every
	// bin to completion, used by the AND contest the same way a leaf
	// iterator's Stats are (spec.md §4.5.2).
	Statistics() setiter.Stats

	// Seek repositions the walker at the first bin that could contain id.
	Seek(id common.ID) bool

	// ValueInRange reports whether v falls within this vrange's bounds,
	// the fast check path used before falling back to a bin's own Check.
	ValueInRange(v primitive.Value) bool

	// Freeze/Thaw persist and restore the walker's private position
	// (spec.md §4.7 "Each comparator stores a private vrange_state in AND
	// cursor memory").
	Freeze() string
	Thaw(s string) error
}
