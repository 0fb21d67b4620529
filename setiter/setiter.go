// Package setiter defines the polymorphic set-iterator contract every
// primitive-set producer and compositor in this module implements
// (spec.md §4.3). It is intentionally thin: just the interface and the
// shared value types every implementation returns.
package setiter

import (
	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
)

// Status is the outcome of a next/find call.
type Status uint8

const (
	Ok Status = iota
	EndOfSet
	NeedMoreBudget
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case EndOfSet:
		return "EndOfSet"
	case NeedMoreBudget:
		return "NeedMoreBudget"
	default:
		return "Status(?)"
	}
}

// CheckStatus is the outcome of a check call.
type CheckStatus uint8

const (
	Yes CheckStatus = iota
	No
	CheckNeedMoreBudget
)

// StatStatus is the outcome of a statistics call.
type StatStatus uint8

const (
	StatOk StatStatus = iota
	StatNeedMoreBudget
)

// RestrictStatus is the outcome of a restrict call.
type RestrictStatus uint8

const (
	// Restricted means a new, narrower iterator was returned.
	Restricted RestrictStatus = iota
	// Already means the psum contradicted nothing new; the receiver is
	// unchanged and the caller should keep using it.
	Already
	// NoneContradicts means applying psum would make the set empty.
	NoneContradicts
)

// Kind identifies an iterator's concrete type, used for sealed-variant
// dispatch (evolve, thaw, structural comparisons) without a downcast
// (spec.md §9 "it_theory untyped back-pointer").
type Kind uint8

const (
	KindHashEq Kind = iota
	KindLinkage
	KindVIP
	KindAll
	KindNull
	KindFixed
	KindSort
	KindAnd
)

func (k Kind) String() string {
	switch k {
	case KindHashEq:
		return "hash-eq"
	case KindLinkage:
		return "linkage"
	case KindVIP:
		return "vip"
	case KindAll:
		return "all"
	case KindNull:
		return "null"
	case KindFixed:
		return "fixed"
	case KindSort:
		return "sort"
	case KindAnd:
		return "and"
	default:
		return "kind(?)"
	}
}

// Stats holds the statistics fields every iterator must produce exactly
// once statistics_done becomes true (spec.md §3 invariants).
type Stats struct {
	N         uint64
	CheckCost float64
	NextCost  float64
	FindCost  float64
	Sorted    bool
	Ordered   bool
	Ordering  string // the locked linkage field driving sort order, if any
}

// PSum is a primitive summary: a partial fingerprint of which linkage
// fields a subtree fixes, and to what value (spec.md glossary "psum").
type PSum struct {
	TypeGUID   *common.ID
	Left       *common.ID
	Right      *common.ID
	Complete   bool // true once the producing iterator has run statistics
}

// Subsumes reports whether p fixes a superset of what o fixes, with
// matching values wherever both fix a field — the PSUM-subsumption test
// used by the AND optimizer (spec.md §4.5.1 step 4). A p that locks
// nothing at all subsumes nothing: otherwise two unrelated leaves with
// no locked fields would vacuously subsume each other.
func (p PSum) Subsumes(o PSum) bool {
	if !p.Complete || !o.Complete {
		return false
	}
	if p.TypeGUID == nil && p.Left == nil && p.Right == nil {
		return false
	}
	if o.TypeGUID != nil && (p.TypeGUID == nil || *p.TypeGUID != *o.TypeGUID) {
		return false
	}
	if o.Left != nil && (p.Left == nil || *p.Left != *o.Left) {
		return false
	}
	if o.Right != nil && (p.Right == nil || *p.Right != *o.Right) {
		return false
	}
	return true
}

// RangeEstimate is the result of range_estimate(): the iterator's declared
// bounds, a cardinality ceiling, and whether that ceiling is exact.
type RangeEstimate struct {
	Lo     common.ID
	Hi     common.ID
	NMax   uint64
	NExact bool
}

// FreezeFlags controls what a freeze() call includes in its cursor.
type FreezeFlags uint8

const (
	FreezeDefault FreezeFlags = 0
)

// Iterator is the polymorphic contract every producer and compositor
// implements (spec.md §4.3).
type Iterator interface {
	// Next advances and returns the next id in the declared direction.
	Next(b *budget.Budget) (common.ID, Status)

	// Find positions at the least id >= target (Forward) or greatest id <=
	// target (Backward), and returns it.
	Find(target common.ID, b *budget.Budget) (common.ID, Status)

	// Check answers "does this iterator contain id?" without moving
	// position.
	Check(id common.ID, b *budget.Budget) CheckStatus

	// Statistics computes Stats(), a one-shot operation.
	Statistics(b *budget.Budget) StatStatus

	// StatisticsDone reports whether Stats() is valid.
	StatisticsDone() bool

	// Stats returns the statistics fields; valid only once
	// StatisticsDone() is true.
	Stats() Stats

	// Reset repositions the iterator at the start of its declared
	// direction.
	Reset()

	// Clone returns a lightweight iterator sharing this one's original
	// cache but holding independent position.
	Clone() Iterator

	// Freeze serializes the iterator's cursor.
	Freeze(flags FreezeFlags) string

	// PrimitiveSummary returns the iterator's locked-field fingerprint.
	PrimitiveSummary() PSum

	// RangeEstimate returns the iterator's bounds and cardinality ceiling.
	RangeEstimate() RangeEstimate

	// Beyond reports whether the iterator is guaranteed to produce nothing
	// in [lo, hi). A conservative false (safe default: "might still
	// produce something") is always a legal answer (spec.md §9).
	Beyond(lo, hi common.ID) bool

	// Restrict applies an externally-derived primitive summary, narrowing
	// or rejecting this iterator's set.
	Restrict(p PSum) (Iterator, RestrictStatus)

	// Direction reports the iterator's declared traversal order.
	Direction() common.Direction

	// Low and High report the iterator's declared id bounds [Low, High).
	Low() common.ID
	High() common.ID

	// Kind identifies the iterator's concrete variant.
	Kind() Kind
}
