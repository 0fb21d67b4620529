// Package leafiter implements the primitive-set producer leaves of the
// iterator algebra (spec.md §4.5's subiterators, enumerated in §2 as
// "hash-eq, linkage, VIP, all, null, fixed, sort"): the iterators an AND
// composes, each satisfying setiter.Iterator directly with no subiterators
// of their own.
package leafiter

import (
	"fmt"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/idarray"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// The array* and all* NextCost/CheckCost constants are the unit costs leaves charge per id
// touched; they are deliberately simple so the AND's contest has a stable
// baseline to compare producers against.
const (
	arrayNextCost  = 2
	arrayCheckCost = 3
	allNextCost    = 1
	allCheckCost   = 50
)

// arrayLeaf is the shared implementation backing the hash-eq, linkage and
// VIP leaves: all three are, at the storage layer, "read a sorted id-array
// by offset or binary search" (spec.md §4.2); what differs between them is
// only which primitive summary fields they lock.
type arrayLeaf struct {
	kind  setiter.Kind
	arr   idarray.IDArray
	lo    common.ID
	hi    common.ID
	dir   common.Direction
	psum  setiter.PSum
	pos   uint64 // next offset into arr to read, in declared direction
	ended bool
}

// NewHashEq builds a leaf over an exact-match lookup (e.g. an HMAP bucket's
// id array), locking no linkage field of its own.
func NewHashEq(arr idarray.IDArray, lo, hi common.ID, dir common.Direction) setiter.Iterator {
	return newArrayLeaf(setiter.KindHashEq, arr, lo, hi, dir, setiter.PSum{Complete: true})
}

// NewLinkage builds a leaf over a single linkage field's GMAP chain (e.g.
// left=X), locking that field in its primitive summary.
func NewLinkage(arr idarray.IDArray, lo, hi common.ID, dir common.Direction, field *common.ID, isLeft bool) setiter.Iterator {
	p := setiter.PSum{Complete: true}
	if isLeft {
		p.Left = field
	} else {
		p.Right = field
	}
	return newArrayLeaf(setiter.KindLinkage, arr, lo, hi, dir, p)
}

// NewVIP builds a leaf over a compound (typeguid, left|right) index, the
// fused iterator the AND optimizer's VIP-combination step produces
// (spec.md §4.5.1 step 3).
func NewVIP(arr idarray.IDArray, lo, hi common.ID, dir common.Direction, typeGUID common.ID, side *common.ID, isLeft bool) setiter.Iterator {
	p := setiter.PSum{Complete: true, TypeGUID: &typeGUID}
	if isLeft {
		p.Left = side
	} else {
		p.Right = side
	}
	return newArrayLeaf(setiter.KindVIP, arr, lo, hi, dir, p)
}

func newArrayLeaf(kind setiter.Kind, arr idarray.IDArray, lo, hi common.ID, dir common.Direction, p setiter.PSum) *arrayLeaf {
	return &arrayLeaf{kind: kind, arr: arr, lo: lo, hi: hi, dir: dir, psum: p}
}

func (a *arrayLeaf) Kind() setiter.Kind           { return a.kind }
func (a *arrayLeaf) Direction() common.Direction  { return a.dir }
func (a *arrayLeaf) Low() common.ID               { return a.lo }
func (a *arrayLeaf) High() common.ID              { return a.hi }
func (a *arrayLeaf) PrimitiveSummary() setiter.PSum { return a.psum }
func (a *arrayLeaf) Reset()                       { a.pos = 0; a.ended = false }

func (a *arrayLeaf) Next(b *budget.Budget) (common.ID, setiter.Status) {
	for {
		if a.ended || a.pos >= a.arr.Len() {
			a.ended = true
			return 0, setiter.EndOfSet
		}
		if b.Exhausted() {
			return 0, setiter.NeedMoreBudget
		}
		b.Spend(arrayNextCost)
		id := a.arr.Read1(a.pos)
		a.pos++
		if inRange(a.dir, id, a.lo, a.hi) {
			return id, setiter.Ok
		}
		if pastRange(a.dir, id, a.hi, a.lo) {
			a.ended = true
			return 0, setiter.EndOfSet
		}
	}
}

func (a *arrayLeaf) Find(target common.ID, b *budget.Budget) (common.ID, setiter.Status) {
	if b.Exhausted() {
		return 0, setiter.NeedMoreBudget
	}
	b.Spend(arrayCheckCost)
	off, actual, _ := a.arr.Search(a.pos, a.arr.Len(), clamp(a.dir, target, a.lo, a.hi))
	if off >= a.arr.Len() {
		a.ended = true
		return 0, setiter.EndOfSet
	}
	if !inRange(a.dir, actual, a.lo, a.hi) {
		a.ended = true
		return 0, setiter.EndOfSet
	}
	a.pos = off + 1
	return actual, setiter.Ok
}

func clamp(dir common.Direction, target, lo, hi common.ID) common.ID {
	if dir == common.Backward {
		if target >= hi {
			return hi - 1
		}
		return target
	}
	if target < lo {
		return lo
	}
	return target
}

func inRange(dir common.Direction, id, lo, hi common.ID) bool {
	return id >= lo && id < hi
}

func pastRange(dir common.Direction, id, hi, lo common.ID) bool {
	if dir == common.Backward {
		return id < lo
	}
	return id >= hi
}

func (a *arrayLeaf) Check(id common.ID, b *budget.Budget) setiter.CheckStatus {
	if b.Exhausted() {
		return setiter.CheckNeedMoreBudget
	}
	b.Spend(arrayCheckCost)
	if !inRange(a.dir, id, a.lo, a.hi) {
		return setiter.No
	}
	_, actual, exact := a.arr.Search(0, a.arr.Len(), id)
	if exact {
		return setiter.Yes
	}
	_ = actual
	return setiter.No
}

func (a *arrayLeaf) Statistics(b *budget.Budget) setiter.StatStatus { return setiter.StatOk }
func (a *arrayLeaf) StatisticsDone() bool                           { return true }

func (a *arrayLeaf) Stats() setiter.Stats {
	return setiter.Stats{
		N:         a.arr.Len(),
		CheckCost: arrayCheckCost,
		NextCost:  arrayNextCost,
		FindCost:  arrayCheckCost,
		Sorted:    true,
		Ordered:   true,
	}
}

func (a *arrayLeaf) Clone() setiter.Iterator {
	clone := *a
	return &clone
}

func (a *arrayLeaf) Freeze(flags setiter.FreezeFlags) string {
	return fmt.Sprintf("%s[%d..%d]/pos=%d", a.kind, a.lo, a.hi, a.pos)
}

func (a *arrayLeaf) RangeEstimate() setiter.RangeEstimate {
	return setiter.RangeEstimate{Lo: a.lo, Hi: a.hi, NMax: a.arr.Len(), NExact: true}
}

func (a *arrayLeaf) Beyond(lo, hi common.ID) bool {
	if a.pos >= a.arr.Len() {
		return true
	}
	return false
}

func (a *arrayLeaf) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	if p.Subsumes(a.psum) {
		return a, setiter.Already
	}
	merged := mergePSum(a.psum, p)
	if merged == nil {
		return nil, setiter.NoneContradicts
	}
	clone := *a
	clone.psum = *merged
	return &clone, setiter.Restricted
}

func mergePSum(a, p setiter.PSum) *setiter.PSum {
	out := a
	if p.TypeGUID != nil {
		if out.TypeGUID != nil && *out.TypeGUID != *p.TypeGUID {
			return nil
		}
		out.TypeGUID = p.TypeGUID
	}
	if p.Left != nil {
		if out.Left != nil && *out.Left != *p.Left {
			return nil
		}
		out.Left = p.Left
	}
	if p.Right != nil {
		if out.Right != nil && *out.Right != *p.Right {
			return nil
		}
		out.Right = p.Right
	}
	return &out
}
