package leafiter

import (
	"fmt"
	"sort"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// Sort wraps an unsorted producer: the first time it is driven it collects
// the producer's full output into an ordered array, then serves next/find
// from that array (spec.md §4.6). If the collection would exceed Cap
// entries, collection stops and Overflowed reports true; callers must then
// fall back to the unsorted child instead of using this wrapper.
type Sort struct {
	child setiter.Iterator
	dir   common.Direction
	cap   int

	collected  bool
	overflowed bool
	ids        []common.ID
	pos        int
}

// DefaultSortCap bounds how many ids Sort will materialize before giving up
// (spec.md §4.6 "memory-bounded").
const DefaultSortCap = 1 << 20

// NewSort wraps child, which need not be sorted, draining at most cap ids.
func NewSort(child setiter.Iterator, dir common.Direction, cap int) *Sort {
	if cap <= 0 {
		cap = DefaultSortCap
	}
	return &Sort{child: child, dir: dir, cap: cap}
}

// Overflowed reports whether collection aborted because the result exceeded
// the configured cap; if true, the wrapper must not be used.
func (s *Sort) Overflowed() bool { return s.overflowed }

func (s *Sort) collect(b *budget.Budget) setiter.Status {
	if s.collected {
		return setiter.Ok
	}
	for {
		id, st := s.child.Next(b)
		switch st {
		case setiter.NeedMoreBudget:
			return setiter.NeedMoreBudget
		case setiter.EndOfSet:
			sort.Slice(s.ids, func(i, j int) bool { return s.dir.Less(s.ids[i], s.ids[j]) })
			s.collected = true
			return setiter.Ok
		default:
			if len(s.ids) >= s.cap {
				s.overflowed = true
				s.collected = true
				return setiter.Ok
			}
			s.ids = append(s.ids, id)
		}
	}
}

func (s *Sort) Kind() setiter.Kind             { return setiter.KindSort }
func (s *Sort) Direction() common.Direction    { return s.dir }
func (s *Sort) Low() common.ID                 { return s.child.Low() }
func (s *Sort) High() common.ID                { return s.child.High() }
func (s *Sort) PrimitiveSummary() setiter.PSum { return s.child.PrimitiveSummary() }

func (s *Sort) Reset() { s.pos = 0 }

func (s *Sort) Next(b *budget.Budget) (common.ID, setiter.Status) {
	if st := s.collect(b); st != setiter.Ok {
		return 0, st
	}
	if s.overflowed || s.pos >= len(s.ids) {
		return 0, setiter.EndOfSet
	}
	id := s.ids[s.pos]
	s.pos++
	return id, setiter.Ok
}

func (s *Sort) Find(target common.ID, b *budget.Budget) (common.ID, setiter.Status) {
	if st := s.collect(b); st != setiter.Ok {
		return 0, st
	}
	if s.overflowed {
		return 0, setiter.EndOfSet
	}
	idx := sort.Search(len(s.ids), func(i int) bool { return !s.dir.Less(s.ids[i], target) })
	if idx >= len(s.ids) {
		s.pos = len(s.ids)
		return 0, setiter.EndOfSet
	}
	s.pos = idx + 1
	return s.ids[idx], setiter.Ok
}

func (s *Sort) Check(id common.ID, b *budget.Budget) setiter.CheckStatus {
	if st := s.collect(b); st != setiter.Ok {
		return setiter.CheckNeedMoreBudget
	}
	idx := sort.Search(len(s.ids), func(i int) bool { return !s.dir.Less(s.ids[i], id) })
	if idx < len(s.ids) && s.ids[idx] == id {
		return setiter.Yes
	}
	return setiter.No
}

func (s *Sort) Statistics(b *budget.Budget) setiter.StatStatus {
	if st := s.collect(b); st != setiter.Ok {
		return setiter.StatNeedMoreBudget
	}
	return setiter.StatOk
}

func (s *Sort) StatisticsDone() bool { return s.collected }

func (s *Sort) Stats() setiter.Stats {
	return setiter.Stats{N: uint64(len(s.ids)), CheckCost: 3, NextCost: 1, FindCost: 3, Sorted: true, Ordered: true}
}

func (s *Sort) Clone() setiter.Iterator {
	clone := *s
	return &clone
}

func (s *Sort) Freeze(setiter.FreezeFlags) string {
	return fmt.Sprintf("sort[%d]/pos=%d", len(s.ids), s.pos)
}

func (s *Sort) RangeEstimate() setiter.RangeEstimate {
	if !s.collected {
		return s.child.RangeEstimate()
	}
	return setiter.RangeEstimate{Lo: s.Low(), Hi: s.High(), NMax: uint64(len(s.ids)), NExact: true}
}

func (s *Sort) Beyond(lo, hi common.ID) bool {
	return s.collected && !s.overflowed && s.pos >= len(s.ids)
}

func (s *Sort) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	return s, setiter.Already
}
