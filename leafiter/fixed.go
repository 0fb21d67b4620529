package leafiter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/cursor"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// Fixed wraps a pre-materialized, already-sorted slice of ids. It is what
// the AND optimizer substitutes for a contest winner that reached EOF, and
// for the "small-set pre-evaluation" step that fully evaluates a cheap AND
// up front (spec.md §4.5.1 step 6, §4.5.2 "On completion").
type Fixed struct {
	ids  []common.ID
	dir  common.Direction
	pos  int
	psum setiter.PSum
}

// NewFixed wraps ids (which callers must have already sorted per dir).
func NewFixed(ids []common.ID, dir common.Direction, psum setiter.PSum) *Fixed {
	return &Fixed{ids: ids, dir: dir, psum: psum}
}

func (f *Fixed) Kind() setiter.Kind             { return setiter.KindFixed }
func (f *Fixed) Direction() common.Direction    { return f.dir }
func (f *Fixed) PrimitiveSummary() setiter.PSum { return f.psum }

func (f *Fixed) Low() common.ID {
	if len(f.ids) == 0 {
		return 0
	}
	if f.dir == common.Backward {
		return f.ids[len(f.ids)-1]
	}
	return f.ids[0]
}

func (f *Fixed) High() common.ID {
	if len(f.ids) == 0 {
		return 0
	}
	if f.dir == common.Backward {
		return f.ids[0] + 1
	}
	return f.ids[len(f.ids)-1] + 1
}

func (f *Fixed) Reset() { f.pos = 0 }

func (f *Fixed) Next(b *budget.Budget) (common.ID, setiter.Status) {
	if f.pos >= len(f.ids) {
		return 0, setiter.EndOfSet
	}
	if b.Exhausted() {
		return 0, setiter.NeedMoreBudget
	}
	b.Spend(1)
	id := f.ids[f.pos]
	f.pos++
	return id, setiter.Ok
}

func (f *Fixed) Find(target common.ID, b *budget.Budget) (common.ID, setiter.Status) {
	if b.Exhausted() {
		return 0, setiter.NeedMoreBudget
	}
	b.Spend(1)
	var idx int
	if f.dir == common.Backward {
		idx = sort.Search(len(f.ids), func(i int) bool { return f.ids[i] <= target })
	} else {
		idx = sort.Search(len(f.ids), func(i int) bool { return f.ids[i] >= target })
	}
	if idx >= len(f.ids) {
		f.pos = len(f.ids)
		return 0, setiter.EndOfSet
	}
	f.pos = idx + 1
	return f.ids[idx], setiter.Ok
}

func (f *Fixed) Check(id common.ID, b *budget.Budget) setiter.CheckStatus {
	if b.Exhausted() {
		return setiter.CheckNeedMoreBudget
	}
	b.Spend(1)
	var idx int
	if f.dir == common.Backward {
		idx = sort.Search(len(f.ids), func(i int) bool { return f.ids[i] <= id })
	} else {
		idx = sort.Search(len(f.ids), func(i int) bool { return f.ids[i] >= id })
	}
	if idx < len(f.ids) && f.ids[idx] == id {
		return setiter.Yes
	}
	return setiter.No
}

func (f *Fixed) Statistics(*budget.Budget) setiter.StatStatus { return setiter.StatOk }
func (f *Fixed) StatisticsDone() bool                         { return true }

func (f *Fixed) Stats() setiter.Stats {
	return setiter.Stats{N: uint64(len(f.ids)), CheckCost: 1, NextCost: 1, FindCost: 1, Sorted: true, Ordered: true}
}

func (f *Fixed) Clone() setiter.Iterator {
	clone := *f
	return &clone
}

func (f *Fixed) Freeze(setiter.FreezeFlags) string {
	dir := "f"
	if f.dir == common.Backward {
		dir = "b"
	}
	parts := make([]string, len(f.ids))
	for i, id := range f.ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("fixed[%s/%d/%s]", dir, f.pos, strings.Join(parts, ","))
}

func thawFixed(body string) (setiter.Iterator, error) {
	body = strings.TrimSuffix(body, "]")
	fields := strings.SplitN(body, "/", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("leafiter: malformed fixed cursor %q", body)
	}
	dir := common.Forward
	if fields[0] == "b" {
		dir = common.Backward
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("leafiter: malformed fixed position: %w", err)
	}
	var ids []common.ID
	if fields[2] != "" {
		for _, s := range strings.Split(fields[2], ",") {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("leafiter: malformed fixed id %q: %w", s, err)
			}
			ids = append(ids, common.ID(v))
		}
	}
	f := NewFixed(ids, dir, setiter.PSum{Complete: true})
	f.pos = pos
	return f, nil
}

func init() {
	cursor.Register("fixed", thawFixed)
}

func (f *Fixed) RangeEstimate() setiter.RangeEstimate {
	return setiter.RangeEstimate{Lo: f.Low(), Hi: f.High(), NMax: uint64(len(f.ids)), NExact: true}
}

func (f *Fixed) Beyond(lo, hi common.ID) bool { return f.pos >= len(f.ids) }

func (f *Fixed) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	if p.Subsumes(f.psum) {
		return f, setiter.Already
	}
	return f, setiter.Already
}
