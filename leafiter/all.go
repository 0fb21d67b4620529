package leafiter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/cursor"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// All is the full-range scan leaf: it produces every id in [lo, hi), one
// per unit of work, regardless of whether any primitive actually exists at
// that id — real deployments filter it through a checker. It is the
// iterator the optimizer tries hardest to avoid driving (spec.md §4.5.1
// step 2 "Spurious-ALL removal").
type All struct {
	lo, hi common.ID
	dir    common.Direction
	cur    common.ID
	inited bool
	ended  bool
}

// NewAll builds an unfiltered scan of [lo, hi) in dir.
func NewAll(lo, hi common.ID, dir common.Direction) *All {
	return &All{lo: lo, hi: hi, dir: dir}
}

func (a *All) Kind() setiter.Kind             { return setiter.KindAll }
func (a *All) Direction() common.Direction    { return a.dir }
func (a *All) Low() common.ID                 { return a.lo }
func (a *All) High() common.ID                { return a.hi }
func (a *All) PrimitiveSummary() setiter.PSum { return setiter.PSum{Complete: true} }

func (a *All) Reset() { a.inited = false; a.ended = false }

func (a *All) Next(b *budget.Budget) (common.ID, setiter.Status) {
	if a.ended {
		return 0, setiter.EndOfSet
	}
	if b.Exhausted() {
		return 0, setiter.NeedMoreBudget
	}
	b.Spend(allNextCost)
	if !a.inited {
		a.inited = true
		if a.dir == common.Backward {
			a.cur = a.hi - 1
		} else {
			a.cur = a.lo
		}
	} else if a.dir == common.Backward {
		a.cur--
	} else {
		a.cur++
	}
	if a.dir == common.Backward && a.cur < a.lo {
		a.ended = true
		return 0, setiter.EndOfSet
	}
	if a.dir == common.Forward && a.cur >= a.hi {
		a.ended = true
		return 0, setiter.EndOfSet
	}
	return a.cur, setiter.Ok
}

func (a *All) Find(target common.ID, b *budget.Budget) (common.ID, setiter.Status) {
	if b.Exhausted() {
		return 0, setiter.NeedMoreBudget
	}
	b.Spend(allNextCost)
	a.inited = true
	if a.dir == common.Backward {
		if target >= a.hi {
			target = a.hi - 1
		}
		a.cur = target
		if a.cur < a.lo {
			a.ended = true
			return 0, setiter.EndOfSet
		}
		return a.cur, setiter.Ok
	}
	if target < a.lo {
		target = a.lo
	}
	a.cur = target
	if a.cur >= a.hi {
		a.ended = true
		return 0, setiter.EndOfSet
	}
	return a.cur, setiter.Ok
}

func (a *All) Check(id common.ID, b *budget.Budget) setiter.CheckStatus {
	if b.Exhausted() {
		return setiter.CheckNeedMoreBudget
	}
	b.Spend(allCheckCost)
	if id >= a.lo && id < a.hi {
		return setiter.Yes
	}
	return setiter.No
}

func (a *All) Statistics(b *budget.Budget) setiter.StatStatus { return setiter.StatOk }
func (a *All) StatisticsDone() bool                           { return true }

func (a *All) Stats() setiter.Stats {
	return setiter.Stats{
		N:         uint64(a.hi - a.lo),
		CheckCost: allCheckCost,
		NextCost:  allNextCost,
		FindCost:  allNextCost,
		Sorted:    true,
		Ordered:   false,
	}
}

func (a *All) Clone() setiter.Iterator {
	clone := *a
	return &clone
}

func (a *All) Freeze(flags setiter.FreezeFlags) string {
	dir := "f"
	if a.dir == common.Backward {
		dir = "b"
	}
	inited := "0"
	if a.inited {
		inited = "1"
	}
	ended := "0"
	if a.ended {
		ended = "1"
	}
	return fmt.Sprintf("all[%d..%d/%s/%s/%s/%d]", a.lo, a.hi, dir, inited, ended, a.cur)
}

func thawAll(body string) (setiter.Iterator, error) {
	body = strings.TrimSuffix(body, "]")
	bounds, rest, ok := strings.Cut(body, "/")
	if !ok {
		return nil, fmt.Errorf("leafiter: malformed all cursor %q", body)
	}
	lo, hi, ok := strings.Cut(bounds, "..")
	if !ok {
		return nil, fmt.Errorf("leafiter: malformed all bounds %q", bounds)
	}
	fields := strings.Split(rest, "/")
	if len(fields) != 4 {
		return nil, fmt.Errorf("leafiter: malformed all cursor %q", body)
	}
	loV, err := strconv.ParseUint(lo, 10, 64)
	if err != nil {
		return nil, err
	}
	hiV, err := strconv.ParseUint(hi, 10, 64)
	if err != nil {
		return nil, err
	}
	dir := common.Forward
	if fields[0] == "b" {
		dir = common.Backward
	}
	cur, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return nil, err
	}
	a := NewAll(common.ID(loV), common.ID(hiV), dir)
	a.inited = fields[1] == "1"
	a.ended = fields[2] == "1"
	a.cur = common.ID(cur)
	return a, nil
}

func init() {
	cursor.Register("all", thawAll)
}

func (a *All) RangeEstimate() setiter.RangeEstimate {
	return setiter.RangeEstimate{Lo: a.lo, Hi: a.hi, NMax: uint64(a.hi - a.lo), NExact: true}
}

func (a *All) Beyond(lo, hi common.ID) bool { return false }

func (a *All) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	return a, setiter.Already
}
