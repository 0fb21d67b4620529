// Package anditer implements the AND compositor (spec.md §4.5): the
// intersection of k >= 1 subiterators, with its commit-time optimizer,
// cost-based producer contest, checker pipeline, and freeze/thaw.
package anditer

import (
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/itercache"
	"github.com/googlearchive/graphd-sub006/leafiter"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// preevaluateBudget bounds the "small-set pre-evaluation" commit step
// (spec.md §4.5.1 step 6): the constant ceiling on cheapest-producer-n ×
// total-checker-cost below which the AND is worth fully materializing up
// front.
const preevaluateBudget = 10000

// contestGoal is GOAL from spec.md §4.5.2: how many passing ids a
// competitor must produce to end its turn successfully.
const contestGoal = 5

// And is the conjunctive intersection of its subiterators.
type And struct {
	lo, hi common.ID
	dir    common.Direction

	subs []setiter.Iterator

	committed    bool
	thawed       bool
	structuralID uint64

	statsDone bool
	stats     setiter.Stats

	producerIdx  int
	checkOrder   []int // indices into subs, producer excluded
	checkVersion uint64

	cache   *itercache.Cache
	contest *contestState

	// run() process state (spec.md §4.5.4)
	psNextFindResumeID *common.ID
	eof                bool

	// producer hint carried across a thaw, forcing that producer to win
	// the contest without rerunning it if still viable (spec.md §4.5.7).
	producerHint int
	haveHint     bool
}

// New creates an uncommitted AND over [lo, hi) traversing dir.
func New(lo, hi common.ID, dir common.Direction) *And {
	return &And{lo: lo, hi: hi, dir: dir, producerIdx: -1}
}

// AddSub appends a subcondition. Must be called before Commit.
func (a *And) AddSub(it setiter.Iterator) {
	if a.committed {
		panic("anditer: AddSub after Commit")
	}
	a.subs = append(a.subs, it)
}

// Commit runs the optimizer (spec.md §4.5.1) and freezes the subiterator
// list. Safe to call once.
func (a *And) Commit() {
	if a.committed {
		return
	}
	a.tightenRange()
	a.nullPropagate()
	if !a.isNull() {
		a.removeSpuriousAll()
		a.subsumePSums()
		a.nullPropagate()
	}
	if !a.isNull() {
		a.preevaluate()
	}
	a.committed = true
	a.structuralID++
}

func (a *And) isNull() bool {
	return len(a.subs) == 1 && a.subs[0].Kind() == setiter.KindNull
}

// tightenRange implements step 1: low = max(sub.low), high = min(sub.high).
func (a *And) tightenRange() {
	for _, s := range a.subs {
		if s.Low() > a.lo {
			a.lo = s.Low()
		}
		if s.High() < a.hi {
			a.hi = s.High()
		}
	}
}

// nullPropagate implements step 8.
func (a *And) nullPropagate() {
	if a.lo >= a.hi {
		a.subs = []setiter.Iterator{leafiter.NewNull(a.dir)}
		return
	}
	for _, s := range a.subs {
		if s.Kind() == setiter.KindNull {
			a.subs = []setiter.Iterator{leafiter.NewNull(a.dir)}
			return
		}
	}
}

// removeSpuriousAll implements step 2: drop every ALL subiterator once some
// other sub is provably cheaper to drive to completion than scanning.
func (a *And) removeSpuriousAll() {
	upperBound := uint64(a.hi - a.lo)
	tractable := false
	for _, s := range a.subs {
		if s.Kind() == setiter.KindAll || !s.StatisticsDone() {
			continue
		}
		st := s.Stats()
		if float64(st.N)*st.NextCost < float64(upperBound)*allScanCheckCost {
			tractable = true
			break
		}
	}
	if !tractable {
		return
	}
	filtered := a.subs[:0:0]
	for _, s := range a.subs {
		if s.Kind() != setiter.KindAll {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		filtered = append(filtered, a.subs[0])
	}
	a.subs = filtered
}

// allScanCheckCost estimates the cost of checking a candidate the way a full
// scan's checker would; it mirrors leafiter's All.Check cost without
// importing leafiter's unexported constants.
const allScanCheckCost = 50

// subsumePSums implements step 4: for any pair a,b with psum(a) superseding
// psum(b), drop a.
func (a *And) subsumePSums() {
	removed := make([]bool, len(a.subs))
	for i := range a.subs {
		if removed[i] {
			continue
		}
		for j := range a.subs {
			if i == j || removed[j] {
				continue
			}
			if a.subs[i].PrimitiveSummary().Subsumes(a.subs[j].PrimitiveSummary()) {
				removed[i] = true
				break
			}
		}
	}
	var kept []setiter.Iterator
	for i, s := range a.subs {
		if !removed[i] {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		kept = a.subs[:1]
	}
	a.subs = kept
}

// preevaluate implements step 6: if the cheapest producer's n times the sum
// of checker costs fits the preevaluation budget, drive the AND to full
// completion now and substitute a Fixed iterator.
func (a *And) preevaluate() {
	if len(a.subs) < 2 {
		return
	}
	for _, s := range a.subs {
		if !s.StatisticsDone() {
			return
		}
	}
	cheapest := 0
	for i, s := range a.subs {
		if s.Stats().N < a.subs[cheapest].Stats().N {
			cheapest = i
		}
	}
	var checkSum float64
	for i, s := range a.subs {
		if i == cheapest {
			continue
		}
		checkSum += s.Stats().CheckCost
	}
	if float64(a.subs[cheapest].Stats().N)*checkSum > preevaluateBudget {
		return
	}
	ids := driveFullIntersection(a.subs, cheapest, a.dir)
	psum := a.subs[0].PrimitiveSummary()
	for _, s := range a.subs[1:] {
		if merged := mergePSumLocal(psum, s.PrimitiveSummary()); merged != nil {
			psum = *merged
		}
	}
	if len(ids) == 0 {
		a.subs = []setiter.Iterator{leafiter.NewNull(a.dir)}
		return
	}
	a.subs = []setiter.Iterator{leafiter.NewFixed(ids, a.dir, psum)}
}

func mergePSumLocal(a, p setiter.PSum) *setiter.PSum {
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

// Kind, Direction, Low, High, PrimitiveSummary, Reset, Clone satisfy
// setiter.Iterator's structural surface; the run/contest logic lives in
// run.go and contest.go.
func (a *And) Kind() setiter.Kind            { return setiter.KindAnd }
func (a *And) Direction() common.Direction   { return a.dir }
func (a *And) Low() common.ID                { return a.lo }
func (a *And) High() common.ID               { return a.hi }

func (a *And) PrimitiveSummary() setiter.PSum {
	if len(a.subs) == 0 {
		return setiter.PSum{}
	}
	p := a.subs[0].PrimitiveSummary()
	for _, s := range a.subs[1:] {
		if merged := mergePSumLocal(p, s.PrimitiveSummary()); merged != nil {
			p = *merged
		}
	}
	return p
}

func (a *And) Reset() {
	for _, s := range a.subs {
		s.Reset()
	}
	a.eof = false
	a.psNextFindResumeID = nil
}

// Clone returns a lightweight AND sharing this one's cache and structural
// state but with its own subiterator clones and run position (spec.md §3
// "Iterator identity and lineage").
func (a *And) Clone() setiter.Iterator {
	clone := &And{
		lo: a.lo, hi: a.hi, dir: a.dir,
		committed: a.committed, structuralID: a.structuralID,
		statsDone: a.statsDone, stats: a.stats,
		producerIdx: a.producerIdx, checkVersion: a.checkVersion,
		cache: a.cache,
	}
	clone.checkOrder = append([]int(nil), a.checkOrder...)
	for _, s := range a.subs {
		clone.subs = append(clone.subs, s.Clone())
	}
	return clone
}

func (a *And) Beyond(lo, hi common.ID) bool {
	// Conservative default per spec.md §9: answer false ("might still
	// produce something") whenever not positively sure.
	if a.eof {
		return true
	}
	return false
}

func (a *And) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	if p.Subsumes(a.PrimitiveSummary()) {
		return a, setiter.Already
	}
	return a, setiter.Already
}
