package anditer

import (
	"sort"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/itercache"
	"github.com/googlearchive/graphd-sub006/leafiter"
	"github.com/googlearchive/graphd-sub006/setiter"
)

const (
	easyFastCheckCost = 200
	easyFastNextCost  = 100
	easyFastFindCost  = 300
	initialMaxTurn    = 10
	maxTurnCeiling    = 10000
)

// contestant is one candidate producer racing to prove it is the cheapest
// way to drive the whole AND to completion (spec.md §4.5.2).
type contestant struct {
	idx       int
	costSoFar int64
	found     int
	collected []common.ID
	eof       bool
	dropped   bool
}

type contestState struct {
	contestants []*contestant
	maxTurn     int64
}

// Statistics runs the AND's contest once, deriving its own statistics from
// the winner (spec.md §4.5.2).
func (a *And) Statistics(b *budget.Budget) setiter.StatStatus {
	if a.statsDone {
		return setiter.StatOk
	}
	if len(a.subs) == 1 {
		if !a.subs[0].StatisticsDone() {
			if st := a.subs[0].Statistics(b); st != setiter.StatOk {
				return setiter.StatNeedMoreBudget
			}
		}
		a.adoptSoleStats()
		return setiter.StatOk
	}
	if a.thawed && a.haveHint {
		return a.adoptHintedProducer(b)
	}
	return a.runContest(b)
}

// adoptHintedProducer honors gia_producer_hint from a thawed cursor,
// forcing the deserialized producer index to win without rerunning the
// full contest (spec.md §4.5.7).
func (a *And) adoptHintedProducer(b *budget.Budget) setiter.StatStatus {
	for _, s := range a.subs {
		if !s.StatisticsDone() {
			if st := s.Statistics(b); st != setiter.StatOk {
				return setiter.StatNeedMoreBudget
			}
		}
	}
	winner := &contestant{idx: a.producerHint}
	a.contest = &contestState{contestants: []*contestant{winner}}
	return a.concludeContest([]*contestant{winner}, b)
}

func (a *And) adoptSoleStats() {
	a.stats = a.subs[0].Stats()
	a.producerIdx = 0
	a.checkOrder = nil
	a.statsDone = true
	a.cache = itercache.New(a.dir)
}

func (a *And) StatisticsDone() bool { return a.statsDone }
func (a *And) Stats() setiter.Stats { return a.stats }

func (a *And) eligibleIndices() []int {
	var easyFast, needStats []int
	for i, s := range a.subs {
		if !s.StatisticsDone() {
			needStats = append(needStats, i)
			continue
		}
		st := s.Stats()
		if st.Sorted && st.CheckCost <= easyFastCheckCost && st.NextCost <= easyFastNextCost && st.FindCost <= easyFastFindCost {
			easyFast = append(easyFast, i)
		} else {
			needStats = append(needStats, i) // eligible-but-costly: competes directly
		}
	}
	var out []int
	if len(easyFast) > 0 {
		best := easyFast[0]
		for _, i := range easyFast[1:] {
			if a.subs[i].Stats().N < a.subs[best].Stats().N {
				best = i
			}
		}
		out = append(out, best)
	}
	out = append(out, needStats...)
	if len(out) == 0 {
		for i := range a.subs {
			out = append(out, i)
		}
	}
	return out
}

func (a *And) startContest() {
	cs := &contestState{maxTurn: initialMaxTurn}
	for _, i := range a.eligibleIndices() {
		cs.contestants = append(cs.contestants, &contestant{idx: i})
	}
	a.contest = cs
}

func activeContestants(cs *contestState) []*contestant {
	var out []*contestant
	for _, c := range cs.contestants {
		if !c.dropped && !c.eof {
			out = append(out, c)
		}
	}
	return out
}

func (a *And) runContest(b *budget.Budget) setiter.StatStatus {
	if a.contest == nil {
		a.startContest()
	}
	cs := a.contest

	sort.SliceStable(cs.contestants, func(i, j int) bool {
		si, sj := a.subs[cs.contestants[i].idx].Stats(), a.subs[cs.contestants[j].idx].Stats()
		if si.CheckCost != sj.CheckCost {
			return si.CheckCost < sj.CheckCost
		}
		return si.N < sj.N
	})

	for {
		active := activeContestants(cs)
		if len(active) <= 1 || b.Exhausted() {
			return a.concludeContest(active, b)
		}
		turn := b.Remaining() / int64(len(active))
		if turn < 1 {
			turn = 1
		}
		if turn > cs.maxTurn {
			turn = cs.maxTurn
		}
		if cs.maxTurn < maxTurnCeiling {
			cs.maxTurn *= 10
		}
		for _, c := range active {
			a.runTurn(c, turn, b)
			if b.Exhausted() {
				break
			}
		}
		dropWorseThanLeader(active)
		if b.Exhausted() {
			return setiter.StatNeedMoreBudget
		}
	}
}

func (a *And) runTurn(c *contestant, turn int64, b *budget.Budget) {
	spentThisTurn := int64(0)
	goal := (c.found/contestGoal + 1) * contestGoal
	for c.found < goal {
		if b.Exhausted() || spentThisTurn >= turn {
			return
		}
		before := b.Remaining()
		id, st := a.subs[c.idx].Next(b)
		spentThisTurn += before - b.Remaining()
		if st == setiter.NeedMoreBudget {
			return
		}
		if st == setiter.EndOfSet {
			c.eof = true
			return
		}
		c.costSoFar += before - b.Remaining()
		if a.checkAgainstOthers(id, c.idx, b) {
			c.found++
			c.collected = append(c.collected, id)
		}
		if c.found > 0 && c.found%contestGoal == 0 {
			return
		}
	}
}

func (a *And) checkAgainstOthers(id common.ID, producerIdx int, b *budget.Budget) bool {
	for i, s := range a.subs {
		if i == producerIdx {
			continue
		}
		if s.Check(id, b) == setiter.No {
			return false
		}
	}
	return true
}

// estimate implements spec.md §4.5.2's total-cost estimate formula.
func estimate(c *contestant, nToProduce uint64) float64 {
	if c.found > 0 {
		return float64(c.costSoFar) * float64(nToProduce) / float64(c.found)
	}
	return 2*float64(c.costSoFar)*float64(nToProduce) + 1
}

func dropWorseThanLeader(active []*contestant) {
	if len(active) <= 1 {
		return
	}
	best := active[0]
	bestEst := estimate(best, contestGoal)
	for _, c := range active[1:] {
		if e := estimate(c, contestGoal); e < bestEst {
			best = c
			bestEst = e
		}
	}
	for _, c := range active {
		if c == best {
			continue
		}
		if estimate(c, contestGoal) > bestEst {
			c.dropped = true
		}
	}
}

// concludeContest promotes a winner — by EOF-with-definite-answer or by
// being the sole survivor — into the AND's producer and statistics
// (spec.md §4.5.2 "On completion").
func (a *And) concludeContest(active []*contestant, b *budget.Budget) setiter.StatStatus {
	var winner *contestant
	for _, c := range a.contest.contestants {
		if c.eof {
			winner = c
			break
		}
	}
	if winner == nil {
		if len(active) == 0 {
			for _, c := range a.contest.contestants {
				if !c.dropped {
					winner = c
					break
				}
			}
		} else {
			winner = active[0]
		}
	}
	if winner == nil {
		winner = a.contest.contestants[0]
	}

	if winner.eof {
		if len(winner.collected) == 0 {
			a.subs = []setiter.Iterator{leafiter.NewNull(a.dir)}
		} else {
			a.subs = []setiter.Iterator{leafiter.NewFixed(winner.collected, a.dir, a.PrimitiveSummary())}
		}
		a.adoptSoleStats()
		a.contest = nil
		return setiter.StatOk
	}

	a.producerIdx = winner.idx
	producerStats := a.subs[winner.idx].Stats()

	a.checkOrder = nil
	for i := range a.subs {
		if i != a.producerIdx {
			a.checkOrder = append(a.checkOrder, i)
		}
	}
	a.sortCheckOrder()

	n := producerStats.N
	if uint64(a.hi-a.lo) < n {
		n = uint64(a.hi - a.lo)
	}
	for _, s := range a.subs {
		if s.StatisticsDone() && s.Stats().N < n {
			n = s.Stats().N
		}
	}

	nextCost := producerStats.NextCost
	if winner.found > 0 {
		nextCost = float64(winner.costSoFar) / float64(winner.found)
	}

	total := float64(a.hi - a.lo)
	if total <= 0 {
		total = 1
	}
	var checkCost float64
	chanceProduct := 1.0
	for _, ci := range a.checkOrder {
		cs := a.subs[ci].Stats()
		checkCost += cs.CheckCost * chanceProduct
		chanceProduct *= float64(cs.N) / total
	}

	a.stats = setiter.Stats{
		N:         n,
		Sorted:    producerStats.Sorted,
		Ordered:   producerStats.Ordered,
		Ordering:  producerStats.Ordering,
		NextCost:  nextCost,
		CheckCost: checkCost,
		FindCost:  producerStats.FindCost + nextCost,
	}

	a.cache = itercache.New(a.dir)
	if a.stats.Sorted {
		for i, id := range winner.collected {
			if i > 0 && !a.dir.Less(winner.collected[i-1], id) {
				break
			}
			a.cache.Add(id, 1)
		}
	}

	a.statsDone = true
	a.contest = nil
	return setiter.StatOk
}

// sortCheckOrder implements spec.md §4.5.3's bubble sort over cost_first.
func (a *And) sortCheckOrder() {
	total := float64(a.hi - a.lo)
	if total <= 0 {
		total = 1
	}
	costFirst := func(i, j int) bool {
		si, sj := a.subs[i].Stats(), a.subs[j].Stats()
		lhs := si.CheckCost + (float64(si.N)/total)*sj.CheckCost
		rhs := sj.CheckCost + (float64(sj.N)/total)*si.CheckCost
		return lhs < rhs
	}
	order := a.checkOrder
	for i := 0; i < len(order); i++ {
		for j := 0; j < len(order)-i-1; j++ {
			if !costFirst(order[j], order[j+1]) {
				order[j], order[j+1] = order[j+1], order[j]
			}
		}
	}
	a.checkVersion++
}
