package anditer

import (
	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// ensureStats drives the contest to completion if it has not run yet.
func (a *And) ensureStats(b *budget.Budget) setiter.StatStatus {
	if a.statsDone {
		return setiter.StatOk
	}
	return a.Statistics(b)
}

// Next implements spec.md §4.5.4's outer loop.
func (a *And) Next(b *budget.Budget) (common.ID, setiter.Status) {
	if a.eof {
		return 0, setiter.EndOfSet
	}
	if st := a.ensureStats(b); st != setiter.StatOk {
		return 0, setiter.NeedMoreBudget
	}
	return a.runLoop(b)
}

// Find repositions the producer at target and resumes the run loop
// (spec.md §4.5.4 step 1, "Resync producer").
func (a *And) Find(target common.ID, b *budget.Budget) (common.ID, setiter.Status) {
	if a.eof {
		return 0, setiter.EndOfSet
	}
	if st := a.ensureStats(b); st != setiter.StatOk {
		return 0, setiter.NeedMoreBudget
	}
	a.psNextFindResumeID = &target
	return a.runLoop(b)
}

func (a *And) runLoop(b *budget.Budget) (common.ID, setiter.Status) {
	producer := a.subs[a.producerIdx]
	for {
		var id common.ID
		var st setiter.Status
		if a.psNextFindResumeID != nil {
			target := *a.psNextFindResumeID
			id, st = producer.Find(target, b)
			a.psNextFindResumeID = nil
		} else {
			id, st = producer.Next(b)
		}
		if st == setiter.NeedMoreBudget {
			return 0, setiter.NeedMoreBudget
		}
		if st == setiter.EndOfSet {
			a.eof = true
			return 0, setiter.EndOfSet
		}
		if id < a.lo || id >= a.hi {
			continue
		}

		accepted, checkSt := a.runCheckPipeline(id, producer, b)
		if checkSt == setiter.NeedMoreBudget {
			return 0, setiter.NeedMoreBudget
		}
		if !accepted {
			if a.eof {
				return 0, setiter.EndOfSet
			}
			continue
		}
		if a.cache != nil {
			if tail, ok := a.cache.Tail(); !ok || a.dir.Less(tail, id) {
				a.cache.Add(id, 1)
			}
		}
		return id, setiter.Ok
	}
}

// runCheckPipeline implements spec.md §4.5.4 step 4: walk check_order,
// choosing find vs check per candidate by comparing their amortized
// per-id cost.
func (a *And) runCheckPipeline(id common.ID, producer setiter.Iterator, b *budget.Budget) (bool, setiter.Status) {
	pStats := producer.Stats()
	rangeSize := float64(a.hi - a.lo)
	if rangeSize <= 0 {
		rangeSize = 1
	}
	pStep := rangeSize / float64(max(pStats.N, 1))

	for _, ci := range a.checkOrder {
		c := a.subs[ci]
		cStats := c.Stats()
		cStep := rangeSize / float64(max(cStats.N, 1))

		findCostPerID := (cStats.FindCost + pStats.FindCost) * 2 / (cStep + pStep)
		checkCostPerID := (pStats.NextCost + cStats.CheckCost) / pStep

		if findCostPerID < checkCostPerID {
			got, st := c.Find(id, b)
			if st == setiter.NeedMoreBudget {
				return false, setiter.NeedMoreBudget
			}
			if st == setiter.EndOfSet {
				a.eof = true
				return false, setiter.Ok
			}
			if got != id {
				a.psNextFindResumeID = &got
				return false, setiter.Ok
			}
			continue
		}

		cst := c.Check(id, b)
		if cst == setiter.CheckNeedMoreBudget {
			return false, setiter.NeedMoreBudget
		}
		if cst == setiter.No {
			return false, setiter.Ok
		}
	}
	return true, setiter.Ok
}

// Check answers standalone membership the same way before and after
// statistics complete: it checks a clone of every subiterator, each with a
// fresh budget holding an even share of b's remaining units, so the run
// position is not disturbed.
func (a *And) Check(id common.ID, b *budget.Budget) setiter.CheckStatus {
	if id < a.lo || id >= a.hi {
		return setiter.No
	}
	perSub := b.Remaining() / int64(max(len(a.subs), 1))
	if perSub < 1 {
		perSub = 1
	}
	for _, s := range a.subs {
		clone := s.Clone()
		sub := budget.New(perSub)
		cst := clone.Check(id, sub)
		if cst == setiter.CheckNeedMoreBudget {
			return setiter.CheckNeedMoreBudget
		}
		if cst == setiter.No {
			return setiter.No
		}
	}
	return setiter.Yes
}
