package anditer

import (
	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// driveFullIntersection runs subs[producer] to completion, checking each
// candidate against every other sub, and returns the accepted ids in
// producer order. Used only by the commit-time small-set pre-evaluation
// step, which already knows the result is small enough to materialize fully.
func driveFullIntersection(subs []setiter.Iterator, producer int, dir common.Direction) []common.ID {
	clones := make([]setiter.Iterator, len(subs))
	for i, s := range subs {
		clones[i] = s.Clone()
	}
	b := budget.New(1 << 30)
	var out []common.ID
	for {
		id, st := clones[producer].Next(b)
		if st == setiter.EndOfSet {
			return out
		}
		if st == setiter.NeedMoreBudget {
			b = budget.New(1 << 30)
			continue
		}
		accepted := true
		for i, c := range clones {
			if i == producer {
				continue
			}
			cst := c.Check(id, b)
			if cst == setiter.No {
				accepted = false
				break
			}
		}
		if accepted {
			out = append(out, id)
		}
	}
}
