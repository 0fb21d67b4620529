package anditer

import "github.com/googlearchive/graphd-sub006/setiter"

// Evolve mutates the tree after statistics complete (spec.md §4.5.6):
// re-run psum subsumption, drop any ALL that isn't the chosen producer, and
// refresh check ordering. Returns true if anything changed.
func (a *And) Evolve() bool {
	if !a.statsDone || len(a.subs) <= 1 {
		return false
	}
	changed := false
	producer := a.subs[a.producerIdx]

	before := len(a.subs)
	a.subsumePSums()
	if len(a.subs) != before {
		changed = true
	}

	var kept []setiter.Iterator
	for _, s := range a.subs {
		if s.Kind() == setiter.KindAll && s != producer {
			changed = true
			continue
		}
		kept = append(kept, s)
	}
	if changed {
		a.subs = kept
		a.rebuildProducerIndex(producer)
	}

	if changed {
		a.checkOrder = a.checkOrder[:0]
		for i := range a.subs {
			if i != a.producerIdx {
				a.checkOrder = append(a.checkOrder, i)
			}
		}
		a.sortCheckOrder()
		a.structuralID++
	}
	return changed
}

// rebuildProducerIndex keeps producerIdx pointing at the same sub after a
// slice-shrinking mutation has shifted indices. If producer is no longer
// among the subs (psum subsumption removed it), the first sub becomes the
// producer.
func (a *And) rebuildProducerIndex(producer setiter.Iterator) {
	for i, s := range a.subs {
		if s == producer {
			a.producerIdx = i
			return
		}
	}
	a.producerIdx = 0
}
