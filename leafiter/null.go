package leafiter

import (
	"strings"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/cursor"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// Null is the empty-set iterator: the AND optimizer's terminal state for
// NULL propagation (spec.md §4.5.1 step 8) and the winner of a contest that
// reached EOF with zero matches (spec.md §4.5.2 "Round-robin").
type Null struct {
	dir common.Direction
}

// NewNull returns the singleton-shaped empty iterator for dir.
func NewNull(dir common.Direction) *Null { return &Null{dir: dir} }

func (n *Null) Kind() setiter.Kind             { return setiter.KindNull }
func (n *Null) Direction() common.Direction    { return n.dir }
func (n *Null) Low() common.ID                 { return 0 }
func (n *Null) High() common.ID                { return 0 }
func (n *Null) PrimitiveSummary() setiter.PSum { return setiter.PSum{Complete: true} }
func (n *Null) Reset()                         {}

func (n *Null) Next(b *budget.Budget) (common.ID, setiter.Status) { return 0, setiter.EndOfSet }
func (n *Null) Find(common.ID, *budget.Budget) (common.ID, setiter.Status) {
	return 0, setiter.EndOfSet
}
func (n *Null) Check(common.ID, *budget.Budget) setiter.CheckStatus { return setiter.No }
func (n *Null) Statistics(*budget.Budget) setiter.StatStatus        { return setiter.StatOk }
func (n *Null) StatisticsDone() bool                                { return true }

func (n *Null) Stats() setiter.Stats {
	return setiter.Stats{Sorted: true, Ordered: true}
}

func (n *Null) Clone() setiter.Iterator { return &Null{dir: n.dir} }
func (n *Null) Freeze(setiter.FreezeFlags) string {
	if n.dir == common.Backward {
		return "null[b]"
	}
	return "null[f]"
}

func thawNull(body string) (setiter.Iterator, error) {
	dir := common.Forward
	if strings.TrimSuffix(body, "]") == "b" {
		dir = common.Backward
	}
	return NewNull(dir), nil
}

func init() {
	cursor.Register("null", thawNull)
}

func (n *Null) RangeEstimate() setiter.RangeEstimate {
	return setiter.RangeEstimate{NExact: true}
}

func (n *Null) Beyond(lo, hi common.ID) bool { return true }

func (n *Null) Restrict(setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	return n, setiter.Already
}
