package anditer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/leafiter"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// exhaustedChecker is a checker stub whose Find always reports EndOfSet,
// standing in for a real checker that has no more ids past the producer's
// current candidate. Its Stats are tuned so runCheckPipeline's cost compare
// picks the find path over the check path.
type exhaustedChecker struct{}

func (exhaustedChecker) Next(b *budget.Budget) (common.ID, setiter.Status) { return 0, setiter.EndOfSet }
func (exhaustedChecker) Find(common.ID, *budget.Budget) (common.ID, setiter.Status) {
	return 0, setiter.EndOfSet
}
func (exhaustedChecker) Check(common.ID, *budget.Budget) setiter.CheckStatus { return setiter.No }
func (exhaustedChecker) Statistics(*budget.Budget) setiter.StatStatus       { return setiter.StatOk }
func (exhaustedChecker) StatisticsDone() bool                               { return true }
func (exhaustedChecker) Stats() setiter.Stats {
	return setiter.Stats{N: 100000, CheckCost: 1000, NextCost: 1000, FindCost: 0, Sorted: true}
}
func (exhaustedChecker) Reset()                               {}
func (exhaustedChecker) Clone() setiter.Iterator              { return exhaustedChecker{} }
func (exhaustedChecker) Freeze(setiter.FreezeFlags) string    { return "" }
func (exhaustedChecker) PrimitiveSummary() setiter.PSum       { return setiter.PSum{Complete: true} }
func (exhaustedChecker) RangeEstimate() setiter.RangeEstimate { return setiter.RangeEstimate{} }
func (exhaustedChecker) Beyond(common.ID, common.ID) bool     { return false }
func (exhaustedChecker) Restrict(p setiter.PSum) (setiter.Iterator, setiter.RestrictStatus) {
	return exhaustedChecker{}, setiter.Already
}
func (exhaustedChecker) Direction() common.Direction { return common.Forward }
func (exhaustedChecker) Low() common.ID              { return 0 }
func (exhaustedChecker) High() common.ID             { return 0 }
func (exhaustedChecker) Kind() setiter.Kind          { return setiter.KindHashEq }

func TestRunCheckPipelineCheckerEndOfSetMarksEOFNotResume(t *testing.T) {
	producer := leafiter.NewAll(1, 101, common.Forward)
	checker := exhaustedChecker{}

	a := New(1, 101, common.Forward)
	a.subs = []setiter.Iterator{producer, checker}
	a.checkOrder = []int{1}

	accepted, st := a.runCheckPipeline(50, producer, budget.New(100000))
	require.False(t, accepted)
	require.Equal(t, setiter.Ok, st)
	require.True(t, a.eof, "an exhausted checker must end the AND, not reseek the producer to id 0")
	require.Nil(t, a.psNextFindResumeID)
}
