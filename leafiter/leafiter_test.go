package leafiter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/idarray"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// idsWhere builds the sorted id list for ids in 1..=100 satisfying pred, the
// synthetic dataset spec.md §8 scenarios are built on.
func idsWhere(pred func(id int) bool) []common.ID {
	var out []common.ID
	for id := 1; id <= 100; id++ {
		if pred(id) {
			out = append(out, common.ID(id))
		}
	}
	return out
}

func TestArrayLeafTypeguidEquals1(t *testing.T) {
	arr := idarray.NewSlice(idsWhere(func(id int) bool { return id%3 == 1 }), common.Forward)
	it := NewHashEq(arr, 1, 101, common.Forward)

	b := budget.New(1000)
	var got []common.ID
	for {
		id, st := it.Next(b)
		if st == setiter.EndOfSet {
			break
		}
		require.Equal(t, setiter.Ok, st)
		got = append(got, id)
	}
	require.Equal(t, idsWhere(func(id int) bool { return id%3 == 1 }), got)
}

func TestArrayLeafFindAndCheck(t *testing.T) {
	arr := idarray.NewSlice(idsWhere(func(id int) bool { return id%5 == 2 }), common.Forward)
	it := NewLinkage(arr, 1, 101, common.Forward, nil, true)

	b := budget.New(1000)
	id, st := it.Find(30, b)
	require.Equal(t, setiter.Ok, st)
	require.Equal(t, common.ID(32), id)

	require.Equal(t, setiter.Yes, it.Check(32, b))
	require.Equal(t, setiter.No, it.Check(33, b))
}

func TestAllScanForwardAndBackward(t *testing.T) {
	fwd := NewAll(1, 6, common.Forward)
	b := budget.New(1000)
	var got []common.ID
	for {
		id, st := fwd.Next(b)
		if st == setiter.EndOfSet {
			break
		}
		got = append(got, id)
	}
	require.Equal(t, []common.ID{1, 2, 3, 4, 5}, got)

	back := NewAll(1, 6, common.Backward)
	got = nil
	for {
		id, st := back.Next(b)
		if st == setiter.EndOfSet {
			break
		}
		got = append(got, id)
	}
	require.Equal(t, []common.ID{5, 4, 3, 2, 1}, got)
}

func TestNullAlwaysEmpty(t *testing.T) {
	n := NewNull(common.Forward)
	b := budget.New(10)
	_, st := n.Next(b)
	require.Equal(t, setiter.EndOfSet, st)
	require.Equal(t, setiter.No, n.Check(5, b))
	require.True(t, n.Beyond(0, 100))
}

func TestFixedFindBackward(t *testing.T) {
	f := NewFixed([]common.ID{97, 82, 67, 52, 37, 22, 7}, common.Backward, setiter.PSum{Complete: true})
	b := budget.New(100)
	id, st := f.Find(50, b)
	require.Equal(t, setiter.Ok, st)
	require.Equal(t, common.ID(37), id)
}

func TestSortWrapsUnsortedAll(t *testing.T) {
	child := NewAll(1, 6, common.Backward) // already sorted descending, but exercise Sort anyway
	s := NewSort(child, common.Forward, 0)
	b := budget.New(1000)
	var got []common.ID
	for {
		id, st := s.Next(b)
		if st == setiter.EndOfSet {
			break
		}
		got = append(got, id)
	}
	require.Equal(t, []common.ID{1, 2, 3, 4, 5}, got)
	require.False(t, s.Overflowed())
}

func TestSortOverflow(t *testing.T) {
	child := NewAll(1, 11, common.Forward)
	s := NewSort(child, common.Forward, 3)
	b := budget.New(1000)
	_, st := s.Next(b)
	require.Equal(t, setiter.EndOfSet, st)
	require.True(t, s.Overflowed())
}

func TestBudgetExhaustionSuspendsNext(t *testing.T) {
	arr := idarray.NewSlice(idsWhere(func(id int) bool { return true }), common.Forward)
	it := NewHashEq(arr, 1, 101, common.Forward)
	b := budget.New(0)
	_, st := it.Next(b) // spends the last unit, driving remaining negative
	require.Equal(t, setiter.Ok, st)
	_, st = it.Next(b) // now exhausted: must suspend rather than keep working
	require.Equal(t, setiter.NeedMoreBudget, st)
}
