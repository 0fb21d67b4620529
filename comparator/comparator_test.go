package comparator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/setiter"
)

func sampleNumeric() *Numeric {
	pairs := map[common.ID]int64{
		1: 10, 2: 20, 3: 10, 4: 30, 5: 20, 6: 5, 7: 40,
	}
	return NewNumeric(pairs, 2)
}

func TestCompareOrdersValues(t *testing.T) {
	n := sampleNumeric()
	require.Equal(t, Less, n.Compare(NumericValue(1), NumericValue(2)))
	require.Equal(t, Equal, n.Compare(NumericValue(5), NumericValue(5)))
	require.Equal(t, Greater, n.Compare(NumericValue(9), NumericValue(2)))
}

func TestMakeEqualityIteratorFindsAllMatchingIDs(t *testing.T) {
	n := sampleNumeric()
	it, ok := n.MakeEqualityIterator(NumericValue(20), 0, 100, common.Forward)
	require.True(t, ok)

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
	require.Equal(t, []common.ID{2, 5}, got)
}

func TestMakeEqualityIteratorMissValueIsNull(t *testing.T) {
	n := sampleNumeric()
	it, ok := n.MakeEqualityIterator(NumericValue(999), 0, 100, common.Forward)
	require.True(t, ok)
	_, st := it.Next(budget.New(100))
	require.Equal(t, setiter.EndOfSet, st)
}

func TestMakeRangeIterator(t *testing.T) {
	n := sampleNumeric()
	it, ok := n.MakeRangeIterator(NumericValue(10), NumericValue(30), 0, 100, common.Forward)
	require.True(t, ok)

	b := budget.New(1000)
	var got []common.ID
	for {
		id, st := it.Next(b)
		if st == setiter.EndOfSet {
			break
		}
		got = append(got, id)
	}
	require.Equal(t, []common.ID{1, 2, 3, 5}, got)
}

func TestVRangeWalksAllBinsForward(t *testing.T) {
	n := sampleNumeric()
	vr := n.VRange()
	vr.Start(common.Forward)

	b := budget.New(1000)
	var total int
	for {
		bin, ok := vr.ItNext(b)
		if !ok {
			break
		}
		for {
			_, st := bin.Next(b)
			if st == setiter.EndOfSet {
				break
			}
			total++
		}
	}
	require.Equal(t, len(n.entries), total)
}

func TestVRangeFreezeThawResumesPosition(t *testing.T) {
	n := sampleNumeric()
	vr := n.VRange().(*numericVRange)
	vr.Start(common.Forward)

	b := budget.New(1000)
	_, ok := vr.ItNext(b)
	require.True(t, ok)

	frozen := vr.Freeze()

	resumed := n.VRange().(*numericVRange)
	require.NoError(t, resumed.Thaw(frozen))
	require.Equal(t, vr.pos, resumed.pos)
	require.Equal(t, vr.dir, resumed.dir)
}

func TestValueInRange(t *testing.T) {
	n := sampleNumeric()
	vr := n.VRange()
	require.True(t, vr.ValueInRange(NumericValue(20)))
	require.False(t, vr.ValueInRange(NumericValue(1000)))
}
