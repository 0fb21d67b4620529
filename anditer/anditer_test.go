package anditer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/cursor"
	"github.com/googlearchive/graphd-sub006/idarray"
	"github.com/googlearchive/graphd-sub006/leafiter"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// idsWhere mirrors the synthetic 100-primitive dataset from spec.md §8:
// id in 1..=100, typeguid = id%3, left = id%5.
func idsWhere(pred func(id int) bool) []common.ID {
	var out []common.ID
	for id := 1; id <= 100; id++ {
		if pred(id) {
			out = append(out, common.ID(id))
		}
	}
	return out
}

func typeguidEq(v int) []common.ID { return idsWhere(func(id int) bool { return id%3 == v }) }
func leftEq(v int) []common.ID     { return idsWhere(func(id int) bool { return id%5 == v }) }

// ordered returns ids sorted to match dir, since idarray.Slice requires
// callers to honor the monotonicity invariant themselves.
func ordered(ids []common.ID, dir common.Direction) []common.ID {
	if dir == common.Forward {
		return ids
	}
	out := make([]common.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func drainAll(t *testing.T, it setiter.Iterator, b *budget.Budget) []common.ID {
	t.Helper()
	var out []common.ID
	for {
		id, st := it.Next(b)
		if st == setiter.EndOfSet {
			return out
		}
		require.Equal(t, setiter.Ok, st)
		out = append(out, id)
	}
}

func TestScenario1PureIntersection(t *testing.T) {
	typeguid1 := idarray.NewSlice(typeguidEq(1), common.Forward)
	left2 := idarray.NewSlice(leftEq(2), common.Forward)

	and := New(1, 101, common.Forward)
	and.AddSub(leafiter.NewHashEq(typeguid1, 1, 101, common.Forward))
	and.AddSub(leafiter.NewLinkage(left2, 1, 101, common.Forward, nil, true))
	and.Commit()

	got := drainAll(t, and, budget.New(100000))
	require.Equal(t, []common.ID{7, 22, 37, 52, 67, 82, 97}, got)
}

func TestScenario2SingleElementAfterCommit(t *testing.T) {
	typeguid1 := idarray.NewSlice(typeguidEq(1), common.Forward)

	and := New(1, 101, common.Forward)
	and.AddSub(leafiter.NewHashEq(typeguid1, 1, 101, common.Forward))
	and.AddSub(leafiter.NewAll(1, 101, common.Forward))
	and.Commit()

	require.Len(t, and.subs, 1, "ALL must be removed once the hash-eq sub is tractable")

	b := budget.New(1000)
	var got []common.ID
	for i := 0; i < 3; i++ {
		id, st := and.Next(b)
		require.Equal(t, setiter.Ok, st)
		got = append(got, id)
	}
	require.Equal(t, []common.ID{1, 4, 7}, got)
}

func TestScenario3BackwardFind(t *testing.T) {
	typeguid1 := idarray.NewSlice(ordered(typeguidEq(1), common.Backward), common.Backward)
	left2 := idarray.NewSlice(ordered(leftEq(2), common.Backward), common.Backward)

	and := New(1, 101, common.Backward)
	and.AddSub(leafiter.NewHashEq(typeguid1, 1, 101, common.Backward))
	and.AddSub(leafiter.NewLinkage(left2, 1, 101, common.Backward, nil, true))
	and.Commit()

	b := budget.New(100000)
	id, st := and.Find(50, b)
	require.Equal(t, setiter.Ok, st)
	require.Equal(t, common.ID(37), id)
}

func TestScenario4FreezeThawMidTraversal(t *testing.T) {
	typeguid1 := idarray.NewSlice(typeguidEq(1), common.Forward)
	left2 := idarray.NewSlice(leftEq(2), common.Forward)

	and := New(1, 101, common.Forward)
	and.AddSub(leafiter.NewHashEq(typeguid1, 1, 101, common.Forward))
	and.AddSub(leafiter.NewLinkage(left2, 1, 101, common.Forward, nil, true))
	and.Commit()

	full := []common.ID{7, 22, 37, 52, 67, 82, 97}

	b := budget.New(100000)
	var consumed []common.ID
	for i := 0; i < 3; i++ {
		id, st := and.Next(b)
		require.Equal(t, setiter.Ok, st)
		consumed = append(consumed, id)
	}
	require.Equal(t, full[:3], consumed)

	frozen := and.Freeze(setiter.FreezeDefault)
	thawedIt, err := cursor.Thaw(frozen)
	require.NoError(t, err)

	rest := drainAll(t, thawedIt, budget.New(100000))
	consumed = append(consumed, rest...)
	require.Equal(t, full, consumed)
	require.Len(t, consumed, len(full))
}

func TestScenario5SlowCheckBeforeStatistics(t *testing.T) {
	typeguid1 := idarray.NewSlice(typeguidEq(1), common.Forward)
	left2 := idarray.NewSlice(leftEq(2), common.Forward)

	and := New(1, 101, common.Forward)
	and.AddSub(leafiter.NewHashEq(typeguid1, 1, 101, common.Forward))
	and.AddSub(leafiter.NewLinkage(left2, 1, 101, common.Forward, nil, true))
	and.Commit()

	require.False(t, and.StatisticsDone())

	b := budget.New(1000)
	cst := and.Check(22, b)
	require.Equal(t, setiter.Yes, cst)
}

func TestNullPropagation(t *testing.T) {
	and := New(1, 101, common.Forward)
	and.AddSub(leafiter.NewNull(common.Forward))
	and.AddSub(leafiter.NewAll(1, 101, common.Forward))
	and.Commit()

	id, st := and.Next(budget.New(100))
	require.Equal(t, setiter.EndOfSet, st)
	require.Zero(t, id)
}

func TestEmptyRangeBecomesNull(t *testing.T) {
	and := New(50, 10, common.Forward) // low >= high
	and.AddSub(leafiter.NewAll(0, 1000, common.Forward))
	and.Commit()
	require.Equal(t, setiter.KindNull, and.subs[0].Kind())
}
