package itercache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/common"
)

func TestAddAndSearch(t *testing.T) {
	c := New(common.Forward)
	c.Add(2, 1)
	c.Add(5, 3)
	c.Add(9, 2)

	require.Equal(t, 3, c.N())
	require.Equal(t, int64(6), c.TotalCost())

	idx, found := c.Search(5)
	require.True(t, found)
	require.Equal(t, 1, idx)

	idx, found = c.Search(7)
	require.False(t, found)
	require.Equal(t, 2, idx)

	tail, ok := c.Tail()
	require.True(t, ok)
	require.Equal(t, common.ID(9), tail)
}

func TestAddViolatesMonotonicityPanics(t *testing.T) {
	c := New(common.Forward)
	c.Add(5, 1)
	require.Panics(t, func() { c.Add(5, 1) })
	require.Panics(t, func() { c.Add(3, 1) })
}

func TestBackwardDirectionSearch(t *testing.T) {
	c := New(common.Backward)
	c.Add(9, 1)
	c.Add(5, 1)
	c.Add(2, 1)

	idx, found := c.Search(5)
	require.True(t, found)
	require.Equal(t, 1, idx)
}

func TestCacheEOF(t *testing.T) {
	c := New(common.Forward)
	require.False(t, c.CacheEOF())
	c.MarkEOF()
	require.True(t, c.CacheEOF())
}
