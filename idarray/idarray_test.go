package idarray

import (
	"path/filepath"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/store"
)

func ids(xs ...uint64) []common.ID {
	out := make([]common.ID, len(xs))
	for i, x := range xs {
		out[i] = common.ID(x)
	}
	return out
}

func TestSingletonSearch(t *testing.T) {
	s := NewSingleton(42, common.Forward)
	require.Equal(t, uint64(1), s.Len())

	off, actual, exact := s.Search(0, 1, 42)
	require.Zero(t, off)
	require.Equal(t, common.ID(42), actual)
	require.True(t, exact)

	_, _, exact = s.Search(0, 1, 43)
	require.False(t, exact)
}

func TestSliceSearchForwardAndBackward(t *testing.T) {
	fwd := NewSlice(ids(1, 3, 5, 7, 9), common.Forward)
	off, actual, exact := fwd.Search(0, 5, 5)
	require.Equal(t, uint64(2), off)
	require.Equal(t, common.ID(5), actual)
	require.True(t, exact)

	off, actual, exact = fwd.Search(0, 5, 4)
	require.Equal(t, uint64(2), off)
	require.Equal(t, common.ID(5), actual)
	require.False(t, exact)

	back := NewSlice(ids(9, 7, 5, 3, 1), common.Backward)
	off, actual, exact = back.Search(0, 5, 5)
	require.Equal(t, uint64(2), off)
	require.Equal(t, common.ID(5), actual)
	require.True(t, exact)
}

func TestPackedRoundTrip(t *testing.T) {
	in := ids(1, 2, 1<<33-1, 500000)
	buf := EncodePacked(in)
	require.Len(t, buf, len(in)*PackedWidth)
	require.Equal(t, in, DecodePacked(buf))
}

func TestBitmapReadAndSearch(t *testing.T) {
	bits := bitset.New(100)
	for _, v := range []uint{2, 5, 10, 50} {
		bits.Set(v)
	}
	bm := NewBitmap(bits, 100) // base 100: members are ids 102,105,110,150

	require.Equal(t, uint64(4), bm.Len())
	require.True(t, bm.Contains(105))
	require.False(t, bm.Contains(106))

	out := make([]common.ID, 4)
	n := bm.Read(0, 4, out)
	require.Equal(t, 4, n)
	require.Equal(t, ids(102, 105, 110, 150), out)

	off, actual, exact := bm.Search(0, 4, 110)
	require.Equal(t, uint64(2), off)
	require.Equal(t, common.ID(110), actual)
	require.True(t, exact)
}

func TestIntersectWalkPlain(t *testing.T) {
	a := NewSlice(ids(1, 2, 3, 5, 8, 13), common.Forward)
	b := NewSlice(ids(2, 3, 4, 8, 9), common.Forward)
	buf := make([]common.ID, 10)
	n := Intersect(a, 0, a.Len(), b, 0, b.Len(), buf)
	require.Equal(t, ids(2, 3, 8), buf[:n])
}

func TestIntersectBitmapShortCircuit(t *testing.T) {
	bits := bitset.New(20)
	for _, v := range []uint{1, 4, 9} {
		bits.Set(v)
	}
	bm := NewBitmap(bits, 0) // members: 1,4,9
	other := NewSlice(ids(0, 1, 2, 3, 4, 5, 9), common.Forward)

	buf := make([]common.ID, 10)
	n := Intersect(bm, 0, bm.Len(), other, 0, other.Len(), buf)
	require.ElementsMatch(t, ids(1, 4, 9), buf[:n])
}

func newTestChainCache(t *testing.T) (*store.TileCache, uint32) {
	t.Helper()
	dir := t.TempDir()
	f, err := store.OpenPartitionFile(filepath.Join(dir, "gmap.dat"), true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	bl, err := store.OpenBackupLog(filepath.Join(dir, "backup.log"))
	require.NoError(t, err)
	t.Cleanup(func() { bl.Close() })

	tc := store.NewTileCache(store.DefaultTileSize, 4, bl, 0)
	tc.Register(1, f)
	return tc, 1
}

func TestGMapChainSingleNode(t *testing.T) {
	tc, part := newTestChainCache(t)

	encoded := EncodeGMapChain(ids(10, 20, 30))
	buf, h, err := tc.Alloc(part, 0, uint64(len(encoded)))
	require.NoError(t, err)
	copy(buf, encoded)
	require.NoError(t, tc.Free(h))

	chain, err := OpenGMapChain(tc, part, 0, common.Forward)
	require.NoError(t, err)
	require.Equal(t, uint64(3), chain.Len())
	require.Equal(t, ids(10, 20, 30), ReadAll(chain))

	off, actual, exact := chain.Search(0, 3, 20)
	require.Equal(t, uint64(1), off)
	require.Equal(t, common.ID(20), actual)
	require.True(t, exact)
}
