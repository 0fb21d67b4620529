package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, part uint32) (*TileCache, *BackupLog, *PartitionFile) {
	t.Helper()
	dir := t.TempDir()
	f, err := OpenPartitionFile(filepath.Join(dir, "part.dat"), true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	bl, err := OpenBackupLog(filepath.Join(dir, "backup.log"))
	require.NoError(t, err)
	t.Cleanup(func() { bl.Close() })

	tc := NewTileCache(DefaultTileSize, 4, bl, 0)
	tc.Register(part, f)
	return tc, bl, f
}

func TestTileCacheGetAllocRoundTrip(t *testing.T) {
	tc, _, _ := newTestCache(t, 1)

	buf, h, err := tc.Alloc(1, 0, 16)
	require.NoError(t, err)
	copy(buf, []byte("hello world!!!!!"))
	require.NoError(t, tc.Free(h))

	got, h2, err := tc.Get(1, 0, 16, ReadOnly)
	require.NoError(t, err)
	require.Equal(t, "hello world!!!!!", string(got))
	require.NoError(t, tc.Free(h2))
}

func TestTileCacheRejectsSpanningRange(t *testing.T) {
	tc, _, _ := newTestCache(t, 1)
	_, _, err := tc.Get(1, DefaultTileSize-8, DefaultTileSize+8, ReadOnly)
	require.ErrorIs(t, err, ErrSpansTiles)
}

func TestTileCacheEvictsAndFlushesDirty(t *testing.T) {
	tc, _, f := newTestCache(t, 1)

	// Dirty and release tiles 0..3 (cache has exactly 4 slots), then force a
	// fifth tile to be loaded, which must evict one of the first four and
	// flush it first.
	for i := 0; i < 4; i++ {
		buf, h, err := tc.Alloc(1, uint64(i)*DefaultTileSize, uint64(i)*DefaultTileSize+4)
		require.NoError(t, err)
		buf[0] = byte(i + 1)
		require.NoError(t, tc.Free(h))
	}
	_, h, err := tc.Alloc(1, 4*DefaultTileSize, 4*DefaultTileSize+4)
	require.NoError(t, err)
	require.NoError(t, tc.Free(h))

	disk := make([]byte, 1)
	_, err = f.ReadAt(disk, 0)
	require.NoError(t, err)
	require.Equal(t, byte(1), disk[0], "evicted tile 0 must have been flushed to disk")
}

func TestBackupLogRollback(t *testing.T) {
	tc, bl, f := newTestCache(t, 1)

	buf, h, err := tc.Alloc(1, 0, 32)
	require.NoError(t, err)
	copy(buf, []byte("original state of the data......"))
	require.NoError(t, tc.Free(h))
	require.NoError(t, tc.FlushAll(1))

	require.NoError(t, bl.HorizonWriteStart(1, tc, []uint32{1}))
	require.NoError(t, bl.HorizonWriteFinish())
	require.Equal(t, uint64(1), bl.Horizon())

	buf2, h2, err := tc.Get(1, 0, 32, ReadWrite)
	require.NoError(t, err)
	copy(buf2, []byte("mutated state after the horizon"))
	require.NoError(t, tc.Free(h2))
	require.NoError(t, tc.FlushAll(1))

	onDisk := make([]byte, 32)
	_, err = f.ReadAt(onDisk, 0)
	require.NoError(t, err)
	require.Equal(t, "mutated state after the horizon.", string(onDisk))

	require.NoError(t, bl.RollbackTo(1, map[uint32]*PartitionFile{1: f}))

	restored := make([]byte, 32)
	_, err = f.ReadAt(restored, 0)
	require.NoError(t, err)
	require.Equal(t, "original state of the data......", string(restored[:32]))
}

func TestBackupLogRecoverDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "backup.log")

	bl, err := OpenBackupLog(logPath)
	require.NoError(t, err)
	bl.Record(1, 0, []byte("pre-image bytes"))
	require.NoError(t, bl.Close())

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF // flip a byte inside the compressed payload
	require.NoError(t, os.WriteFile(logPath, raw, 0644))

	reopened, err := OpenBackupLog(logPath)
	require.NoError(t, err, "recovery logs and stops replay rather than failing open")
	t.Cleanup(func() { reopened.Close() })
	require.Empty(t, reopened.records, "the corrupted record must not be replayed")
}

func TestIstoreSlotOffsetRoundTrip(t *testing.T) {
	off := int64(IstoreDataBase) + 800
	stored := IstoreEncodeSlot(off)
	got, ok := IstoreSlotOffset(stored)
	require.True(t, ok)
	require.Equal(t, off, got)

	_, ok = IstoreSlotOffset(0)
	require.False(t, ok, "a stored value of 0 must mean 'no record'")
}

func TestHMAPHeaderRoundTrip(t *testing.T) {
	h := HMAPHeader{NextEntry: 123456, BucketPageSize: 4096, NSlots: 1 << 20, LastBucketPageOffset: 8192}
	buf := EncodeHMAPHeader(h, 4096)
	got, err := DecodeHMAPHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestBackupLogHorizonDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	meta, err := OpenMetaStore(filepath.Join(dir, "meta"))
	require.NoError(t, err)
	bl, err := OpenBackupLog(filepath.Join(dir, "backup.log"))
	require.NoError(t, err)
	require.NoError(t, bl.AttachMetaStore(meta))
	require.Equal(t, uint64(0), bl.Horizon())

	f, err := OpenPartitionFile(filepath.Join(dir, "part.dat"), true)
	require.NoError(t, err)
	tc := NewTileCache(DefaultTileSize, 4, bl, 0)
	tc.Register(1, f)

	require.NoError(t, bl.HorizonWriteStart(7, tc, []uint32{1}))
	require.NoError(t, bl.HorizonWriteFinish())
	require.Equal(t, uint64(7), bl.Horizon())

	require.NoError(t, f.Close())
	require.NoError(t, bl.Close())
	require.NoError(t, meta.Close())

	meta2, err := OpenMetaStore(filepath.Join(dir, "meta"))
	require.NoError(t, err)
	t.Cleanup(func() { meta2.Close() })
	bl2, err := OpenBackupLog(filepath.Join(dir, "backup.log"))
	require.NoError(t, err)
	t.Cleanup(func() { bl2.Close() })
	require.Equal(t, uint64(0), bl2.Horizon(), "log replay alone has no durable horizon number")
	require.NoError(t, bl2.AttachMetaStore(meta2))
	require.Equal(t, uint64(7), bl2.Horizon(), "horizon survives restart via the meta store")
}

func TestPartitionFileMappedViewTracksGrowth(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenPartitionFile(filepath.Join(dir, "part.dat"), true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.WriteAt([]byte("hello"), 0))
	require.NoError(t, f.MapReadOnly())

	got, err := f.MappedBytes(0, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	_, err = f.MappedBytes(0, 10)
	require.Error(t, err, "mapped view must not see growth before Restat")

	require.NoError(t, f.WriteAt([]byte("world"), 5))
	require.NoError(t, f.Restat())

	got, err = f.MappedBytes(0, 10)
	require.NoError(t, err)
	require.Equal(t, "helloworld", string(got))
}

func TestTileCacheScanMapped(t *testing.T) {
	tc, _, f := newTestCache(t, 1)

	buf, h, err := tc.Alloc(1, 0, 16)
	require.NoError(t, err)
	copy(buf, []byte("mapped fast scan"))
	require.NoError(t, tc.Free(h))
	require.NoError(t, tc.FlushAll(1))

	require.NoError(t, f.MapReadOnly())
	require.NoError(t, tc.Stretch(1))

	got, err := tc.ScanMapped(1, 0, 16)
	require.NoError(t, err)
	require.Equal(t, "mapped fast scan", string(got))
}

func TestHMAPBucketEntryInline(t *testing.T) {
	e := HMAPBucketEntry{KeyOffset: 10, KeyLen: 4, Type: 2, Value: (1 << 39) | 77}
	require.True(t, e.IsInline())
	require.Equal(t, uint64(77), e.InlineID())

	buf := EncodeHMAPBucketEntry(e)
	got, err := DecodeHMAPBucketEntry(buf)
	require.NoError(t, err)
	require.Equal(t, e, got)
}
