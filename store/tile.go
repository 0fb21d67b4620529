package store

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/googlearchive/graphd-sub006/log"
	"github.com/googlearchive/graphd-sub006/metrics"
)

// Mode selects whether a tile is being acquired for reading or for mutation.
type Mode uint8

const (
	ReadOnly Mode = iota
	ReadWrite
)

// TileHandle is an opaque, small, process-pool-local reference to a pinned
// tile (spec.md §4.1 "Tile handle"). The zero value is never valid.
type TileHandle uint32

type tileKey struct {
	part  uint32
	index uint64
}

type tileSlot struct {
	key   tileKey
	data  []byte
	rc    int32
	dirty bool
	valid bool
}

var (
	tileHitMeter    = metrics.NewRegisteredMeter("store/tile/hit")
	tileMissMeter   = metrics.NewRegisteredMeter("store/tile/miss")
	tileEvictMeter  = metrics.NewRegisteredMeter("store/tile/evict")
	tileAllocMeter  = metrics.NewRegisteredMeter("store/tile/alloc")
)

// TileCache maps byte ranges of registered partition files onto a bounded
// pool of reference-counted, fixed-size tiles (spec.md §4.1). Eviction is
// LRU among tiles with rc == 0; dirty tiles are flushed to their backing
// file before eviction. A fastcache instance optionally holds the bytes of
// recently-evicted clean tiles so a cold re-Get skips the pread, mirroring
// the "GC friendly memory cache" role fastcache plays for clean trie nodes
// in triedb/pathdb/disklayer.go.
type TileCache struct {
	mu       sync.Mutex
	tileSize int
	maxSlots int

	slots   []tileSlot
	byKey   map[tileKey]int // stores the slot index; a key with no entry is absent
	lru     *list.List
	lruElem map[int]*list.Element
	free    []int // slot indices never yet used

	files  map[uint32]*PartitionFile
	backup *BackupLog
	clean  *fastcache.Cache
}

// NewTileCache creates a cache with room for maxSlots tiles of tileSize
// bytes each, backed by bl for pre-image capture and an optional clean-bytes
// cache of cleanBytes capacity (0 disables it).
func NewTileCache(tileSize, maxSlots int, bl *BackupLog, cleanBytes int) *TileCache {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	tc := &TileCache{
		tileSize: tileSize,
		maxSlots: maxSlots,
		slots:    make([]tileSlot, maxSlots),
		byKey:    make(map[tileKey]int),
		lru:      list.New(),
		lruElem:  make(map[int]*list.Element),
		files:    make(map[uint32]*PartitionFile),
		backup:   bl,
	}
	for i := 0; i < maxSlots; i++ {
		tc.free = append(tc.free, i)
	}
	if cleanBytes > 0 {
		tc.clean = fastcache.New(cleanBytes)
	}
	return tc
}

// Register associates a partition id with the file that backs it. Get/Alloc
// calls against that id will not succeed until it has been registered.
func (tc *TileCache) Register(part uint32, f *PartitionFile) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.files[part] = f
}

func (tc *TileCache) tileIndex(byteOffset uint64) uint64 {
	return byteOffset / uint64(tc.tileSize)
}

// Align expands [lo, hi) to the enclosing tile boundaries when the object
// fits in a single tile, so the caller's subsequent Get never spans a tile
// edge (spec.md §4.1 "align").
func (tc *TileCache) Align(lo, hi uint64) (uint64, uint64) {
	if hi <= lo || int(hi-lo) > tc.tileSize {
		return lo, hi
	}
	ts := uint64(tc.tileSize)
	return (lo / ts) * ts, (lo/ts + 1) * ts
}

func cleanCacheKey(buf []byte, part uint32, index uint64) []byte {
	buf = buf[:0]
	buf = append(buf,
		byte(part>>24), byte(part>>16), byte(part>>8), byte(part),
		byte(index>>56), byte(index>>48), byte(index>>40), byte(index>>32),
		byte(index>>24), byte(index>>16), byte(index>>8), byte(index))
	return buf
}

// Get acquires the tile covering [byteLo, byteHi), which must not span a
// tile boundary (call Align first if the object might). Returns the slice
// of the tile's bytes corresponding to [byteLo, byteHi) and a handle that
// must eventually be passed to Free. A ReadWrite acquisition of a tile that
// has not been dirtied since the current horizon records its pre-image to
// the backup log first (spec.md §4.1 "Tile handle... mode is read-only or
// read-write; writable gets first record the pre-image to the backup log if
// past horizon").
func (tc *TileCache) Get(part uint32, byteLo, byteHi uint64, mode Mode) ([]byte, TileHandle, error) {
	if byteHi <= byteLo {
		return nil, 0, fmt.Errorf("store: empty or inverted range [%d,%d)", byteLo, byteHi)
	}
	index := tc.tileIndex(byteLo)
	if tc.tileIndex(byteHi-1) != index {
		return nil, 0, ErrSpansTiles
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	f, ok := tc.files[part]
	if !ok {
		return nil, 0, ErrUnknownPart
	}

	key := tileKey{part: part, index: index}
	slotIdx, hit := tc.lookupLocked(key)
	if !hit {
		tileMissMeter.Mark(1)
		var err error
		slotIdx, err = tc.loadLocked(key, f)
		if err != nil {
			return nil, 0, err
		}
	} else {
		tileHitMeter.Mark(1)
	}

	slot := &tc.slots[slotIdx]
	slot.rc++
	tc.pinLocked(slotIdx)

	if mode == ReadWrite {
		if tc.backup != nil && tc.backup.NeedsPreimage(part, index) {
			preimage := append([]byte(nil), slot.data...)
			tc.backup.Record(part, index*uint64(tc.tileSize), preimage)
		}
		slot.dirty = true
	}

	tileBase := index * uint64(tc.tileSize)
	lo, hi := byteLo-tileBase, byteHi-tileBase
	return slot.data[lo:hi], TileHandle(slotIdx + 1), nil
}

// Alloc extends the logical size of part to cover [byteLo, byteHi), zero
// filling any newly created tile bytes, and returns a writable slice over
// the requested range exactly like Get(..., ReadWrite) would.
func (tc *TileCache) Alloc(part uint32, byteLo, byteHi uint64) ([]byte, TileHandle, error) {
	tc.mu.Lock()
	f, ok := tc.files[part]
	tc.mu.Unlock()
	if !ok {
		return nil, 0, ErrUnknownPart
	}
	if byteHi > f.Size() {
		if err := f.Truncate(byteHi); err != nil {
			return nil, 0, err
		}
	}
	tileAllocMeter.Mark(1)
	return tc.Get(part, byteLo, byteHi, ReadWrite)
}

// Free releases one reference on h. Once a tile's refcount reaches zero it
// becomes eligible for LRU eviction; freeing never itself blocks or flushes
// (spec.md §4.1 "free... pure bookkeeping, never blocks").
func (tc *TileCache) Free(h TileHandle) error {
	if h == 0 {
		return fmt.Errorf("store: Free called with zero handle")
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	idx := int(h) - 1
	if idx < 0 || idx >= len(tc.slots) || !tc.slots[idx].valid {
		return fmt.Errorf("store: Free called with stale handle")
	}
	slot := &tc.slots[idx]
	if slot.rc <= 0 {
		return fmt.Errorf("store: Free called on unpinned tile")
	}
	slot.rc--
	if slot.rc == 0 {
		tc.unpinLocked(idx)
	}
	return nil
}

// Stretch reconciles the cache's view of part's logical length with what is
// actually on disk, for a read replica catching up after a remote write
// (spec.md §4.1 "stretch").
func (tc *TileCache) Stretch(part uint32) error {
	tc.mu.Lock()
	f, ok := tc.files[part]
	tc.mu.Unlock()
	if !ok {
		return ErrUnknownPart
	}
	return f.Restat()
}

// ScanMapped reads [byteLo, byteHi) directly from part's memory-mapped
// view, bypassing tile allocation entirely: the fast-forward scan a read
// replica runs after Stretch calls this per range instead of Get per tile
// (spec.md §4.1 "stretch"). The partition's PartitionFile.MapReadOnly must
// have been called first.
func (tc *TileCache) ScanMapped(part uint32, byteLo, byteHi uint64) ([]byte, error) {
	tc.mu.Lock()
	f, ok := tc.files[part]
	tc.mu.Unlock()
	if !ok {
		return nil, ErrUnknownPart
	}
	return f.MappedBytes(byteLo, byteHi)
}

// lookupLocked, loadLocked, pinLocked, unpinLocked, evictLocked implement
// the LRU/refcount bookkeeping; all require tc.mu held.

func (tc *TileCache) lookupLocked(key tileKey) (int, bool) {
	idx, ok := tc.byKey[key]
	if !ok {
		return 0, false
	}
	return idx, true
}

func (tc *TileCache) loadLocked(key tileKey, f *PartitionFile) (int, error) {
	slotIdx, err := tc.obtainSlotLocked()
	if err != nil {
		return 0, err
	}
	data := make([]byte, tc.tileSize)
	base := key.index * uint64(tc.tileSize)
	if base < f.Size() {
		loadedFromClean := false
		if tc.clean != nil {
			ck := cleanCacheKey(make([]byte, 0, 16), key.part, key.index)
			if got := tc.clean.Get(nil, ck); len(got) == tc.tileSize {
				copy(data, got)
				loadedFromClean = true
			}
		}
		if !loadedFromClean {
			if n, err := f.ReadAt(data, int64(base)); err != nil && n == 0 {
				return 0, err
			}
		}
	}
	tc.slots[slotIdx] = tileSlot{key: key, data: data, valid: true}
	tc.byKey[key] = slotIdx
	return slotIdx, nil
}

func (tc *TileCache) obtainSlotLocked() (int, error) {
	if len(tc.free) > 0 {
		idx := tc.free[len(tc.free)-1]
		tc.free = tc.free[:len(tc.free)-1]
		return idx, nil
	}
	// Evict the least-recently-used unpinned tile.
	for e := tc.lru.Front(); e != nil; e = e.Next() {
		idx := e.Value.(int)
		if tc.slots[idx].rc == 0 {
			if err := tc.evictLocked(idx); err != nil {
				return 0, err
			}
			return idx, nil
		}
	}
	return 0, fmt.Errorf("store: tile cache exhausted, every tile pinned")
}

func (tc *TileCache) evictLocked(idx int) error {
	slot := &tc.slots[idx]
	if slot.dirty {
		f := tc.files[slot.key.part]
		base := int64(slot.key.index) * int64(tc.tileSize)
		if err := f.WriteAt(slot.data, base); err != nil {
			return err
		}
		log.Debug("store: flushed dirty tile on eviction", "part", slot.key.part, "tile", slot.key.index)
	}
	if tc.clean != nil {
		ck := cleanCacheKey(make([]byte, 0, 16), slot.key.part, slot.key.index)
		tc.clean.Set(ck, slot.data)
	}
	delete(tc.byKey, slot.key)
	if el, ok := tc.lruElem[idx]; ok {
		tc.lru.Remove(el)
		delete(tc.lruElem, idx)
	}
	tileEvictMeter.Mark(1)
	slot.valid = false
	slot.dirty = false
	return nil
}

func (tc *TileCache) pinLocked(idx int) {
	if el, ok := tc.lruElem[idx]; ok {
		tc.lru.Remove(el)
		delete(tc.lruElem, idx)
	}
}

func (tc *TileCache) unpinLocked(idx int) {
	el := tc.lru.PushBack(idx)
	tc.lruElem[idx] = el
}

// FlushAll writes every dirty tile belonging to part back to disk without
// evicting it, used by horizon_write_start (spec.md §4.1 "Backup log and
// checkpoint").
func (tc *TileCache) FlushAll(part uint32) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	f, ok := tc.files[part]
	if !ok {
		return ErrUnknownPart
	}
	for i := range tc.slots {
		slot := &tc.slots[i]
		if slot.valid && slot.key.part == part && slot.dirty {
			base := int64(slot.key.index) * int64(tc.tileSize)
			if err := f.WriteAt(slot.data, base); err != nil {
				return err
			}
			slot.dirty = false
		}
	}
	return f.Sync()
}
