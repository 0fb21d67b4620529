package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/googlearchive/graphd-sub006/log"
)

// BackupRecord is one pre-image captured before a tile was dirtied past the
// current horizon (spec.md §3 "Backup horizon").
type BackupRecord struct {
	Part     uint32
	Offset   uint64
	Original []byte
}

// BackupLog appends pre-images of tiles dirtied since the last horizon and
// can replay them in reverse to roll the partitioned store back to that
// horizon (spec.md §4.1 "Backup log and checkpoint"). Records are
// snappy-compressed on their way to the append-only log file, matching how
// go-ethereum compresses ancient-store records before they hit disk.
type BackupLog struct {
	mu             sync.Mutex
	f              *os.File
	meta           *MetaStore // optional durable backing for horizon, see AttachMetaStore
	horizon        uint64
	pendingHorizon uint64
	dirtied        map[tileKey]bool // tiles already backed up since the current horizon
	records        []BackupRecord   // in-memory, for fast in-process rollback
	offsets        []int64          // file offset of each record's header, parallel to records
}

// OpenBackupLog opens (creating if necessary) the append-only log at path.
func OpenBackupLog(path string) (*BackupLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: open backup log: %w", err)
	}
	bl := &BackupLog{f: f, dirtied: make(map[tileKey]bool)}
	if err := bl.recover(); err != nil {
		f.Close()
		return nil, err
	}
	return bl, nil
}

// Close closes the underlying log file.
func (bl *BackupLog) Close() error {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return bl.f.Close()
}

// AttachMetaStore backs this log's horizon with a durable record in m: the
// log file itself only carries pre-image records and is truncated on every
// successful horizon commit, so without a separate durable marker a process
// restart has no way to recover which horizon was last committed. The
// in-memory horizon is replaced with whatever m has on file, and every
// future HorizonWriteFinish/RollbackTo writes its new horizon through to m
// before adopting it in memory.
func (bl *BackupLog) AttachMetaStore(m *MetaStore) error {
	h, err := m.Horizon()
	if err != nil {
		return fmt.Errorf("store: attach meta store: %w", err)
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.meta = m
	bl.horizon = h
	return nil
}

// recover replays the on-disk log into the in-memory index, so a process
// restart still has everything needed to roll back to the last horizon.
func (bl *BackupLog) recover() error {
	if _, err := bl.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r := bufio.NewReader(bl.f)
	var off int64
	for {
		rec, n, err := readBackupRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("store: backup log truncated at recovery, stopping replay", "err", err)
			break
		}
		bl.records = append(bl.records, rec)
		bl.offsets = append(bl.offsets, off)
		bl.dirtied[tileKey{part: rec.Part, index: rec.Offset / DefaultTileSize}] = true
		off += int64(n)
	}
	if _, err := bl.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return nil
}

// NeedsPreimage reports whether the tile at (part, index) has not yet been
// backed up since the current horizon, i.e. whether the next dirtying write
// must call Record first.
func (bl *BackupLog) NeedsPreimage(part uint32, index uint64) bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return !bl.dirtied[tileKey{part: part, index: index}]
}

// Record appends a pre-image for the tile at (part, offset) and marks it as
// backed up for the remainder of the current horizon.
func (bl *BackupLog) Record(part uint32, offset uint64, original []byte) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	key := tileKey{part: part, index: offset / DefaultTileSize}
	if bl.dirtied[key] {
		return
	}
	rec := BackupRecord{Part: part, Offset: offset, Original: original}
	off, err := bl.f.Seek(0, io.SeekCurrent)
	if err != nil {
		log.Error("store: backup log seek failed, continuing in-memory only", "err", err)
		off = -1
	} else if n, err := writeBackupRecord(bl.f, rec); err != nil {
		log.Error("store: backup log append failed, continuing in-memory only", "err", err)
	} else {
		_ = n
	}
	bl.records = append(bl.records, rec)
	bl.offsets = append(bl.offsets, off)
	bl.dirtied[key] = true
}

// HorizonWriteStart declares intent to advance the horizon to newHorizon:
// every dirty tile of each partition in parts is flushed and fsynced
// before the marker is allowed to move (spec.md §4.1 step 1).
func (bl *BackupLog) HorizonWriteStart(newHorizon uint64, tc *TileCache, parts []uint32) error {
	for _, p := range parts {
		if err := tc.FlushAll(p); err != nil {
			return fmt.Errorf("store: horizon flush of partition %d: %w", p, err)
		}
	}
	if err := bl.f.Sync(); err != nil {
		return fmt.Errorf("store: horizon fsync: %w", err)
	}
	bl.mu.Lock()
	bl.pendingHorizon = newHorizon
	bl.mu.Unlock()
	return nil
}

// HorizonWriteFinish atomically commits the horizon declared by the most
// recent HorizonWriteStart and truncates pre-images that are now older than
// it (spec.md §4.1 steps 2–3).
func (bl *BackupLog) HorizonWriteFinish() error {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if bl.meta != nil {
		if err := bl.meta.SetHorizon(bl.pendingHorizon); err != nil {
			return fmt.Errorf("store: durable horizon commit: %w", err)
		}
	}
	bl.horizon = bl.pendingHorizon
	return bl.truncateLocked()
}

// truncateLocked drops every backed-up record and lets future writes
// re-capture pre-images lazily (spec.md "backup_truncate"). Since a single
// BackupLog instance services one horizon generation at a time in this
// design, truncation simply clears the dirtied set and compacts the file.
func (bl *BackupLog) truncateLocked() error {
	bl.records = nil
	bl.offsets = nil
	bl.dirtied = make(map[tileKey]bool)
	if err := bl.f.Truncate(0); err != nil {
		return err
	}
	_, err := bl.f.Seek(0, io.SeekStart)
	return err
}

// Horizon reports the currently committed horizon.
func (bl *BackupLog) Horizon() uint64 {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return bl.horizon
}

// RollbackTo restores every record captured since horizon h in reverse
// order and truncates the log, so the logical state matches what was on
// disk at h's horizon-write (spec.md §3 "Rollback"). h must not be newer
// than the currently committed horizon.
func (bl *BackupLog) RollbackTo(h uint64, parts map[uint32]*PartitionFile) error {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if h > bl.horizon {
		return ErrHorizonStale
	}
	for i := len(bl.records) - 1; i >= 0; i-- {
		rec := bl.records[i]
		f, ok := parts[rec.Part]
		if !ok {
			return fmt.Errorf("store: rollback: %w: partition %d", ErrUnknownPart, rec.Part)
		}
		if err := f.WriteAt(rec.Original, int64(rec.Offset)); err != nil {
			return fmt.Errorf("store: rollback write: %w", err)
		}
	}
	if bl.meta != nil {
		if err := bl.meta.SetHorizon(h); err != nil {
			return fmt.Errorf("store: durable horizon rollback: %w", err)
		}
	}
	bl.horizon = h
	return bl.truncateLocked()
}

// backupRecordHeaderLen is part(4) + offset(8) + clen(4) + xxhash checksum(8)
// of the compressed payload, the on-disk guard against the "Corrupt"
// condition spec.md §7 describes for a backed-up pre-image.
const backupRecordHeaderLen = 24

func readBackupRecord(r *bufio.Reader) (BackupRecord, int, error) {
	var hdr [backupRecordHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return BackupRecord{}, 0, err
	}
	part := binary.BigEndian.Uint32(hdr[0:4])
	offset := binary.BigEndian.Uint64(hdr[4:12])
	clen := binary.BigEndian.Uint32(hdr[12:16])
	wantSum := binary.BigEndian.Uint64(hdr[16:24])
	compressed := make([]byte, clen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return BackupRecord{}, 0, io.ErrUnexpectedEOF
	}
	if gotSum := xxhash.Sum64(compressed); gotSum != wantSum {
		return BackupRecord{}, 0, fmt.Errorf("%w: backup record checksum mismatch", ErrCorrupt)
	}
	original, err := snappy.Decode(nil, compressed)
	if err != nil {
		return BackupRecord{}, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return BackupRecord{Part: part, Offset: offset, Original: original}, backupRecordHeaderLen + len(compressed), nil
}

func writeBackupRecord(w io.Writer, rec BackupRecord) (int, error) {
	compressed := snappy.Encode(nil, rec.Original)
	var hdr [backupRecordHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[0:4], rec.Part)
	binary.BigEndian.PutUint64(hdr[4:12], rec.Offset)
	binary.BigEndian.PutUint32(hdr[12:16], uint32(len(compressed)))
	binary.BigEndian.PutUint64(hdr[16:24], xxhash.Sum64(compressed))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, err
	}
	return backupRecordHeaderLen + len(compressed), nil
}
