package store

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// MetaStore holds the small keyed bookkeeping records that sit beside the
// large bit-exact partition files: the committed horizon, the partition
// registry, and per-partition next-id counters. Unlike the partition files
// themselves (§6, bit-exact on disk for forward compatibility and therefore
// hand-rolled), this is exactly the kind of small, frequently-rewritten
// key space go-ethereum keeps in a pebble-backed ethdb.KeyValueStore
// alongside its raw ancient-store files.
type MetaStore struct {
	db *pebble.DB
}

var (
	metaHorizonKey = []byte("horizon")
)

func partitionKey(prefix string, part uint32) []byte {
	b := make([]byte, len(prefix)+4)
	copy(b, prefix)
	binary.BigEndian.PutUint32(b[len(prefix):], part)
	return b
}

// OpenMetaStore opens (creating if necessary) the pebble database at dir.
func OpenMetaStore(dir string) (*MetaStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store: open meta store: %w", err)
	}
	return &MetaStore{db: db}, nil
}

// Close closes the underlying database.
func (m *MetaStore) Close() error { return m.db.Close() }

// Horizon returns the last committed horizon, or 0 if none has ever been
// written.
func (m *MetaStore) Horizon() (uint64, error) {
	v, closer, err := m.db.Get(metaHorizonKey)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(v), nil
}

// SetHorizon durably records the committed horizon.
func (m *MetaStore) SetHorizon(h uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return m.db.Set(metaHorizonKey, buf[:], pebble.Sync)
}

// NextID returns the next unallocated id for partition part, or 1 if none
// has ever been assigned (id 0 is reserved as "invalid" throughout the
// on-disk formats, spec.md §6).
func (m *MetaStore) NextID(part uint32) (uint64, error) {
	v, closer, err := m.db.Get(partitionKey("next-id:", part))
	if err == pebble.ErrNotFound {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(v), nil
}

// SetNextID durably advances partition part's next-id counter.
func (m *MetaStore) SetNextID(part uint32, id uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return m.db.Set(partitionKey("next-id:", part), buf[:], pebble.Sync)
}

// RegisterPartitionPath records the filesystem path backing a partition id,
// so a process restart can reopen every partition it was serving.
func (m *MetaStore) RegisterPartitionPath(part uint32, path string) error {
	return m.db.Set(partitionKey("path:", part), []byte(path), pebble.Sync)
}

// PartitionPath looks up the path registered for part.
func (m *MetaStore) PartitionPath(part uint32) (string, bool, error) {
	v, closer, err := m.db.Get(partitionKey("path:", part))
	if err == pebble.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer closer.Close()
	return string(v), true, nil
}
