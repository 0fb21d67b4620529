package store

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// PartitionFile is the physical file backing one partition (spec.md §4.1
// "Partition"). It owns the OS file handle, the exclusive single-writer
// lock, and a cached notion of the file's logical length; TileCache reads
// and writes through it but knows nothing about file formats.
type PartitionFile struct {
	mu   sync.RWMutex
	f    *os.File
	lock *flock.Flock
	size int64
	view *MappedView // non-nil once MapReadOnly has been called
}

// OpenPartitionFile opens (creating if necessary) the file at path and
// acquires the single-writer advisory lock used throughout this tree's
// concurrency model (spec.md §5 "single-writer model"). writable controls
// whether the lock is exclusive or shared.
func OpenPartitionFile(path string, writable bool) (*PartitionFile, error) {
	flags := os.O_RDWR | os.O_CREATE
	if !writable {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	fl := flock.New(path + ".lock")
	var locked bool
	if writable {
		locked, err = fl.TryLock()
	} else {
		locked, err = fl.TryRLock()
	}
	if err != nil || !locked {
		f.Close()
		return nil, fmt.Errorf("store: lock %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		fl.Unlock()
		return nil, err
	}
	return &PartitionFile{f: f, lock: fl, size: fi.Size()}, nil
}

// Close releases the file handle and its lock.
func (p *PartitionFile) Close() error {
	p.lock.Unlock()
	if p.view != nil {
		if err := p.view.Close(); err != nil {
			return err
		}
	}
	return p.f.Close()
}

// MapReadOnly establishes a memory-mapped read-only view over the file's
// current extent, for a read replica's bulk fast-forward scan after a
// remote horizon advance instead of paying a syscall per tile (spec.md
// §4.1 "stretch").
func (p *PartitionFile) MapReadOnly() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, err := NewMappedView(p.f)
	if err != nil {
		return fmt.Errorf("store: map %w", err)
	}
	p.view = v
	return nil
}

// MappedBytes returns the mapped range [lo, hi). MapReadOnly must have been
// called first, and Restat (which remaps) after the backing file has grown.
func (p *PartitionFile) MappedBytes(lo, hi uint64) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.view == nil {
		return nil, fmt.Errorf("store: MappedBytes called before MapReadOnly")
	}
	if hi > p.view.Len() {
		return nil, fmt.Errorf("store: mapped view covers %d bytes, wanted up to %d", p.view.Len(), hi)
	}
	return p.view.Bytes(lo, hi), nil
}

// Size reports the last-known logical length of the file.
func (p *PartitionFile) Size() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint64(p.size)
}

// ReadAt reads len(buf) bytes starting at off, the way (*os.File).ReadAt
// does; the part of buf past EOF is zero-filled so callers reading a
// just-allocated tile don't have to special-case a short file.
func (p *PartitionFile) ReadAt(buf []byte, off int64) (int, error) {
	n, err := p.f.ReadAt(buf, off)
	if err == io.EOF && n < len(buf) {
		// Treat a short read purely due to EOF as zero-fill, consistent with
		// a tile that was allocated but never flushed.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return len(buf), nil
	}
	return n, err
}

// WriteAt writes buf at off and updates the cached logical size if it grew.
func (p *PartitionFile) WriteAt(buf []byte, off int64) error {
	if _, err := p.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	p.mu.Lock()
	if end := off + int64(len(buf)); end > p.size {
		p.size = end
	}
	p.mu.Unlock()
	return nil
}

// Truncate grows or shrinks the file to exactly n bytes.
func (p *PartitionFile) Truncate(n uint64) error {
	if err := p.f.Truncate(int64(n)); err != nil {
		return err
	}
	p.mu.Lock()
	p.size = int64(n)
	p.mu.Unlock()
	return nil
}

// Sync fsyncs the underlying file.
func (p *PartitionFile) Sync() error { return p.f.Sync() }

// Restat re-reads the on-disk length, for a read replica whose peer grew the
// file out from under it (spec.md §4.1 "stretch"). If a mapped view is
// active it is re-mapped to the new length so MappedBytes sees the growth.
func (p *PartitionFile) Restat() error {
	fi, err := p.f.Stat()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = fi.Size()
	if p.view != nil {
		if err := p.view.Remap(p.f); err != nil {
			return fmt.Errorf("store: remap on stretch: %w", err)
		}
	}
	return nil
}
