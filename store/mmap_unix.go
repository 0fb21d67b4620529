//go:build unix

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedView is a read-only memory-mapped window over a partition file,
// used by read replicas to scan a partition's full contents without paying
// a syscall per tile (spec.md §4.1: the "mapped" half of "the tiled/mapped
// storage layer"). It is deliberately kept separate from TileCache, whose
// refcounted tiles remain the authoritative path for reads mixed with
// writes; MappedView exists for bulk, read-only traversal such as the fast
// forward a replica performs after a remote horizon advance.
type MappedView struct {
	data []byte
}

// NewMappedView maps the full current extent of f read-only.
func NewMappedView(f *os.File) (*MappedView, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return &MappedView{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("store: mmap: %w", err)
	}
	return &MappedView{data: data}, nil
}

// Bytes returns the mapped range [lo, hi).
func (v *MappedView) Bytes(lo, hi uint64) []byte {
	return v.data[lo:hi]
}

// Len reports the mapped length.
func (v *MappedView) Len() uint64 { return uint64(len(v.data)) }

// Remap re-maps to the file's current length, for Stretch-driven catch-up
// after the backing file has grown.
func (v *MappedView) Remap(f *os.File) error {
	if err := v.Close(); err != nil {
		return err
	}
	fresh, err := NewMappedView(f)
	if err != nil {
		return err
	}
	*v = *fresh
	return nil
}

// Close unmaps the view.
func (v *MappedView) Close() error {
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	return err
}
