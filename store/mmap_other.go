//go:build !unix

package store

import (
	"fmt"
	"os"
)

// MappedView on non-Unix platforms falls back to reading the file content
// into an ordinary heap buffer; it offers the same read-only Bytes/Len
// contract without relying on the mmap syscall.
type MappedView struct {
	data []byte
}

func NewMappedView(f *os.File) (*MappedView, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, fi.Size())
	if _, err := f.ReadAt(buf, 0); err != nil && fi.Size() > 0 {
		return nil, fmt.Errorf("store: read fallback view: %w", err)
	}
	return &MappedView{data: buf}, nil
}

func (v *MappedView) Bytes(lo, hi uint64) []byte { return v.data[lo:hi] }
func (v *MappedView) Len() uint64                { return uint64(len(v.data)) }

func (v *MappedView) Remap(f *os.File) error {
	fresh, err := NewMappedView(f)
	if err != nil {
		return err
	}
	*v = *fresh
	return nil
}

func (v *MappedView) Close() error { return nil }
