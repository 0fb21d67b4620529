// Package idarray implements the uniform sorted-ID reader (spec.md §4.2)
// over the four physical id-set representations the store can produce:
// a singleton inlined in a header, a short sorted slice (decoded from a
// bucket page), a GMAP chain, or a bitmap (HMAP types only).
package idarray

import (
	"sort"

	"github.com/googlearchive/graphd-sub006/common"
)

// IDArray is the uniform read-only view every representation below
// implements. The stored sequence is strictly monotone in Direction.
type IDArray interface {
	// Len reports the number of ids in the array.
	Len() uint64

	// Direction reports the array's storage order.
	Direction() common.Direction

	// Read decodes ids in [start, end) into buf, returning how many were
	// written; end is silently clipped to Len().
	Read(start, end uint64, buf []common.ID) int

	// Read1 decodes the single id at offset.
	Read1(offset uint64) common.ID

	// Search returns the offset of the first entry whose value is >= id
	// (Forward) or <= id (Backward), restricted to [lo, hi). If the value
	// found equals id exactly, exact is true.
	Search(lo, hi uint64, id common.ID) (offset uint64, actual common.ID, exact bool)
}

// PackedWidth is the on-disk width of one packed id, per spec.md §6's use of
// 5-byte (40-bit) fields for 34-bit ids throughout the formats.
const PackedWidth = 5

// EncodePacked serializes ids as consecutive 5-byte big-endian values.
func EncodePacked(ids []common.ID) []byte {
	buf := make([]byte, len(ids)*PackedWidth)
	for i, id := range ids {
		putPacked(buf[i*PackedWidth:], uint64(id))
	}
	return buf
}

// DecodePacked is the inverse of EncodePacked.
func DecodePacked(buf []byte) []common.ID {
	n := len(buf) / PackedWidth
	ids := make([]common.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = common.ID(getPacked(buf[i*PackedWidth:]))
	}
	return ids
}

func putPacked(b []byte, v uint64) {
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

func getPacked(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}

// Singleton is the id-array representation for a header-inlined singleton
// value (spec.md §4.2 "singleton inlined in a header").
type Singleton struct {
	ID  common.ID
	dir common.Direction
}

// NewSingleton wraps a single id.
func NewSingleton(id common.ID, dir common.Direction) Singleton { return Singleton{ID: id, dir: dir} }

func (s Singleton) Len() uint64                { return 1 }
func (s Singleton) Direction() common.Direction { return s.dir }

func (s Singleton) Read(start, end uint64, buf []common.ID) int {
	if start != 0 || end == 0 || len(buf) == 0 {
		return 0
	}
	buf[0] = s.ID
	return 1
}

func (s Singleton) Read1(offset uint64) common.ID { return s.ID }

func (s Singleton) Search(lo, hi uint64, id common.ID) (uint64, common.ID, bool) {
	if lo >= hi || lo > 0 {
		return hi, 0, false
	}
	if s.dir == common.Backward {
		if id >= s.ID {
			return 0, s.ID, id == s.ID
		}
		return hi, 0, false
	}
	if id <= s.ID {
		return 0, s.ID, id == s.ID
	}
	return hi, 0, false
}

// Slice is an in-memory sorted id array: the decoded form of a short bucket
// page, and the representation FIXED/sort-wrapper iterators materialize
// results into (spec.md §4.5.1 step 6, §4.6).
type Slice struct {
	ids []common.ID
	dir common.Direction
}

// NewSlice wraps a pre-sorted slice. Callers own the monotonicity invariant.
func NewSlice(ids []common.ID, dir common.Direction) *Slice {
	return &Slice{ids: ids, dir: dir}
}

func (s *Slice) Len() uint64                 { return uint64(len(s.ids)) }
func (s *Slice) Direction() common.Direction { return s.dir }

func (s *Slice) Read(start, end uint64, buf []common.ID) int {
	if end > uint64(len(s.ids)) {
		end = uint64(len(s.ids))
	}
	if start >= end {
		return 0
	}
	n := copy(buf, s.ids[start:end])
	return n
}

func (s *Slice) Read1(offset uint64) common.ID { return s.ids[offset] }

func (s *Slice) Search(lo, hi uint64, id common.ID) (uint64, common.ID, bool) {
	if hi > uint64(len(s.ids)) {
		hi = uint64(len(s.ids))
	}
	if lo >= hi {
		return hi, 0, false
	}
	window := s.ids[lo:hi]
	var idx int
	if s.dir == common.Backward {
		// window is descending; find first entry <= id.
		idx = sort.Search(len(window), func(i int) bool { return window[i] <= id })
	} else {
		idx = sort.Search(len(window), func(i int) bool { return window[i] >= id })
	}
	if idx == len(window) {
		return hi, 0, false
	}
	off := lo + uint64(idx)
	return off, window[idx], window[idx] == id
}

// ReadAll materializes the full contents of a (typically small) IDArray.
func ReadAll(a IDArray) []common.ID {
	n := a.Len()
	out := make([]common.ID, n)
	a.Read(0, n, out)
	return out
}

// DecodeBucketPage decodes a short bucket-page byte slice (a run of
// PackedWidth-byte big-endian ids) into a Slice, the representation a GMAP
// index table's "short array" leaves point at directly (spec.md §4.2).
func DecodeBucketPage(buf []byte, dir common.Direction) *Slice {
	return NewSlice(DecodePacked(buf), dir)
}
