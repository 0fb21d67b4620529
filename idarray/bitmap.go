package idarray

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/googlearchive/graphd-sub006/common"
)

// Bitmap is the id-array representation backing HMAP-typed partitions
// (spec.md §4.2: "bitmap (HMAP types only)"). base is the id that bit 0
// represents; the bitmap always reads Forward, since HMAP never stores a
// reversed bitmap copy.
type Bitmap struct {
	bits *bitset.BitSet
	base common.ID
	n    uint64 // cached popcount
}

// NewBitmap wraps an existing bitset. base is the id corresponding to bit 0.
func NewBitmap(bits *bitset.BitSet, base common.ID) *Bitmap {
	return &Bitmap{bits: bits, base: base, n: bits.Count()}
}

func (b *Bitmap) Len() uint64                 { return b.n }
func (b *Bitmap) Direction() common.Direction { return common.Forward }

// Contains reports whether id is a member, independent of offset bookkeeping;
// the intersect kernel uses this to short-circuit a bitmap side without a
// linear scan of the other side's range (spec.md §4.2 "Intersect kernel").
func (b *Bitmap) Contains(id common.ID) bool {
	if id < b.base {
		return false
	}
	return b.bits.Test(uint(id - b.base))
}

func (b *Bitmap) Read(start, end uint64, buf []common.ID) int {
	if end > b.n {
		end = b.n
	}
	if start >= end {
		return 0
	}
	count := uint64(0)
	written := 0
	for i, e := b.bits.NextSet(0); e; i, e = b.bits.NextSet(i + 1) {
		if count >= end {
			break
		}
		if count >= start {
			buf[written] = b.base + common.ID(i)
			written++
		}
		count++
	}
	return written
}

func (b *Bitmap) Read1(offset uint64) common.ID {
	var out common.ID
	count := uint64(0)
	for i, e := b.bits.NextSet(0); e; i, e = b.bits.NextSet(i + 1) {
		if count == offset {
			out = b.base + common.ID(i)
			break
		}
		count++
	}
	return out
}

// Search walks set bits from lo looking for the first entry >= id (the
// bitmap representation is always Forward-sorted).
func (b *Bitmap) Search(lo, hi uint64, id common.ID) (uint64, common.ID, bool) {
	if hi > b.n {
		hi = b.n
	}
	count := uint64(0)
	for i, e := b.bits.NextSet(0); e; i, e = b.bits.NextSet(i + 1) {
		if count >= hi {
			break
		}
		if count >= lo {
			v := b.base + common.ID(i)
			if v >= id {
				return count, v, v == id
			}
		}
		count++
	}
	return hi, 0, false
}
