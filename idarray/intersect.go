package idarray

import "github.com/googlearchive/graphd-sub006/common"

// Intersect merges the sorted ranges a[aLo:aHi) and b[bLo:bHi) into buf,
// returning the number of common ids written (spec.md §4.2 "Intersect
// kernel"). Both arrays must share the same Direction; the merge walks in
// that order.
//
// When either side is a *Bitmap, the kernel short-circuits to membership
// tests against the bitmap instead of a linear two-pointer walk, since a
// Bitmap's Contains is O(1) and the other side is typically the much
// smaller operand (spec.md §4.2 note on bitmap short-circuiting).
func Intersect(a IDArray, aLo, aHi uint64, b IDArray, bLo, bHi uint64, buf []common.ID) int {
	if bm, ok := a.(*Bitmap); ok {
		return intersectBitmap(bm, aLo, aHi, b, bLo, bHi, buf)
	}
	if bm, ok := b.(*Bitmap); ok {
		return intersectBitmap(bm, bLo, bHi, a, aLo, aHi, buf)
	}
	return intersectWalk(a, aLo, aHi, b, bLo, bHi, buf)
}

func intersectBitmap(bm *Bitmap, bmLo, bmHi uint64, other IDArray, lo, hi uint64, buf []common.ID) int {
	if bmHi > bm.Len() {
		bmHi = bm.Len()
	}
	if bmLo >= bmHi {
		return 0
	}
	first, last := bm.Read1(bmLo), bm.Read1(bmHi-1)
	n := 0
	chunk := make([]common.ID, 256)
	for lo < hi {
		end := lo + uint64(len(chunk))
		if end > hi {
			end = hi
		}
		got := other.Read(lo, end, chunk)
		for i := 0; i < got; i++ {
			if n >= len(buf) {
				return n
			}
			if id := chunk[i]; id >= first && id <= last && bm.Contains(id) {
				buf[n] = chunk[i]
				n++
			}
		}
		lo = end
	}
	return n
}

func intersectWalk(a IDArray, aLo, aHi uint64, b IDArray, bLo, bHi uint64, buf []common.ID) int {
	dir := a.Direction()
	n := 0
	for aLo < aHi && bLo < bHi && n < len(buf) {
		av := a.Read1(aLo)
		bv := b.Read1(bLo)
		switch {
		case av == bv:
			buf[n] = av
			n++
			aLo++
			bLo++
		case dir.Less(av, bv):
			aLo++
		default:
			bLo++
		}
	}
	return n
}
