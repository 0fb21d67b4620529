package comparator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/googlearchive/graphd-sub006/budget"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/leafiter"
	"github.com/googlearchive/graphd-sub006/primitive"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// numericValue is the minimal primitive.Value a numeric comparator
// understands: an int64 encoded as 8 big-endian bytes with the sign bit
// flipped (value + 2^63), so byte order matches numeric order.
type numericValue int64

func (v numericValue) Bytes() []byte {
	u := uint64(v) + (1 << 63)
	return []byte{
		byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32),
		byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u),
	}
}

// NumericValue wraps an int64 as a primitive.Value the Numeric comparator
// can order and index.
func NumericValue(n int64) primitive.Value { return numericValue(n) }

// binEntry is one (value, id) pair in a Numeric comparator's index; Numeric
// groups these into fixed-width bins the way GMAP chains group ids by
// linkage field (spec.md §4.7 "bin-by-bin GMAP iterators").
type binEntry struct {
	value numericValue
	id    common.ID
}

// Numeric is a concrete Comparator over signed 64-bit values, built
// entirely on the idarray/leafiter machinery already in this tree: its
// equality and range iterators are leafiter.Fixed instances over a
// value-sorted then id-sorted index, and its vrange walker buckets entries
// into fixed-size bins and hands each bin out as a leafiter.Fixed
// producer — the same "GMAP-shaped id bins" role a real disk-backed
// comparator would fill with an actual GMAP chain per bin (spec.md §4.7).
type Numeric struct {
	entries  []binEntry // sorted by (value, id)
	binSize  int
}

// NewNumeric builds a Numeric comparator over the given (value, id) pairs.
func NewNumeric(pairs map[common.ID]int64, binSize int) *Numeric {
	n := &Numeric{binSize: binSize}
	for id, v := range pairs {
		n.entries = append(n.entries, binEntry{value: numericValue(v), id: id})
	}
	sort.Slice(n.entries, func(i, j int) bool {
		if n.entries[i].value != n.entries[j].value {
			return n.entries[i].value < n.entries[j].value
		}
		return n.entries[i].id < n.entries[j].id
	})
	if n.binSize <= 0 {
		n.binSize = 1 << 10
	}
	return n
}

func (n *Numeric) Compare(a, b primitive.Value) Ordering {
	av, bv := a.(numericValue), b.(numericValue)
	switch {
	case av < bv:
		return Less
	case av > bv:
		return Greater
	default:
		return Equal
	}
}

func idsInValueRange(entries []binEntry, lo, hi numericValue, low, high common.ID, dir common.Direction) []common.ID {
	var ids []common.ID
	for _, e := range entries {
		if e.value < lo || e.value >= hi {
			continue
		}
		if e.id < low || e.id >= high {
			continue
		}
		ids = append(ids, e.id)
	}
	sort.Slice(ids, func(i, j int) bool { return dir.Less(ids[i], ids[j]) })
	return ids
}

func (n *Numeric) MakeEqualityIterator(v primitive.Value, low, high common.ID, dir common.Direction) (setiter.Iterator, bool) {
	nv := v.(numericValue)
	ids := idsInValueRange(n.entries, nv, nv+1, low, high, dir)
	if len(ids) == 0 {
		return leafiter.NewNull(dir), true
	}
	return leafiter.NewFixed(ids, dir, setiter.PSum{}), true
}

func (n *Numeric) MakeRangeIterator(lo, hi primitive.Value, low, high common.ID, dir common.Direction) (setiter.Iterator, bool) {
	ids := idsInValueRange(n.entries, lo.(numericValue), hi.(numericValue), low, high, dir)
	if len(ids) == 0 {
		return leafiter.NewNull(dir), true
	}
	return leafiter.NewFixed(ids, dir, setiter.PSum{}), true
}

func (n *Numeric) VRange() VRange {
	return &numericVRange{n: n, binSize: n.binSize}
}

// numericVRange walks a Numeric comparator's index one fixed-size bin at a
// time, handing each bin out as a leafiter.Fixed producer over that bin's
// ids (spec.md §4.7's vrange_{size,start,it_next,...} state machine).
type numericVRange struct {
	n       *Numeric
	binSize int
	dir     common.Direction
	pos     int // next bin-start index into n.entries, in scan order
	started bool
}

func (v *numericVRange) Size() uint64 {
	if v.binSize == 0 {
		return 0
	}
	return uint64((len(v.n.entries) + v.binSize - 1) / v.binSize)
}

func (v *numericVRange) Start(dir common.Direction) {
	v.dir = dir
	v.started = true
	if dir == common.Backward {
		v.pos = len(v.n.entries)
	} else {
		v.pos = 0
	}
}

func (v *numericVRange) ItNext(b *budget.Budget) (setiter.Iterator, bool) {
	if !v.started {
		v.Start(common.Forward)
	}
	if b.Exhausted() {
		return nil, false
	}
	b.Spend(1)
	if v.dir == common.Backward {
		if v.pos <= 0 {
			return nil, false
		}
		start := v.pos - v.binSize
		if start < 0 {
			start = 0
		}
		bin := v.n.entries[start:v.pos]
		v.pos = start
		return binIterator(bin, v.dir), true
	}
	if v.pos >= len(v.n.entries) {
		return nil, false
	}
	end := v.pos + v.binSize
	if end > len(v.n.entries) {
		end = len(v.n.entries)
	}
	bin := v.n.entries[v.pos:end]
	v.pos = end
	return binIterator(bin, v.dir), true
}

func binIterator(bin []binEntry, dir common.Direction) setiter.Iterator {
	ids := make([]common.ID, len(bin))
	for i, e := range bin {
		ids[i] = e.id
	}
	sort.Slice(ids, func(i, j int) bool { return dir.Less(ids[i], ids[j]) })
	return leafiter.NewFixed(ids, dir, setiter.PSum{})
}

func (v *numericVRange) Statistics() setiter.Stats {
	return setiter.Stats{
		N:         uint64(len(v.n.entries)),
		CheckCost: 3,
		NextCost:  2,
		FindCost:  3,
		Sorted:    true,
		Ordered:   true,
	}
}

func (v *numericVRange) Seek(id common.ID) bool {
	idx := sort.Search(len(v.n.entries), func(i int) bool { return v.n.entries[i].id >= id })
	if idx >= len(v.n.entries) {
		return false
	}
	v.pos = (idx / v.binSize) * v.binSize
	return true
}

func (v *numericVRange) ValueInRange(val primitive.Value) bool {
	nv := val.(numericValue)
	if len(v.n.entries) == 0 {
		return false
	}
	return nv >= v.n.entries[0].value && nv <= v.n.entries[len(v.n.entries)-1].value
}

// Freeze/Thaw persist the walker's scan position, the way the AND's own
// cursor persists a leaf's position (spec.md §4.7, §6).
func (v *numericVRange) Freeze() string {
	dir := "f"
	if v.dir == common.Backward {
		dir = "b"
	}
	return fmt.Sprintf("vrange[%s/%d]", dir, v.pos)
}

func (v *numericVRange) Thaw(s string) error {
	s = strings.TrimPrefix(s, "vrange[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("comparator: malformed vrange cursor %q", s)
	}
	v.dir = common.Forward
	if parts[0] == "b" {
		v.dir = common.Backward
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("comparator: malformed vrange position: %w", err)
	}
	v.pos = pos
	v.started = true
	return nil
}
