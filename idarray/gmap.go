package idarray

import (
	"encoding/binary"
	"fmt"

	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/store"
)

// gmapNodeHeader is the fixed prefix of one GMAP chain node: a count of
// packed ids in this node, followed by the byte offset of the next node (0
// terminates the chain). Section 6 leaves GMAP's on-disk shape unspecified
// beyond "a chain"; this node layout is a direct generalization of the
// Istore index table's fixed-width, offset-linked records to the chained
// case.
const (
	gmapCountBytes  = 2
	gmapNextBytes   = 8
	gmapNodeHeader  = gmapCountBytes + gmapNextBytes
	gmapMaxPerNode  = 4000 // keeps a node comfortably inside one tile
)

// GMapChain is the id-array representation for an id set stored as a chain
// of pages threaded through a partition's tile-cached bytes (spec.md §4.2
// "gmap chain").
type GMapChain struct {
	tc    *store.TileCache
	part  uint32
	head  int64
	dir   common.Direction
	nodes []gmapNode // lazily populated by walk
	total uint64
	ids   []common.ID // flattened, once walked
}

type gmapNode struct {
	offset int64
	count  int
	next   int64
}

// OpenGMapChain walks the chain starting at byte offset head within part,
// flattening it into a sorted id list. GMAP chains in this system are small
// enough (index fan-out, not bulk data) that eager materialization is the
// simplest correct reader; nothing in spec.md §4.2 requires streaming access.
func OpenGMapChain(tc *store.TileCache, part uint32, head int64, dir common.Direction) (*GMapChain, error) {
	g := &GMapChain{tc: tc, part: part, head: head, dir: dir}
	if err := g.walk(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GMapChain) walk() error {
	off := g.head
	var ids []common.ID
	for {
		hdr, h, err := g.tc.Get(g.part, uint64(off), uint64(off)+gmapNodeHeader, store.ReadOnly)
		if err != nil {
			return fmt.Errorf("idarray: read gmap node header: %w", err)
		}
		count := int(binary.BigEndian.Uint16(hdr[:gmapCountBytes]))
		next := int64(binary.BigEndian.Uint64(hdr[gmapCountBytes:]))
		if err := g.tc.Free(h); err != nil {
			return err
		}

		bodyLo := uint64(off) + gmapNodeHeader
		bodyHi := bodyLo + uint64(count*PackedWidth)
		body, h2, err := g.tc.Get(g.part, bodyLo, bodyHi, store.ReadOnly)
		if err != nil {
			return fmt.Errorf("idarray: read gmap node body: %w", err)
		}
		ids = append(ids, DecodePacked(body)...)
		if err := g.tc.Free(h2); err != nil {
			return err
		}

		g.nodes = append(g.nodes, gmapNode{offset: off, count: count, next: next})
		off = next
		if off == 0 {
			break
		}
	}
	g.ids = ids
	g.total = uint64(len(ids))
	return nil
}

func (g *GMapChain) Len() uint64                 { return g.total }
func (g *GMapChain) Direction() common.Direction { return g.dir }

func (g *GMapChain) Read(start, end uint64, buf []common.ID) int {
	return NewSlice(g.ids, g.dir).Read(start, end, buf)
}

func (g *GMapChain) Read1(offset uint64) common.ID { return g.ids[offset] }

func (g *GMapChain) Search(lo, hi uint64, id common.ID) (uint64, common.ID, bool) {
	return NewSlice(g.ids, g.dir).Search(lo, hi, id)
}

// EncodeGMapChain lays out ids as a single-node chain, for tests and for
// small id sets that never grow past gmapMaxPerNode.
func EncodeGMapChain(ids []common.ID) []byte {
	buf := make([]byte, gmapNodeHeader+len(ids)*PackedWidth)
	binary.BigEndian.PutUint16(buf[:gmapCountBytes], uint16(len(ids)))
	binary.BigEndian.PutUint64(buf[gmapCountBytes:gmapNodeHeader], 0)
	copy(buf[gmapNodeHeader:], EncodePacked(ids))
	return buf
}
