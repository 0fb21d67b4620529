package store

import "encoding/binary"

// On-disk partition magics (spec.md §6). All multi-byte integers in every
// format below are big-endian.
var (
	MagicFlat         = [4]byte{'a', 'f', 'l', '2'}
	MagicIstore       = [4]byte{'a', 'i', '3', 'p'}
	MagicIstoreNext   = [4]byte{'a', 'i', '1', 'n'}
	MagicIstoreHorLo  = [4]byte{'a', 'i', '1', 'h'}
	MagicHMAPHeader   = [4]byte{'a', 'h', '2', 'p'}
)

// DefaultTileSize is the page-aligned window size tiles carve a partition
// into (spec.md §3 "Tile").
const DefaultTileSize = 32 * 1024

// IstoreIndexEntries is the fixed size of an istore partition's offset
// index table, in 4-byte entries.
const IstoreIndexEntries = 16 * 1024 * 1024

// IstoreIndexBytes is the byte size of the istore index table.
const IstoreIndexBytes = IstoreIndexEntries * 4

// istoreHeaderBytes is magic + next_slot.
const istoreHeaderBytes = 4 + 4

// IstoreDataBase is the byte offset at which the data region begins in an
// istore partition: magic + next_slot + the fixed index table.
const IstoreDataBase = istoreHeaderBytes + IstoreIndexBytes

// put40/get40 encode/decode the 5-byte big-endian ids and offsets this
// format uses throughout (34-bit ids and scaled byte offsets both fit in
// 40 bits).
func put40(b []byte, v uint64) {
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

func get40(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}

// IstoreSlotOffset converts a stored (scaled, biased) index-table value into
// an absolute byte offset in the data region. A stored value of 0 means "no
// record"; spec.md §6: "Byte offset = data_base - 8 + 8 * stored."
func IstoreSlotOffset(stored uint32) (offset int64, ok bool) {
	if stored == 0 {
		return 0, false
	}
	return int64(IstoreDataBase) - 8 + 8*int64(stored), true
}

// IstoreEncodeSlot is the inverse of IstoreSlotOffset.
func IstoreEncodeSlot(offset int64) uint32 {
	return uint32((offset - int64(IstoreDataBase) + 8) / 8)
}

// ReadIstoreIndexEntry decodes the big-endian 4-byte index entry for slot i
// out of the raw index table bytes (table must be IstoreIndexBytes long, or
// a tile-sized window containing entry i at the right relative offset).
func ReadIstoreIndexEntry(table []byte, relOffset int) uint32 {
	return binary.BigEndian.Uint32(table[relOffset : relOffset+4])
}

// WriteIstoreIndexEntry is the inverse of ReadIstoreIndexEntry.
func WriteIstoreIndexEntry(table []byte, relOffset int, v uint32) {
	binary.BigEndian.PutUint32(table[relOffset:relOffset+4], v)
}

// IstoreIndexByteOffset returns the absolute byte offset of the index entry
// for slot id within the partition file.
func IstoreIndexByteOffset(id uint64) int64 {
	return int64(istoreHeaderBytes) + int64(id)*4
}

// IstoreMarkers is the decoded form of the "ai1n"/"ai1h" next-id/horizon
// marker pair (spec.md §6 "Istore markers").
type IstoreMarkers struct {
	Horizon uint64 // 8-byte horizon
	NextID  uint64 // 5-byte next_id
	HorizonLo uint64 // 5-byte horizon (low word, mirrored for the "ai1h" record)
}

const istoreMarkersBytes = 4 + 8 + 5 + 5

// EncodeIstoreMarkers serializes the next-id/horizon marker record.
func EncodeIstoreMarkers(m IstoreMarkers, useHorizonMagic bool) []byte {
	buf := make([]byte, istoreMarkersBytes)
	if useHorizonMagic {
		copy(buf[0:4], MagicIstoreHorLo[:])
	} else {
		copy(buf[0:4], MagicIstoreNext[:])
	}
	binary.BigEndian.PutUint64(buf[4:12], m.Horizon)
	put40(buf[12:17], m.NextID)
	put40(buf[17:22], m.HorizonLo)
	return buf
}

// DecodeIstoreMarkers parses a marker record produced by EncodeIstoreMarkers,
// validating its magic matches one of the two known forms.
func DecodeIstoreMarkers(buf []byte) (IstoreMarkers, error) {
	if len(buf) < istoreMarkersBytes {
		return IstoreMarkers{}, ErrCorrupt
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	if magic != MagicIstoreNext && magic != MagicIstoreHorLo {
		return IstoreMarkers{}, ErrCorrupt
	}
	return IstoreMarkers{
		Horizon:   binary.BigEndian.Uint64(buf[4:12]),
		NextID:    get40(buf[12:17]),
		HorizonLo: get40(buf[17:22]),
	}, nil
}

// HMAPHeader is the decoded form of the "ah2p" bucket-file header
// (spec.md §6 "HMAP header"), padded to one page on disk.
type HMAPHeader struct {
	NextEntry           uint64 // 5 bytes on disk
	BucketPageSize      uint32
	NSlots              uint64
	LastBucketPageOffset uint32
}

const hmapHeaderBytes = 4 + 5 + 4 + 8 + 4

// EncodeHMAPHeader serializes h into a pageSize-padded buffer.
func EncodeHMAPHeader(h HMAPHeader, pageSize int) []byte {
	buf := make([]byte, pageSize)
	copy(buf[0:4], MagicHMAPHeader[:])
	put40(buf[4:9], h.NextEntry)
	binary.BigEndian.PutUint32(buf[9:13], h.BucketPageSize)
	binary.BigEndian.PutUint64(buf[13:21], h.NSlots)
	binary.BigEndian.PutUint32(buf[21:25], h.LastBucketPageOffset)
	return buf
}

// DecodeHMAPHeader is the inverse of EncodeHMAPHeader.
func DecodeHMAPHeader(buf []byte) (HMAPHeader, error) {
	if len(buf) < hmapHeaderBytes {
		return HMAPHeader{}, ErrCorrupt
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	if magic != MagicHMAPHeader {
		return HMAPHeader{}, ErrCorrupt
	}
	return HMAPHeader{
		NextEntry:            get40(buf[4:9]),
		BucketPageSize:       binary.BigEndian.Uint32(buf[9:13]),
		NSlots:               binary.BigEndian.Uint64(buf[13:21]),
		LastBucketPageOffset: binary.BigEndian.Uint32(buf[21:25]),
	}, nil
}

// HMAPBucketEntry is one decoded bucket-page entry (spec.md §6 "HMAP
// bucket"). Value's top bit distinguishes a GMAP index (MSB==0) from an
// inlined singleton id (MSB==1).
type HMAPBucketEntry struct {
	KeyOffset uint16
	KeyLen    uint16
	Type      uint8
	Value     uint64 // 5-byte field; see IsInline
}

const hmapBucketEntryBytes = 2 + 2 + 1 + 5

// IsInline reports whether Value encodes an inlined singleton id rather than
// a GMAP chain index.
func (e HMAPBucketEntry) IsInline() bool { return e.Value&(1<<39) != 0 }

// InlineID extracts the singleton id when IsInline is true.
func (e HMAPBucketEntry) InlineID() uint64 { return e.Value &^ (1 << 39) }

// EncodeHMAPBucketEntry serializes e.
func EncodeHMAPBucketEntry(e HMAPBucketEntry) []byte {
	buf := make([]byte, hmapBucketEntryBytes)
	binary.BigEndian.PutUint16(buf[0:2], e.KeyOffset)
	binary.BigEndian.PutUint16(buf[2:4], e.KeyLen)
	buf[4] = e.Type
	put40(buf[5:10], e.Value)
	return buf
}

// DecodeHMAPBucketEntry is the inverse of EncodeHMAPBucketEntry.
func DecodeHMAPBucketEntry(buf []byte) (HMAPBucketEntry, error) {
	if len(buf) < hmapBucketEntryBytes {
		return HMAPBucketEntry{}, ErrCorrupt
	}
	return HMAPBucketEntry{
		KeyOffset: binary.BigEndian.Uint16(buf[0:2]),
		KeyLen:    binary.BigEndian.Uint16(buf[2:4]),
		Type:      buf[4],
		Value:     get40(buf[5:10]),
	}, nil
}
