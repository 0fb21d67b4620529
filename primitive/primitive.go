// Package primitive holds the external Primitive record contract (spec.md
// §1 "Deliberately out of scope: ... the primitive write path"; §3): the
// query execution core reads primitives out of the store and hands their
// Value fields to comparators, but never constructs, validates, or
// serializes them itself. This package exists so the rest of the tree has a
// concrete type to pass around instead of an untyped blob.
package primitive

import "github.com/googlearchive/graphd-sub006/common"

// Value is the opaque result-value payload a primitive carries (spec.md §1:
// "the result-value tree and serialization format for replies, treated as
// an opaque Value"). The query execution core never inspects a Value's
// contents directly; it is handed to a Comparator or to the reply path.
type Value interface {
	// Bytes returns the wire-format encoding a comparator or reply
	// serializer can operate on. The query execution core never calls it.
	Bytes() []byte
}

// Primitive is one (id, typeguid, left, right, value) record as the store
// hands it back; the AND and leaf iterators reconstruct conjunctive
// constraints over its typeguid/left/right fields but never touch Value.
type Primitive struct {
	ID       common.ID
	TypeGUID common.ID
	Left     common.ID
	Right    common.ID
	Value    Value
}

// RawValue is the trivial Value a test or a caller with no real
// serialization layer can use to exercise code paths that require a Value
// but do not inspect it.
type RawValue []byte

func (v RawValue) Bytes() []byte { return v }
