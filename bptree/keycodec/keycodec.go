// Package keycodec supplies the "key codec and comparator" spec.md section
// 1 leaves to the caller: bufftree's B+Tree is generic over a fixed-width
// key type, and on-page layout is computed from Codec.Size() plus the
// value's own size (spec.md section 4.3.5, section 9 "templates over
// key/value/comparator"). This package ships the five fixed-width
// instantiations spec.md section 9 names — {4, 8, 16, 32, 64}-byte keys —
// each monomorphized by the Go compiler when bptree.Tree is instantiated
// with it.
package keycodec

import (
	"bytes"
	"encoding/binary"
)

// Codec knows how to turn a key of type K into a fixed number of bytes and
// back, and how to totally order two keys. Size() must return the same
// value for every K — it is what lets bptree compute how many entries fit
// on a page.
type Codec[K any] interface {
	Size() int
	Encode(k K, dst []byte)
	Decode(src []byte) K
	Compare(a, b K) int
}

// Int32 is the 4-byte fixed-width key instantiation. Big-endian encoding
// means byte-order comparison agrees with numeric comparison for
// non-negative keys (negative keys, stored as plain two's complement, sort
// after them bytewise), which is not load-bearing here (Compare is used,
// not byte comparison) but keeps the on-page bytes debuggable in a hex
// dump.
type Int32 struct{}

func (Int32) Size() int { return 4 }
func (Int32) Encode(k int32, dst []byte) {
	binary.BigEndian.PutUint32(dst, uint32(k))
}
func (Int32) Decode(src []byte) int32 {
	return int32(binary.BigEndian.Uint32(src))
}
func (Int32) Compare(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Int64 is the 8-byte fixed-width key instantiation.
type Int64 struct{}

func (Int64) Size() int { return 8 }
func (Int64) Encode(k int64, dst []byte) {
	binary.BigEndian.PutUint64(dst, uint64(k))
}
func (Int64) Decode(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src))
}
func (Int64) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Bytes16 is the 16-byte fixed-width key instantiation — wide enough for a
// raw UUID used directly as an index key.
type Bytes16 struct{}

func (Bytes16) Size() int { return 16 }
func (Bytes16) Encode(k [16]byte, dst []byte) { copy(dst, k[:]) }
func (Bytes16) Decode(src []byte) [16]byte {
	var k [16]byte
	copy(k[:], src)
	return k
}
func (Bytes16) Compare(a, b [16]byte) int { return bytes.Compare(a[:], b[:]) }

// Bytes32 is the 32-byte fixed-width key instantiation.
type Bytes32 struct{}

func (Bytes32) Size() int { return 32 }
func (Bytes32) Encode(k [32]byte, dst []byte) { copy(dst, k[:]) }
func (Bytes32) Decode(src []byte) [32]byte {
	var k [32]byte
	copy(k[:], src)
	return k
}
func (Bytes32) Compare(a, b [32]byte) int { return bytes.Compare(a[:], b[:]) }

// Bytes64 is the 64-byte fixed-width key instantiation.
type Bytes64 struct{}

func (Bytes64) Size() int { return 64 }
func (Bytes64) Encode(k [64]byte, dst []byte) { copy(dst, k[:]) }
func (Bytes64) Decode(src []byte) [64]byte {
	var k [64]byte
	copy(k[:], src)
	return k
}
func (Bytes64) Compare(a, b [64]byte) int { return bytes.Compare(a[:], b[:]) }

// ValueCodec is the value-side half of spec.md section 1's "key codec and
// comparator supplied by the caller": a fixed-width (de)serializer with no
// ordering requirement, since a B+Tree never compares values. Int32,
// Int64, Bytes16, Bytes32 and Bytes64 above already satisfy this
// interface — their extra Compare method does not disqualify them — so a
// caller indexing by one fixed-width type and storing another can reuse
// the same codec set for both.
type ValueCodec[V any] interface {
	Size() int
	Encode(v V, dst []byte)
	Decode(src []byte) V
}

// RID is a heap-file row pointer: the page holding the row and the row's
// slot within that page. It is the value type cmd/bufftreectl's index
// stores, mirroring the teacher's RowPointer (storage_engine/access/heapfile_manager).
type RID struct {
	PageID int64
	Slot   uint32
}

// RIDCodec is RID's fixed 12-byte ValueCodec.
type RIDCodec struct{}

func (RIDCodec) Size() int { return 12 }
func (RIDCodec) Encode(v RID, dst []byte) {
	binary.BigEndian.PutUint64(dst[0:8], uint64(v.PageID))
	binary.BigEndian.PutUint32(dst[8:12], v.Slot)
}
func (RIDCodec) Decode(src []byte) RID {
	return RID{
		PageID: int64(binary.BigEndian.Uint64(src[0:8])),
		Slot:   binary.BigEndian.Uint32(src[8:12]),
	}
}
