// Package bptree implements the concurrent, latch-crabbing B+Tree index of
// spec.md section 4.3, generic over a fixed-width key type (via
// bufftree/bptree/keycodec.Codec) and an arbitrary value type (via
// keycodec.ValueCodec), layered entirely on top of bufferpool.PoolManager
// guards — it never touches a disk manager or a raw frame directly.
package bptree

// pageTag is the first byte of every page this package owns, letting a
// reader distinguish a header page from a tree node without any other
// context — spec.md section 6's "on-disk page layout" requirement.
type pageTag byte

const (
	tagHeader   pageTag = 0
	tagInternal pageTag = 1
	tagLeaf     pageTag = 2
)

// Header page layout: [tag byte][root page id, 4 bytes, little-endian,
// -1 == storagepage.INVALID]. Spec.md section 6 calls for exactly a
// four-byte root id at a fixed offset; bufftree's page ids are wider
// (storagepage.ID is int64) but every id this package itself allocates
// fits in 32 bits, so the low bits round-trip exactly — the same
// local/global truncation convention the teacher's disk manager uses for
// on-disk ids.
const (
	headerRootOffset = 1
	headerPageSize    = headerRootOffset + 4
)

// Internal/leaf node header layout, before the entry array:
//
//	[tag byte][size uint16][maxSize uint16]{[nextPageID int64] if leaf}
const (
	nodeSizeOffset    = 1
	nodeMaxSizeOffset = 3
	nodeHeaderSize    = 5 // tag + size + maxSize, shared by both node kinds

	leafNextOffset = nodeHeaderSize
	leafEntriesOff = leafNextOffset + 8

	internalEntriesOff = nodeHeaderSize
)

// childIDSize is the fixed on-page width of an internal entry's child
// pointer — always a raw storagepage.ID, regardless of the tree's K/V
// instantiation.
const childIDSize = 8
