package bptree

import (
	"encoding/binary"

	"bufftree/bptree/keycodec"
	"bufftree/storagepage"
)

// leafNode is the decoded, in-memory form of a leaf page: a sorted run of
// (key, value) entries plus the page id of the next leaf in key order,
// grounded on original_source/b_plus_tree_leaf_page.cpp.
type leafNode[K any, V any] struct {
	maxSize int
	next    storagepage.ID
	keys    []K
	values  []V
}

func newLeafNode[K any, V any](maxSize int) *leafNode[K, V] {
	return &leafNode[K, V]{maxSize: maxSize, next: storagepage.INVALID}
}

func (n *leafNode[K, V]) size() int { return len(n.keys) }

// lowerBound returns the index of the first key >= target, or size() if
// every key is smaller. Entries are always kept sorted, so insertion and
// lookup both start here.
func (n *leafNode[K, V]) lowerBound(target K, kc keycodec.Codec[K]) int {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if kc.Compare(n.keys[mid], target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func decodeLeaf[K any, V any](data *[storagepage.PageSize]byte, kc keycodec.Codec[K], vc keycodec.ValueCodec[V]) *leafNode[K, V] {
	n := &leafNode[K, V]{
		maxSize: int(binary.LittleEndian.Uint16(data[nodeMaxSizeOffset:])),
		next:    storagepage.ID(int64(binary.LittleEndian.Uint64(data[leafNextOffset:]))),
	}
	size := int(binary.LittleEndian.Uint16(data[nodeSizeOffset:]))
	n.keys = make([]K, size)
	n.values = make([]V, size)
	ks, vs := kc.Size(), vc.Size()
	entry := ks + vs
	off := leafEntriesOff
	for i := 0; i < size; i++ {
		n.keys[i] = kc.Decode(data[off : off+ks])
		n.values[i] = vc.Decode(data[off+ks : off+entry])
		off += entry
	}
	return n
}

func (n *leafNode[K, V]) encode(data *[storagepage.PageSize]byte, kc keycodec.Codec[K], vc keycodec.ValueCodec[V]) {
	data[0] = byte(tagLeaf)
	binary.LittleEndian.PutUint16(data[nodeSizeOffset:], uint16(len(n.keys)))
	binary.LittleEndian.PutUint16(data[nodeMaxSizeOffset:], uint16(n.maxSize))
	binary.LittleEndian.PutUint64(data[leafNextOffset:], uint64(n.next))
	ks, vs := kc.Size(), vc.Size()
	entry := ks + vs
	off := leafEntriesOff
	for i := range n.keys {
		kc.Encode(n.keys[i], data[off:off+ks])
		vc.Encode(n.values[i], data[off+ks:off+entry])
		off += entry
	}
}

// internalNode is the decoded form of an internal page: size entries of
// (key, child page id), where entry 0's key is a sentinel — it routes to
// children[0] unconditionally and childIndex never compares against it,
// following original_source/b_plus_tree_internal_page.cpp. Whatever value
// ends up stored in entry 0's key slot (zero on a fresh root, a stale
// separator after a merge) is therefore never load-bearing.
type internalNode[K any] struct {
	maxSize  int
	keys     []K
	children []storagepage.ID
}

func newInternalNode[K any](maxSize int) *internalNode[K] {
	return &internalNode[K]{maxSize: maxSize}
}

func (n *internalNode[K]) size() int { return len(n.children) }

// childIndex returns the index of the child that owns key: the rightmost
// entry whose key is <= target, or 0 if target is smaller than every real
// entry's key.
func (n *internalNode[K]) childIndex(target K, kc keycodec.Codec[K]) int {
	idx := 0
	for i := 1; i < len(n.keys); i++ {
		if kc.Compare(n.keys[i], target) <= 0 {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// indexOfChild returns the position of child id within children, or -1.
func (n *internalNode[K]) indexOfChild(id storagepage.ID) int {
	for i, c := range n.children {
		if c == id {
			return i
		}
	}
	return -1
}

func decodeInternal[K any](data *[storagepage.PageSize]byte, kc keycodec.Codec[K]) *internalNode[K] {
	n := &internalNode[K]{maxSize: int(binary.LittleEndian.Uint16(data[nodeMaxSizeOffset:]))}
	size := int(binary.LittleEndian.Uint16(data[nodeSizeOffset:]))
	n.keys = make([]K, size)
	n.children = make([]storagepage.ID, size)
	ks := kc.Size()
	entry := ks + childIDSize
	off := internalEntriesOff
	for i := 0; i < size; i++ {
		n.keys[i] = kc.Decode(data[off : off+ks])
		n.children[i] = storagepage.ID(int64(binary.LittleEndian.Uint64(data[off+ks : off+entry])))
		off += entry
	}
	return n
}

func (n *internalNode[K]) encode(data *[storagepage.PageSize]byte, kc keycodec.Codec[K]) {
	data[0] = byte(tagInternal)
	binary.LittleEndian.PutUint16(data[nodeSizeOffset:], uint16(len(n.children)))
	binary.LittleEndian.PutUint16(data[nodeMaxSizeOffset:], uint16(n.maxSize))
	ks := kc.Size()
	entry := ks + childIDSize
	off := internalEntriesOff
	for i := range n.children {
		kc.Encode(n.keys[i], data[off:off+ks])
		binary.LittleEndian.PutUint64(data[off+ks:off+entry], uint64(n.children[i]))
		off += entry
	}
}

// minSize is the fewest entries a non-root node of the given max size may
// hold before it is underfull and must redistribute or merge. Applied
// uniformly to leaf and internal pages, as DESIGN.md's "Leaf/internal
// minSize formula" section explains.
func minSize(maxSize int) int {
	return (maxSize + 1) / 2
}
