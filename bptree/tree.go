package bptree

import (
	"encoding/binary"
	"fmt"

	"bufftree/bptree/keycodec"
	"bufftree/bufferpool"
	"bufftree/storagepage"
)

// Tree is bufftree's concurrent B+Tree index, generic over a fixed-width
// key codec and an arbitrary value codec (spec.md section 9). It owns a
// header page (root_page_id persistence) plus however many internal and
// leaf pages it allocates through pool; it never sees a disk manager or a
// raw frame, only bufferpool guards.
type Tree[K any, V any] struct {
	pool            *bufferpool.PoolManager
	kc              keycodec.Codec[K]
	vc              keycodec.ValueCodec[V]
	headerPageID    storagepage.ID
	leafMaxSize     int
	internalMaxSize int
}

// New allocates a fresh header page and returns an empty tree. leafMaxSize
// and internalMaxSize must each leave room for at least 3 entries once
// node-header bytes are subtracted from storagepage.PageSize — the same
// "page must fit max_size entries" constraint original_source assumes
// silently; bufftree checks it explicitly instead of overflowing a page.
func New[K any, V any](pool *bufferpool.PoolManager, kc keycodec.Codec[K], vc keycodec.ValueCodec[V], leafMaxSize, internalMaxSize int) (*Tree[K, V], error) {
	if leafMaxSize < 3 || internalMaxSize < 3 {
		return nil, fmt.Errorf("bptree: max_size must be at least 3, got leaf=%d internal=%d", leafMaxSize, internalMaxSize)
	}
	if cap := leafEntriesOff + leafMaxSize*(kc.Size()+vc.Size()); cap > storagepage.PageSize {
		return nil, fmt.Errorf("bptree: leafMaxSize %d does not fit a %d-byte page", leafMaxSize, storagepage.PageSize)
	}
	if cap := internalEntriesOff + internalMaxSize*(kc.Size()+childIDSize); cap > storagepage.PageSize {
		return nil, fmt.Errorf("bptree: internalMaxSize %d does not fit a %d-byte page", internalMaxSize, storagepage.PageSize)
	}

	header, ok := pool.NewPageGuarded()
	if !ok {
		return nil, ErrPoolExhausted
	}
	data := header.Data()
	data[0] = byte(tagHeader)
	invalidRoot := int32(storagepage.INVALID)
	binary.LittleEndian.PutUint32(data[headerRootOffset:], uint32(invalidRoot))
	header.MarkDirty()
	headerID := header.PageID()
	header.Drop()

	return &Tree[K, V]{
		pool:            pool,
		kc:              kc,
		vc:              vc,
		headerPageID:    headerID,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}, nil
}

// HeaderPageID identifies the header page, exposed so a caller can persist
// it alongside its own catalog and reopen the same tree later via Open.
func (t *Tree[K, V]) HeaderPageID() storagepage.ID { return t.headerPageID }

// Open reattaches a Tree to a header page a prior New already created —
// the teacher's OpenBPlusTree / saveRoot split between "create" and
// "reopen" (storage_engine/access/indexfile_manager/bplustree/new_bplus_tree.go).
func Open[K any, V any](pool *bufferpool.PoolManager, headerPageID storagepage.ID, kc keycodec.Codec[K], vc keycodec.ValueCodec[V], leafMaxSize, internalMaxSize int) *Tree[K, V] {
	return &Tree[K, V]{
		pool:            pool,
		kc:              kc,
		vc:              vc,
		headerPageID:    headerPageID,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}
}

func (t *Tree[K, V]) rootPageID() storagepage.ID {
	g, ok := t.pool.FetchPageRead(t.headerPageID)
	mustf(ok, "bptree: fetch header page %d", t.headerPageID)
	defer g.Drop()
	return storagepage.ID(int32(binary.LittleEndian.Uint32(g.Data()[headerRootOffset:])))
}

// GetRootPageID returns the tree's current root page id, or
// storagepage.INVALID if the tree is empty, per spec.md section 6's
// public API surface.
func (t *Tree[K, V]) GetRootPageID() storagepage.ID {
	return t.rootPageID()
}

// IsEmpty reports whether the tree currently has no root.
func (t *Tree[K, V]) IsEmpty() bool {
	return t.rootPageID() == storagepage.INVALID
}

// fetchRootRead returns a shared guard on the tree's root page, following
// the same crabbing discipline Insert/Remove use: the header's latch is
// held until the root's latch is acquired, and only then released, so a
// concurrent Remove cannot free the root page between a reader checking
// the header and that reader latching the page it named.
func (t *Tree[K, V]) fetchRootRead() (*bufferpool.ReadPageGuard, bool) {
	header, ok := t.pool.FetchPageRead(t.headerPageID)
	mustf(ok, "bptree: fetch header page %d", t.headerPageID)
	root := storagepage.ID(int32(binary.LittleEndian.Uint32(header.Data()[headerRootOffset:])))
	if root == storagepage.INVALID {
		header.Drop()
		return nil, false
	}
	guard, ok := t.pool.FetchPageRead(root)
	mustf(ok, "bptree: fetch root page %d", root)
	header.Drop()
	return guard, true
}

func (t *Tree[K, V]) allocLeaf() (*bufferpool.WritePageGuard, *leafNode[K, V]) {
	g, ok := t.pool.NewPageGuarded()
	mustf(ok, "bptree: allocate leaf page")
	return g, newLeafNode[K, V](t.leafMaxSize)
}

func (t *Tree[K, V]) allocInternal() (*bufferpool.WritePageGuard, *internalNode[K]) {
	g, ok := t.pool.NewPageGuarded()
	mustf(ok, "bptree: allocate internal page")
	return g, newInternalNode[K](t.internalMaxSize)
}
