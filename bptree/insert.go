package bptree

import (
	"encoding/binary"
	"slices"

	"bufftree/bufferpool"
	"bufftree/storagepage"
)

// dropAncestors releases every guard in stack except the last one,
// returning a fresh one-element stack holding what remains. Called the
// moment a node is proven "safe" — spec.md section 4.3.2's crabbing rule
// that ancestor latches above a safe node can never be needed again for
// this operation.
func dropAncestors[K any, V any](stack []*bufferpool.WritePageGuard) []*bufferpool.WritePageGuard {
	for _, g := range stack[:len(stack)-1] {
		g.Drop()
	}
	last := stack[len(stack)-1]
	return append(stack[:0:0], last)
}

// Insert adds key/value to the tree, splitting and propagating upward as
// needed. It holds exclusive latches down the path from the header page
// (treated as the root's parent for crabbing purposes, the same trick
// original_source/b_plus_tree.cpp's header hint uses) and releases each
// ancestor as soon as a descendant is proven safe.
func (t *Tree[K, V]) Insert(key K, value V) error {
	header, ok := t.pool.FetchPageWrite(t.headerPageID)
	mustf(ok, "bptree: fetch header page %d", t.headerPageID)

	rootID := storagepage.ID(int32(binary.LittleEndian.Uint32(header.Data()[headerRootOffset:])))

	if rootID == storagepage.INVALID {
		leafGuard, leaf := t.allocLeaf()
		leaf.keys = []K{key}
		leaf.values = []V{value}
		leaf.encode(leafGuard.Data(), t.kc, t.vc)
		leafGuard.MarkDirty()
		binary.LittleEndian.PutUint32(header.Data()[headerRootOffset:], uint32(int32(leafGuard.PageID())))
		header.MarkDirty()
		leafGuard.Drop()
		header.Drop()
		return nil
	}

	stack := []*bufferpool.WritePageGuard{header}
	cur, ok := t.pool.FetchPageWrite(rootID)
	mustf(ok, "bptree: fetch root page %d", rootID)
	stack = append(stack, cur)

	for pageTag(cur.Data()[0]) == tagInternal {
		node := decodeInternal(cur.Data(), t.kc)
		if node.size() < node.maxSize {
			stack = dropAncestors[K, V](stack)
		}
		childID := node.children[node.childIndex(key, t.kc)]
		child, ok := t.pool.FetchPageWrite(childID)
		mustf(ok, "bptree: fetch child page %d", childID)
		stack = append(stack, child)
		cur = child
	}

	leaf := decodeLeaf(cur.Data(), t.kc, t.vc)
	idx := leaf.lowerBound(key, t.kc)
	if idx < leaf.size() && t.kc.Compare(leaf.keys[idx], key) == 0 {
		for _, g := range stack {
			g.Drop()
		}
		return ErrDuplicateKey
	}
	leaf.keys = slices.Insert(leaf.keys, idx, key)
	leaf.values = slices.Insert(leaf.values, idx, value)

	if leaf.size() <= leaf.maxSize {
		leaf.encode(cur.Data(), t.kc, t.vc)
		cur.MarkDirty()
		for _, g := range stack {
			g.Drop()
		}
		return nil
	}

	rightGuard, rightLeaf := t.allocLeaf()
	split := minSize(leaf.maxSize)
	rightLeaf.keys = append(rightLeaf.keys, leaf.keys[split:]...)
	rightLeaf.values = append(rightLeaf.values, leaf.values[split:]...)
	rightLeaf.next = leaf.next
	leaf.keys = leaf.keys[:split]
	leaf.values = leaf.values[:split]
	leaf.next = rightGuard.PageID()
	sepKey := rightLeaf.keys[0]

	leaf.encode(cur.Data(), t.kc, t.vc)
	cur.MarkDirty()
	rightLeaf.encode(rightGuard.Data(), t.kc, t.vc)
	rightGuard.MarkDirty()

	leftID, rightID := cur.PageID(), rightGuard.PageID()
	cur.Drop()
	rightGuard.Drop()

	// ancestors = stack minus the leaf we just handled (its last entry)
	t.propagateSplit(stack[:len(stack)-1], leftID, sepKey, rightID)
	return nil
}

// propagateSplit walks ancestors from the bottom up, inserting (sepKey,
// rightID) as the entry following leftID in the nearest parent, splitting
// that parent in turn if it overflows, and growing a new root if the
// climb reaches the header page. ancestors[0] is the header page unless
// Insert's descent already released it above a safe node, in which case
// ancestors[0] is that safe node and the climb stops there; every guard in
// ancestors is dropped before this returns.
func (t *Tree[K, V]) propagateSplit(ancestors []*bufferpool.WritePageGuard, leftID storagepage.ID, sepKey K, rightID storagepage.ID) {
	i := len(ancestors) - 1
	for i >= 0 && ancestors[i].PageID() != t.headerPageID {
		parent := ancestors[i]
		node := decodeInternal(parent.Data(), t.kc)
		pos := node.indexOfChild(leftID)
		mustf(pos >= 0, "bptree: split child %d not found in parent %d", leftID, parent.PageID())

		node.keys = slices.Insert(node.keys, pos+1, sepKey)
		node.children = slices.Insert(node.children, pos+1, rightID)

		if node.size() <= node.maxSize {
			node.encode(parent.Data(), t.kc)
			parent.MarkDirty()
			for _, g := range ancestors {
				g.Drop()
			}
			return
		}

		newGuard, newNode := t.allocInternal()
		split := minSize(node.maxSize)
		newNode.keys = append(newNode.keys, node.keys[split:]...)
		newNode.children = append(newNode.children, node.children[split:]...)
		upKey := node.keys[split]
		node.keys = node.keys[:split]
		node.children = node.children[:split]

		node.encode(parent.Data(), t.kc)
		parent.MarkDirty()
		newNode.encode(newGuard.Data(), t.kc)
		newGuard.MarkDirty()

		leftID, sepKey, rightID = parent.PageID(), upKey, newGuard.PageID()
		newGuard.Drop()
		i--
	}

	// i == 0: climbed past the old root, ancestors[0] is the header page.
	newRootGuard, newRoot := t.allocInternal()
	var zeroKey K
	newRoot.keys = []K{zeroKey, sepKey}
	newRoot.children = []storagepage.ID{leftID, rightID}
	newRoot.encode(newRootGuard.Data(), t.kc)
	newRootGuard.MarkDirty()

	header := ancestors[0]
	binary.LittleEndian.PutUint32(header.Data()[headerRootOffset:], uint32(int32(newRootGuard.PageID())))
	header.MarkDirty()

	newRootGuard.Drop()
	for _, g := range ancestors {
		g.Drop()
	}
}
