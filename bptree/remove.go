package bptree

import (
	"encoding/binary"
	"slices"

	"bufftree/bufferpool"
	"bufftree/storagepage"
)

// Remove deletes key from the tree, redistributing from or merging with a
// sibling whenever a node would otherwise underflow below minSize, and
// collapsing the root when its last internal level drops to a single
// child — spec.md section 4.3.3. Like Insert, it treats the header page
// as the root's parent for crabbing purposes and releases each ancestor
// as soon as a descendant is proven safe.
//
// Sibling merges always fold the right-hand node into the left-hand one
// and free the right page; this makes the surviving page id for any given
// pair of siblings the same no matter which concurrent remove discovers
// the underflow first, which is what keeps two overlapping merges from
// disagreeing about which page to latch next.
func (t *Tree[K, V]) Remove(key K) error {
	header, ok := t.pool.FetchPageWrite(t.headerPageID)
	mustf(ok, "bptree: fetch header page %d", t.headerPageID)

	rootID := storagepage.ID(int32(binary.LittleEndian.Uint32(header.Data()[headerRootOffset:])))
	if rootID == storagepage.INVALID {
		header.Drop()
		return ErrKeyNotFound
	}

	stack := []*bufferpool.WritePageGuard{header}
	cur, ok := t.pool.FetchPageWrite(rootID)
	mustf(ok, "bptree: fetch root page %d", rootID)
	stack = append(stack, cur)

	// depth tracks how many internal levels have been descended, since
	// len(stack) is not a reliable proxy once dropAncestors has collapsed
	// it back to length 1 — it always regrows to 2 by the next check, so
	// len(stack)==2 would wrongly read as "at the root" on every level.
	depth := 0
	for pageTag(cur.Data()[0]) == tagInternal {
		node := decodeInternal(cur.Data(), t.kc)
		isRoot := depth == 0
		min := minSize(node.maxSize)
		if isRoot {
			// An internal root is only valid down to 2 children; losing
			// one more to a child-level merge would require collapsing
			// this level entirely, which propagateRemoveInternal handles
			// once it is reached — so "safe" here means size >= 3, which
			// still leaves 2 after one child is lost.
			min = 2
		}
		if node.size()-1 >= min {
			stack = dropAncestors[K, V](stack)
		}
		childID := node.children[node.childIndex(key, t.kc)]
		child, ok := t.pool.FetchPageWrite(childID)
		mustf(ok, "bptree: fetch child page %d", childID)
		stack = append(stack, child)
		cur = child
		depth++
	}

	leaf := decodeLeaf(cur.Data(), t.kc, t.vc)
	idx := leaf.lowerBound(key, t.kc)
	if idx >= leaf.size() || t.kc.Compare(leaf.keys[idx], key) != 0 {
		for _, g := range stack {
			g.Drop()
		}
		return ErrKeyNotFound
	}
	leaf.keys = slices.Delete(leaf.keys, idx, idx+1)
	leaf.values = slices.Delete(leaf.values, idx, idx+1)

	isRootLeaf := depth == 0
	min := minSize(leaf.maxSize)
	if isRootLeaf {
		min = 0
	}
	// A root leaf has no siblings to borrow from or merge with, and its
	// min is 0, so it always satisfies this branch — an underfull root leaf
	// is still a valid (if sparse) tree, and an emptied one is detached
	// from the header below, leaving the tree empty.
	if leaf.size() >= min {
		leaf.encode(cur.Data(), t.kc, t.vc)
		cur.MarkDirty()
		if isRootLeaf && leaf.size() == 0 {
			invalidRoot := int32(storagepage.INVALID)
			binary.LittleEndian.PutUint32(header.Data()[headerRootOffset:], uint32(invalidRoot))
			header.MarkDirty()
		}
		for _, g := range stack {
			g.Drop()
		}
		return nil
	}

	ancestors := stack[:len(stack)-1] // everything except the leaf itself
	parent := ancestors[len(ancestors)-1]
	parentNode := decodeInternal(parent.Data(), t.kc)
	myPos := parentNode.indexOfChild(cur.PageID())
	mustf(myPos >= 0, "bptree: leaf %d not found in parent %d", cur.PageID(), parent.PageID())

	var rightID, leftID storagepage.ID = storagepage.INVALID, storagepage.INVALID
	if myPos+1 < parentNode.size() {
		rightID = parentNode.children[myPos+1]
	}
	if myPos-1 >= 0 {
		leftID = parentNode.children[myPos-1]
	}

	switch {
	case rightID != storagepage.INVALID:
		rightGuard, ok := t.pool.FetchPageWrite(rightID)
		mustf(ok, "bptree: fetch right sibling %d", rightID)
		rightLeaf := decodeLeaf(rightGuard.Data(), t.kc, t.vc)

		if rightLeaf.size() > minSize(rightLeaf.maxSize) {
			leaf.keys = append(leaf.keys, rightLeaf.keys[0])
			leaf.values = append(leaf.values, rightLeaf.values[0])
			rightLeaf.keys = slices.Delete(rightLeaf.keys, 0, 1)
			rightLeaf.values = slices.Delete(rightLeaf.values, 0, 1)
			leaf.encode(cur.Data(), t.kc, t.vc)
			cur.MarkDirty()
			rightLeaf.encode(rightGuard.Data(), t.kc, t.vc)
			rightGuard.MarkDirty()
			parentNode.keys[myPos+1] = rightLeaf.keys[0]
			parentNode.encode(parent.Data(), t.kc)
			parent.MarkDirty()
			rightGuard.Drop()
			cur.Drop()
			for _, g := range ancestors {
				g.Drop()
			}
			return nil
		}

		leaf.keys = append(leaf.keys, rightLeaf.keys...)
		leaf.values = append(leaf.values, rightLeaf.values...)
		leaf.next = rightLeaf.next
		leaf.encode(cur.Data(), t.kc, t.vc)
		cur.MarkDirty()
		cur.Drop()
		rightGuard.Drop()
		t.pool.DeletePage(rightID)

		parentNode.keys = slices.Delete(parentNode.keys, myPos+1, myPos+2)
		parentNode.children = slices.Delete(parentNode.children, myPos+1, myPos+2)
		t.propagateRemoveInternal(ancestors[:len(ancestors)-1], parent, parentNode)
		return nil

	case leftID != storagepage.INVALID:
		leftGuard, ok := t.pool.FetchPageWrite(leftID)
		mustf(ok, "bptree: fetch left sibling %d", leftID)
		leftLeaf := decodeLeaf(leftGuard.Data(), t.kc, t.vc)

		if leftLeaf.size() > minSize(leftLeaf.maxSize) {
			lastIdx := leftLeaf.size() - 1
			leaf.keys = slices.Insert(leaf.keys, 0, leftLeaf.keys[lastIdx])
			leaf.values = slices.Insert(leaf.values, 0, leftLeaf.values[lastIdx])
			leftLeaf.keys = leftLeaf.keys[:lastIdx]
			leftLeaf.values = leftLeaf.values[:lastIdx]
			leaf.encode(cur.Data(), t.kc, t.vc)
			cur.MarkDirty()
			leftLeaf.encode(leftGuard.Data(), t.kc, t.vc)
			leftGuard.MarkDirty()
			parentNode.keys[myPos] = leaf.keys[0]
			parentNode.encode(parent.Data(), t.kc)
			parent.MarkDirty()
			leftGuard.Drop()
			cur.Drop()
			for _, g := range ancestors {
				g.Drop()
			}
			return nil
		}

		leftLeaf.keys = append(leftLeaf.keys, leaf.keys...)
		leftLeaf.values = append(leftLeaf.values, leaf.values...)
		leftLeaf.next = leaf.next
		leftLeaf.encode(leftGuard.Data(), t.kc, t.vc)
		leftGuard.MarkDirty()
		leftGuard.Drop()
		cur.Drop()
		t.pool.DeletePage(cur.PageID())

		parentNode.keys = slices.Delete(parentNode.keys, myPos, myPos+1)
		parentNode.children = slices.Delete(parentNode.children, myPos, myPos+1)
		t.propagateRemoveInternal(ancestors[:len(ancestors)-1], parent, parentNode)
		return nil

	default:
		// A non-root leaf with no siblings at all cannot happen once the
		// tree has more than one leaf; leave the sparse leaf as-is rather
		// than fail the whole removal.
		leaf.encode(cur.Data(), t.kc, t.vc)
		cur.MarkDirty()
		cur.Drop()
		for _, g := range ancestors {
			g.Drop()
		}
		return nil
	}
}

// propagateRemoveInternal restores the minSize invariant for node and,
// transitively, for every ancestor a merge forces it to touch, following
// the same right-into-left merge convention as the leaf level. ancestors
// holds the guards still latched above node: it starts with the header
// page unless Remove's descent already released it above a safe node, and
// it is empty when node itself is that safe node. Every guard passed in,
// plus node itself, is dropped before this function returns.
func (t *Tree[K, V]) propagateRemoveInternal(ancestors []*bufferpool.WritePageGuard, node *bufferpool.WritePageGuard, nodeData *internalNode[K]) {
	for {
		isRoot := len(ancestors) == 1 && ancestors[0].PageID() == t.headerPageID
		min := minSize(nodeData.maxSize)
		if isRoot {
			// An internal root is only valid down to 2 children; losing
			// a second one means this level no longer carries its own
			// weight and collapses into its single remaining child.
			min = 2
		}
		// With no ancestors left, node was proven safe during the descent,
		// so losing one child cannot underflow it.
		if nodeData.size() >= min || len(ancestors) == 0 {
			nodeData.encode(node.Data(), t.kc)
			node.MarkDirty()
			node.Drop()
			for _, g := range ancestors {
				g.Drop()
			}
			return
		}

		if isRoot {
			// size < 2 here, and size == 0 is impossible (a root that
			// lost its last child would have emptied the tree at the
			// leaf level instead), so size must be exactly 1: collapse
			// this level into the root.
			header := ancestors[0]
			binary.LittleEndian.PutUint32(header.Data()[headerRootOffset:], uint32(int32(nodeData.children[0])))
			header.MarkDirty()
			node.Drop()
			t.pool.DeletePage(node.PageID())
			for _, g := range ancestors {
				g.Drop()
			}
			return
		}

		parent := ancestors[len(ancestors)-1]
		parentNode := decodeInternal(parent.Data(), t.kc)
		myPos := parentNode.indexOfChild(node.PageID())
		mustf(myPos >= 0, "bptree: node %d not found in parent %d", node.PageID(), parent.PageID())

		var rightID, leftID storagepage.ID = storagepage.INVALID, storagepage.INVALID
		if myPos+1 < parentNode.size() {
			rightID = parentNode.children[myPos+1]
		}
		if myPos-1 >= 0 {
			leftID = parentNode.children[myPos-1]
		}

		switch {
		case rightID != storagepage.INVALID:
			rightGuard, ok := t.pool.FetchPageWrite(rightID)
			mustf(ok, "bptree: fetch right sibling %d", rightID)
			rightNode := decodeInternal(rightGuard.Data(), t.kc)

			if rightNode.size() > minSize(rightNode.maxSize) {
				// The key that belongs at node's new last slot is the
				// parent's current separator, not rightNode.keys[0] (its
				// own unused sentinel). Capture it before the parent
				// entry is overwritten below.
				oldSep := parentNode.keys[myPos+1]
				nodeData.keys = append(nodeData.keys, oldSep)
				nodeData.children = append(nodeData.children, rightNode.children[0])
				rightNode.keys = slices.Delete(rightNode.keys, 0, 1)
				rightNode.children = slices.Delete(rightNode.children, 0, 1)
				nodeData.encode(node.Data(), t.kc)
				node.MarkDirty()
				rightNode.encode(rightGuard.Data(), t.kc)
				rightGuard.MarkDirty()
				parentNode.keys[myPos+1] = rightNode.keys[0]
				parentNode.encode(parent.Data(), t.kc)
				parent.MarkDirty()
				rightGuard.Drop()
				node.Drop()
				for _, g := range ancestors {
					g.Drop()
				}
				return
			}

			// rightNode.keys[0] is its own unused sentinel; the real
			// separator between node's last child and rightNode's first
			// child is the parent's entry, which must be pulled down
			// rather than discarded with the deleted parent entry.
			nodeData.keys = append(nodeData.keys, parentNode.keys[myPos+1])
			nodeData.keys = append(nodeData.keys, rightNode.keys[1:]...)
			nodeData.children = append(nodeData.children, rightNode.children...)
			nodeData.encode(node.Data(), t.kc)
			node.MarkDirty()
			node.Drop()
			rightGuard.Drop()
			t.pool.DeletePage(rightID)

			parentNode.keys = slices.Delete(parentNode.keys, myPos+1, myPos+2)
			parentNode.children = slices.Delete(parentNode.children, myPos+1, myPos+2)
			ancestors, node, nodeData = ancestors[:len(ancestors)-1], parent, parentNode

		case leftID != storagepage.INVALID:
			leftGuard, ok := t.pool.FetchPageWrite(leftID)
			mustf(ok, "bptree: fetch left sibling %d", leftID)
			leftNode := decodeInternal(leftGuard.Data(), t.kc)

			if leftNode.size() > minSize(leftNode.maxSize) {
				lastIdx := leftNode.size() - 1
				// leftNode.keys[lastIdx] routed to the borrowed child
				// inside leftNode; it becomes the new parent separator.
				// The parent's current separator becomes node's key at
				// position 1 (position 0 stays the unused sentinel).
				oldSep := parentNode.keys[myPos]
				newSep := leftNode.keys[lastIdx]
				nodeData.children = slices.Insert(nodeData.children, 0, leftNode.children[lastIdx])
				nodeData.keys = slices.Insert(nodeData.keys, 1, oldSep)
				leftNode.keys = leftNode.keys[:lastIdx]
				leftNode.children = leftNode.children[:lastIdx]
				nodeData.encode(node.Data(), t.kc)
				node.MarkDirty()
				leftNode.encode(leftGuard.Data(), t.kc)
				leftGuard.MarkDirty()
				parentNode.keys[myPos] = newSep
				parentNode.encode(parent.Data(), t.kc)
				parent.MarkDirty()
				leftGuard.Drop()
				node.Drop()
				for _, g := range ancestors {
					g.Drop()
				}
				return
			}

			// nodeData.keys[0] is its own unused sentinel; the real
			// separator between leftNode's last child and nodeData's
			// first child is the parent's entry for nodeData itself.
			leftNode.keys = append(leftNode.keys, parentNode.keys[myPos])
			leftNode.keys = append(leftNode.keys, nodeData.keys[1:]...)
			leftNode.children = append(leftNode.children, nodeData.children...)
			leftNode.encode(leftGuard.Data(), t.kc)
			leftGuard.MarkDirty()
			leftGuard.Drop()
			node.Drop()
			t.pool.DeletePage(node.PageID())

			parentNode.keys = slices.Delete(parentNode.keys, myPos, myPos+1)
			parentNode.children = slices.Delete(parentNode.children, myPos, myPos+1)
			ancestors, node, nodeData = ancestors[:len(ancestors)-1], parent, parentNode

		default:
			nodeData.encode(node.Data(), t.kc)
			node.MarkDirty()
			node.Drop()
			for _, g := range ancestors {
				g.Drop()
			}
			return
		}
	}
}
