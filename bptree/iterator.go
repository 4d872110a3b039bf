package bptree

import "bufftree/storagepage"

// Iterator is a forward cursor over the tree's leaves in key order,
// grounded on original_source/index_iterator.cpp's Begin/operator++/End
// trio. It never holds a latch between calls — each Next takes a brief
// shared guard on the next leaf, decodes it, and drops the guard before
// returning, per spec.md section 4.3.4.
type Iterator[K any, V any] struct {
	t    *Tree[K, V]
	leaf *leafNode[K, V]
	idx  int
	done bool
}

// Valid reports whether Key/Value currently point at a live entry.
func (it *Iterator[K, V]) Valid() bool { return !it.done }

// Key returns the current entry's key. Valid must be true.
func (it *Iterator[K, V]) Key() K { return it.leaf.keys[it.idx] }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator[K, V]) Value() V { return it.leaf.values[it.idx] }

// Next advances the cursor, crossing into the next leaf (possibly several,
// skipping any that a concurrent merge has left empty) when the current
// leaf is exhausted.
func (it *Iterator[K, V]) Next() {
	if it.done {
		return
	}
	it.idx++
	for it.idx >= it.leaf.size() {
		if it.leaf.next == storagepage.INVALID {
			it.done = true
			return
		}
		guard, ok := it.t.pool.FetchPageRead(it.leaf.next)
		mustf(ok, "bptree: fetch leaf %d", it.leaf.next)
		it.leaf = decodeLeaf(guard.Data(), it.t.kc, it.t.vc)
		guard.Drop()
		it.idx = 0
	}
}

// Begin returns a cursor positioned at the tree's smallest key.
func (t *Tree[K, V]) Begin() *Iterator[K, V] {
	leaf, idx, ok := t.firstLeafFrom(func(*internalNode[K]) int { return 0 })
	if !ok {
		return &Iterator[K, V]{t: t, done: true}
	}
	return t.advanceToNonEmpty(leaf, idx)
}

// BeginAt returns a cursor positioned at the first key >= target.
func (t *Tree[K, V]) BeginAt(target K) *Iterator[K, V] {
	leaf, _, ok := t.firstLeafFrom(func(n *internalNode[K]) int { return n.childIndex(target, t.kc) })
	if !ok {
		return &Iterator[K, V]{t: t, done: true}
	}
	idx := leaf.lowerBound(target, t.kc)
	return t.advanceToNonEmpty(leaf, idx)
}

// End returns the terminal, always-invalid cursor — matching the
// original Begin()/End() pair shape even though a plain Valid() == false
// already carries the same meaning in idiomatic Go.
func (t *Tree[K, V]) End() *Iterator[K, V] {
	return &Iterator[K, V]{t: t, done: true}
}

// firstLeafFrom descends from the root using pick to choose a child at
// each internal level, decoding and returning the leaf it lands on. It
// acquires the root through fetchRootRead rather than t.rootPageID()
// followed by a separate fetch, so the header's latch is never released
// until the root's own latch is already held.
func (t *Tree[K, V]) firstLeafFrom(pick func(*internalNode[K]) int) (*leafNode[K, V], int, bool) {
	guard, ok := t.fetchRootRead()
	if !ok {
		return nil, 0, false
	}
	for pageTag(guard.Data()[0]) == tagInternal {
		internal := decodeInternal(guard.Data(), t.kc)
		childID := internal.children[pick(internal)]
		child, ok := t.pool.FetchPageRead(childID)
		mustf(ok, "bptree: fetch child page %d", childID)
		guard.Drop()
		guard = child
	}
	leaf := decodeLeaf(guard.Data(), t.kc, t.vc)
	guard.Drop()
	return leaf, 0, true
}

// advanceToNonEmpty skips forward over any leaf a concurrent merge has
// left empty, starting from (leaf, idx).
func (t *Tree[K, V]) advanceToNonEmpty(leaf *leafNode[K, V], idx int) *Iterator[K, V] {
	for idx >= leaf.size() {
		if leaf.next == storagepage.INVALID {
			return &Iterator[K, V]{t: t, done: true}
		}
		guard, ok := t.pool.FetchPageRead(leaf.next)
		mustf(ok, "bptree: fetch leaf %d", leaf.next)
		leaf = decodeLeaf(guard.Data(), t.kc, t.vc)
		guard.Drop()
		idx = 0
	}
	return &Iterator[K, V]{t: t, leaf: leaf, idx: idx}
}
