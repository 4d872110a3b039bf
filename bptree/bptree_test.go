package bptree

import (
	"testing"

	"bufftree/bptree/keycodec"
	"bufftree/bufferpool"
	"bufftree/diskio"
	"bufftree/storagepage"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree[int64, int64] {
	t.Helper()
	pool := bufferpool.New(64, 2, diskio.NewMemoryManager())
	tree, err := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, leafMax, internalMax)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

// TestInsertAndSplitPropagates matches spec.md section 8's small-fanout
// scenario: leaf_max_size=3, internal_max_size=3, enough inserts to force
// at least one leaf split and one internal split, every key still
// reachable afterward.
func TestInsertAndSplitPropagates(t *testing.T) {
	tree := newTestTree(t, 3, 3)
	keys := []int64{10, 20, 5, 15, 25, 30, 1, 7, 12, 17, 22, 27}

	for _, k := range keys {
		if err := tree.Insert(k, k*100); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	for _, k := range keys {
		v, ok := tree.GetValue(k)
		if !ok {
			t.Fatalf("GetValue(%d): not found after insert", k)
		}
		if v != k*100 {
			t.Fatalf("GetValue(%d) = %d, want %d", k, v, k*100)
		}
	}
	if tree.IsEmpty() {
		t.Fatal("tree should not be empty")
	}
	if _, ok := tree.GetValue(999); ok {
		t.Fatal("GetValue(999) should not be found")
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	if err := tree.Insert(1, 10); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if err := tree.Insert(1, 20); err != ErrDuplicateKey {
		t.Fatalf("second Insert(1) error = %v, want ErrDuplicateKey", err)
	}
	v, _ := tree.GetValue(1)
	if v != 10 {
		t.Fatalf("GetValue(1) = %d, want 10 (duplicate insert must not overwrite)", v)
	}
}

// TestRangeScanFromKey mirrors spec.md section 8's range-scan scenario:
// insert 1..100, scan from 42 to the end, and check both the count and
// the strictly increasing order of keys returned.
func TestRangeScanFromKey(t *testing.T) {
	tree := newTestTree(t, 5, 5)
	for k := int64(1); k <= 100; k++ {
		if err := tree.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	it := tree.BeginAt(42)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		it.Next()
	}

	if len(got) != 59 {
		t.Fatalf("scanned %d keys, want 59", len(got))
	}
	for i, k := range got {
		want := int64(42 + i)
		if k != want {
			t.Fatalf("got[%d] = %d, want %d", i, k, want)
		}
	}
}

func TestFullScanFromBegin(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	want := []int64{3, 1, 4, 1_000, 5, 9, 2, 6}
	inserted := map[int64]bool{}
	for _, k := range want {
		if inserted[k] {
			continue
		}
		inserted[k] = true
		if err := tree.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	it := tree.Begin()
	prev := int64(-1 << 62)
	count := 0
	for it.Valid() {
		if it.Key() <= prev {
			t.Fatalf("keys out of order: %d after %d", it.Key(), prev)
		}
		prev = it.Key()
		count++
		it.Next()
	}
	if count != len(inserted) {
		t.Fatalf("scanned %d keys, want %d", count, len(inserted))
	}
}

// TestDeleteTriggersMerge matches spec.md section 8's merge-on-delete
// scenario: leaf_max_size=4, insert 1..10, then delete a contiguous run
// that forces at least one leaf merge, and confirm the tree still answers
// every remaining key correctly and none of the deleted ones.
func TestDeleteTriggersMerge(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for k := int64(1); k <= 10; k++ {
		if err := tree.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	for _, k := range []int64{5, 6, 7, 8} {
		if err := tree.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
	}

	for _, k := range []int64{5, 6, 7, 8} {
		if _, ok := tree.GetValue(k); ok {
			t.Fatalf("GetValue(%d) should fail after removal", k)
		}
	}
	for _, k := range []int64{1, 2, 3, 4, 9, 10} {
		v, ok := tree.GetValue(k)
		if !ok || v != k {
			t.Fatalf("GetValue(%d) = (%d, %v), want (%d, true)", k, v, ok, k)
		}
	}

	it := tree.Begin()
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		it.Next()
	}
	want := []int64{1, 2, 3, 4, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("scan after merge = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan after merge = %v, want %v", got, want)
		}
	}
}

// TestClearToEmpty matches spec.md section 8's empty-after-full-clear
// scenario: insert {7,3,9,1,5} then remove every key, and confirm the
// tree reports empty and every lookup fails.
func TestClearToEmpty(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keys := []int64{7, 3, 9, 1, 5}
	for _, k := range keys {
		if err := tree.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	for _, k := range keys {
		if err := tree.Remove(k); err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
	}

	if !tree.IsEmpty() {
		t.Fatal("tree should be empty after removing every key")
	}
	if got := tree.GetRootPageID(); got != storagepage.INVALID {
		t.Fatalf("GetRootPageID() = %d, want storagepage.INVALID", got)
	}
	for _, k := range keys {
		if _, ok := tree.GetValue(k); ok {
			t.Fatalf("GetValue(%d) should fail on an empty tree", k)
		}
	}
	if tree.Begin().Valid() {
		t.Fatal("Begin() on an empty tree should be immediately invalid")
	}
}

// TestDeleteDrainsDeepTree builds a tree several internal levels deep
// (leaf_max_size=3, internal_max_size=3, 200 keys) and removes them all in
// a scrambled order, forcing internal-level redistribution and merges
// along the way — not just the leaf-level case TestDeleteTriggersMerge
// exercises. Every prefix of the removal order must leave the remaining
// keys reachable and every removed key gone.
func TestDeleteDrainsDeepTree(t *testing.T) {
	tree := newTestTree(t, 3, 3)
	const n = 200
	for k := int64(0); k < n; k++ {
		if err := tree.Insert(k, k*7); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	order := make([]int64, n)
	for i := range order {
		order[i] = int64((i*97 + 13) % n)
	}
	removed := map[int64]bool{}
	for step, k := range order {
		if removed[k] {
			continue
		}
		if err := tree.Remove(k); err != nil {
			t.Fatalf("step %d: Remove(%d): %v", step, k, err)
		}
		removed[k] = true

		if step%25 != 0 {
			continue
		}
		for probe := int64(0); probe < n; probe++ {
			v, ok := tree.GetValue(probe)
			if removed[probe] {
				if ok {
					t.Fatalf("step %d: GetValue(%d) found removed key", step, probe)
				}
				continue
			}
			if !ok || v != probe*7 {
				t.Fatalf("step %d: GetValue(%d) = (%d, %v), want (%d, true)", step, probe, v, ok, probe*7)
			}
		}
	}

	if !tree.IsEmpty() {
		t.Fatal("tree should be empty after removing every key")
	}
}

func TestRemoveMissingKeyFails(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	if err := tree.Remove(1); err != ErrKeyNotFound {
		t.Fatalf("Remove on empty tree error = %v, want ErrKeyNotFound", err)
	}
	tree.Insert(1, 1)
	if err := tree.Remove(2); err != ErrKeyNotFound {
		t.Fatalf("Remove(2) error = %v, want ErrKeyNotFound", err)
	}
}

func TestOpenReattachesExistingTree(t *testing.T) {
	pool := bufferpool.New(64, 2, diskio.NewMemoryManager())
	tree, err := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for k := int64(1); k <= 20; k++ {
		tree.Insert(k, k*10)
	}

	reopened := Open[int64, int64](pool, tree.HeaderPageID(), keycodec.Int64{}, keycodec.Int64{}, 4, 4)
	v, ok := reopened.GetValue(13)
	if !ok || v != 130 {
		t.Fatalf("GetValue(13) on reopened tree = (%d, %v), want (130, true)", v, ok)
	}
}
