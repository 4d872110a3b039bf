package bufferpool

import (
	"testing"

	"bufftree/diskio"
	"bufftree/storagepage"
)

// TestGuardLifecycle exercises a pool of 5 frames (k=2) the way spec.md
// section 8's guard-lifecycle scenario does: fetch, write through a
// guard, drop, and confirm the write survived a later re-fetch.
func TestGuardLifecycle(t *testing.T) {
	pool := New(5, 2, diskio.NewMemoryManager())

	w, ok := pool.NewPageGuarded()
	if !ok {
		t.Fatal("NewPageGuarded failed")
	}
	id := w.PageID()
	w.Data()[0] = 0x42
	w.MarkDirty()
	w.Drop()

	r, ok := pool.FetchPageRead(id)
	if !ok {
		t.Fatal("FetchPageRead failed")
	}
	if got := r.Data()[0]; got != 0x42 {
		t.Fatalf("Data()[0] = %#x, want 0x42", got)
	}
	r.Drop()

	if got := pool.Stats().Pinned; got != 0 {
		t.Fatalf("Pinned = %d, want 0 after both guards dropped", got)
	}
}

func TestDoubleDropIsNoop(t *testing.T) {
	pool := New(3, 2, diskio.NewMemoryManager())
	w, ok := pool.NewPageGuarded()
	if !ok {
		t.Fatal("NewPageGuarded failed")
	}
	w.Drop()
	w.Drop() // must not double-unpin
	if got := pool.Stats().Pinned; got != 0 {
		t.Fatalf("Pinned = %d, want 0", got)
	}
}

// TestEvictionUnderFullPool fills every frame, confirms a new page
// request fails while nothing is evictable, then unpins one page and
// confirms eviction makes room again.
func TestEvictionUnderFullPool(t *testing.T) {
	pool := New(2, 2, diskio.NewMemoryManager())

	g1, ok := pool.NewPageGuarded()
	if !ok {
		t.Fatal("NewPageGuarded #1 failed")
	}
	g2, ok := pool.NewPageGuarded()
	if !ok {
		t.Fatal("NewPageGuarded #2 failed")
	}

	if _, _, ok := pool.NewPage(); ok {
		t.Fatal("NewPage should fail: all frames pinned, nothing evictable")
	}

	g1.Drop()
	id3, _, ok := pool.NewPage()
	if !ok {
		t.Fatal("NewPage should succeed after unpinning g1")
	}
	if id3 == g2.PageID() {
		t.Fatalf("new page reused still-pinned page %d", id3)
	}
	g2.Drop()
}

func TestUnpinUnknownPageIsFalse(t *testing.T) {
	pool := New(2, 2, diskio.NewMemoryManager())
	if pool.UnpinPage(storagepage.INVALID, false) {
		t.Fatal("UnpinPage(INVALID) should report false")
	}
	if pool.UnpinPage(99, false) {
		t.Fatal("UnpinPage(never-fetched) should report false")
	}
}

func TestDeletePageRefusesWhilePinned(t *testing.T) {
	pool := New(2, 2, diskio.NewMemoryManager())
	id, _, ok := pool.NewPage()
	if !ok {
		t.Fatal("NewPage failed")
	}
	if pool.DeletePage(id) {
		t.Fatal("DeletePage should refuse a still-pinned page")
	}
	pool.UnpinPage(id, false)
	if !pool.DeletePage(id) {
		t.Fatal("DeletePage should succeed once unpinned")
	}
}

func TestFlushAllPages(t *testing.T) {
	pool := New(4, 2, diskio.NewMemoryManager())
	var ids []storagepage.ID
	for i := 0; i < 3; i++ {
		g, ok := pool.NewPageGuarded()
		if !ok {
			t.Fatalf("NewPageGuarded #%d failed", i)
		}
		g.Data()[0] = byte(i + 1)
		g.MarkDirty()
		ids = append(ids, g.PageID())
		g.Drop()
	}
	pool.FlushAllPages()
	if got := pool.Stats().Dirty; got != 0 {
		t.Fatalf("Dirty = %d, want 0 after FlushAllPages", got)
	}
}
