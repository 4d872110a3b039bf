package bufferpool

import "bufftree/storagepage"

// BasicPageGuard is a pinned page with no latch held. It is the RAII
// handle spec.md section 4.2/9 describes: acquiring one pins the frame;
// Drop unpins it. Guards are movable but not copyable in the source this
// is translated from — in Go that is enforced by convention (always pass
// by pointer, never copy the struct) plus a dropped flag that turns a
// double Drop into a no-op rather than a double-unpin.
type BasicPageGuard struct {
	pool    *PoolManager
	pageID  storagepage.ID
	frame   *storagepage.Frame
	dropped bool
}

// PageID returns the guarded page's id.
func (g *BasicPageGuard) PageID() storagepage.ID { return g.pageID }

// Data exposes the raw page bytes. Callers must not retain this slice past
// Drop — the frame may be reused for a different page afterward.
func (g *BasicPageGuard) Data() *[storagepage.PageSize]byte { return &g.frame.Data }

// MarkDirty flags the underlying frame dirty immediately, independent of
// what isDirty value Drop eventually reports to UnpinPage.
func (g *BasicPageGuard) MarkDirty() {
	g.pool.mu.Lock()
	g.frame.Dirty = true
	g.pool.mu.Unlock()
}

// Drop unpins the page. Safe to call multiple times; only the first call
// has an effect. isDirty is OR-accumulated into the frame's dirty flag by
// UnpinPage, same as MarkDirty.
func (g *BasicPageGuard) Drop(isDirty bool) {
	if g.dropped {
		return
	}
	g.dropped = true
	g.pool.UnpinPage(g.pageID, isDirty)
}

// UpgradeRead consumes this basic guard and returns an equivalent guard
// holding the frame's shared latch, without an extra round trip through
// the pool's pin/unpin bookkeeping (original_source/page_guard.cpp).
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	g.dropped = true
	g.frame.RLock()
	return &ReadPageGuard{pool: g.pool, pageID: g.pageID, frame: g.frame}
}

// UpgradeWrite consumes this basic guard and returns an equivalent guard
// holding the frame's exclusive latch.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	g.dropped = true
	g.frame.Lock()
	return &WritePageGuard{pool: g.pool, pageID: g.pageID, frame: g.frame}
}

// ReadPageGuard pairs a pin with the frame's shared latch.
type ReadPageGuard struct {
	pool    *PoolManager
	pageID  storagepage.ID
	frame   *storagepage.Frame
	dropped bool
}

func (g *ReadPageGuard) PageID() storagepage.ID { return g.pageID }

func (g *ReadPageGuard) Data() *[storagepage.PageSize]byte { return &g.frame.Data }

// Drop releases the shared latch and unpins. Dirty is always false here —
// a reader never produces a dirty page.
func (g *ReadPageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.RUnlock()
	g.pool.UnpinPage(g.pageID, false)
}

// WritePageGuard pairs a pin with the frame's exclusive latch.
type WritePageGuard struct {
	pool    *PoolManager
	pageID  storagepage.ID
	frame   *storagepage.Frame
	dropped bool
}

func (g *WritePageGuard) PageID() storagepage.ID { return g.pageID }

func (g *WritePageGuard) Data() *[storagepage.PageSize]byte { return &g.frame.Data }

func (g *WritePageGuard) MarkDirty() {
	g.pool.mu.Lock()
	g.frame.Dirty = true
	g.pool.mu.Unlock()
}

// Drop releases the exclusive latch and unpins, always reporting dirty —
// a write guard's whole purpose is mutation, so a conservative caller that
// forgets MarkDirty still gets correct write-back behavior.
func (g *WritePageGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.Unlock()
	g.pool.UnpinPage(g.pageID, true)
}

// FetchPageBasic pins id and returns a latch-free guard. ok is false if id
// could not be fetched (invalid id or pool exhausted).
func (p *PoolManager) FetchPageBasic(id storagepage.ID) (*BasicPageGuard, bool) {
	frame, ok := p.FetchPage(id)
	if !ok {
		return nil, false
	}
	return &BasicPageGuard{pool: p, pageID: id, frame: frame}, true
}

// FetchPageRead pins id and acquires its shared latch.
func (p *PoolManager) FetchPageRead(id storagepage.ID) (*ReadPageGuard, bool) {
	frame, ok := p.FetchPage(id)
	if !ok {
		return nil, false
	}
	frame.RLock()
	return &ReadPageGuard{pool: p, pageID: id, frame: frame}, true
}

// FetchPageWrite pins id and acquires its exclusive latch.
func (p *PoolManager) FetchPageWrite(id storagepage.ID) (*WritePageGuard, bool) {
	frame, ok := p.FetchPage(id)
	if !ok {
		return nil, false
	}
	frame.Lock()
	return &WritePageGuard{pool: p, pageID: id, frame: frame}, true
}

// NewPageGuarded allocates a fresh page pinned under its exclusive latch —
// safe immediately because nothing else can have observed the new id yet,
// but taking the latch keeps the guard type uniform with FetchPageWrite.
func (p *PoolManager) NewPageGuarded() (*WritePageGuard, bool) {
	id, frame, ok := p.NewPage()
	if !ok {
		return nil, false
	}
	frame.Lock()
	return &WritePageGuard{pool: p, pageID: id, frame: frame}, true
}
