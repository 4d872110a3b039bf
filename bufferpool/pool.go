// Package bufferpool implements the fixed-size buffer pool manager of
// spec.md section 4.2: frame allocation, pin/unpin, dirty write-back, and
// the page_id <-> frame_id map, backed by an LRU-K replacer and a disk
// manager consumed only through the diskio.Manager interface.
package bufferpool

import (
	"fmt"
	"sync"

	"bufftree/diskio"
	"bufftree/replacer"
	"bufftree/storagepage"
)

// PoolManager is the buffer pool manager. A single coarse mutex protects
// the page table, free list, next-page-id counter, and (transitively) the
// replacer — spec.md section 5 requires the replacer only ever be entered
// while holding this lock.
type PoolManager struct {
	mu sync.Mutex

	frames    []*storagepage.Frame
	freeList  []storagepage.FrameID
	pageTable map[storagepage.ID]storagepage.FrameID

	replacer *replacer.LRUK
	disk     diskio.Manager

	nextPageID storagepage.ID
	poolSize   int
}

// New builds a pool of poolSize frames over disk, with an LRU-K replacer
// configured for k historical accesses per frame.
func New(poolSize int, k int, disk diskio.Manager) *PoolManager {
	frames := make([]*storagepage.Frame, poolSize)
	freeList := make([]storagepage.FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = &storagepage.Frame{}
		freeList[i] = storagepage.FrameID(i)
	}
	return &PoolManager{
		frames:    frames,
		freeList:  freeList,
		pageTable: make(map[storagepage.ID]storagepage.FrameID),
		replacer:  replacer.New(poolSize, k),
		disk:      disk,
		poolSize:  poolSize,
	}
}

// PoolSize returns the fixed number of frames this pool manages.
func (p *PoolManager) PoolSize() int { return p.poolSize }

// grabFrame returns a frame ready to host a new page: from the free list if
// one exists, else by evicting via the replacer (flushing first if dirty).
// Caller must hold p.mu.
func (p *PoolManager) grabFrame() (storagepage.FrameID, bool) {
	if n := len(p.freeList); n > 0 {
		fid := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return fid, true
	}

	fid, ok := p.replacer.Evict()
	if !ok {
		return 0, false
	}

	frame := p.frames[fid]
	if frame.Dirty {
		if err := p.disk.WritePage(frame.PageID, &frame.Data); err != nil {
			panic(fmt.Sprintf("bufferpool: fatal write-back failure for page %d: %v", frame.PageID, err))
		}
	}
	delete(p.pageTable, frame.PageID)
	return fid, true
}

// NewPage allocates a brand-new page backed by a free or evicted frame,
// pins it once, and returns its frame. ok is false (and id INVALID) when
// the pool is fully pinned and has nothing to evict.
func (p *PoolManager) NewPage() (id storagepage.ID, frame *storagepage.Frame, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, got := p.grabFrame()
	if !got {
		return storagepage.INVALID, nil, false
	}

	newID := p.nextPageID
	p.nextPageID++

	f := p.frames[fid]
	f.Reset(newID)
	f.PinCount = 1

	p.pageTable[newID] = fid
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)

	return newID, f, true
}

// FetchPage returns the frame holding id, pinning it — reading it in from
// disk through a free/evicted frame first if it is not resident. ok is
// false if id is INVALID or the pool is exhausted.
func (p *PoolManager) FetchPage(id storagepage.ID) (frame *storagepage.Frame, ok bool) {
	if id == storagepage.INVALID {
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, resident := p.pageTable[id]; resident {
		f := p.frames[fid]
		f.PinCount++
		p.replacer.RecordAccess(fid)
		p.replacer.SetEvictable(fid, false)
		return f, true
	}

	fid, got := p.grabFrame()
	if !got {
		return nil, false
	}

	f := p.frames[fid]
	f.Reset(id)
	if err := p.disk.ReadPage(id, &f.Data); err != nil {
		panic(fmt.Sprintf("bufferpool: fatal read failure for page %d: %v", id, err))
	}
	f.PinCount = 1

	p.pageTable[id] = fid
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)

	return f, true
}

// UnpinPage decrements id's pin count, OR-accumulating isDirty into the
// frame's dirty flag, and marks the frame evictable once the count reaches
// zero. Returns false if id is not resident or already unpinned.
func (p *PoolManager) UnpinPage(id storagepage.ID, isDirty bool) bool {
	if id == storagepage.INVALID {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fid, resident := p.pageTable[id]
	if !resident {
		return false
	}
	f := p.frames[fid]
	if f.PinCount == 0 {
		return false
	}

	if isDirty {
		f.Dirty = true
	}
	f.PinCount--
	if f.PinCount == 0 {
		p.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage writes id to disk unconditionally (spec.md's "explicit flush
// always writes" policy) and clears its dirty flag. Returns false if id is
// not resident.
func (p *PoolManager) FlushPage(id storagepage.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, resident := p.pageTable[id]
	if !resident {
		return false
	}
	f := p.frames[fid]
	if err := p.disk.WritePage(id, &f.Data); err != nil {
		panic(fmt.Sprintf("bufferpool: fatal flush failure for page %d: %v", id, err))
	}
	f.Dirty = false
	return true
}

// FlushAllPages writes every resident page to disk, dirty or not.
func (p *PoolManager) FlushAllPages() {
	p.mu.Lock()
	ids := make([]storagepage.ID, 0, len(p.pageTable))
	for id := range p.pageTable {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.FlushPage(id)
	}
}

// DeletePage removes id from the pool and asks the disk manager to
// deallocate it. Returns true if id was already absent (considered
// deleted) or was successfully removed; false if it is still pinned.
func (p *PoolManager) DeletePage(id storagepage.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, resident := p.pageTable[id]
	if !resident {
		return true
	}
	f := p.frames[fid]
	if f.PinCount > 0 {
		return false
	}

	if f.Dirty {
		if err := p.disk.WritePage(id, &f.Data); err != nil {
			panic(fmt.Sprintf("bufferpool: fatal flush-before-delete failure for page %d: %v", id, err))
		}
	}

	p.replacer.Remove(fid)
	delete(p.pageTable, id)
	f.PageID = storagepage.INVALID
	p.freeList = append(p.freeList, fid)

	_ = p.disk.DeallocatePage(id)
	return true
}
