package bufferpool

import (
	"fmt"

	"bufftree/storagepage"
	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of pool occupancy, in the same spirit
// as the teacher's BufferPoolStats (storage_engine/bufferpool/structs.go).
type Stats struct {
	Capacity    int
	Resident    int
	Pinned      int
	Dirty       int
	EvictableAt int // replacer.Size() at the moment of the snapshot
}

// Stats gathers a fresh snapshot under the pool's mutex.
func (p *PoolManager) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Capacity: p.poolSize, Resident: len(p.pageTable)}
	for id := range p.pageTable {
		fid := p.pageTable[id]
		f := p.frames[fid]
		if f.PinCount > 0 {
			s.Pinned++
		}
		if f.Dirty {
			s.Dirty++
		}
	}
	s.EvictableAt = p.replacer.Size()
	return s
}

// String renders a Stats snapshot the way the teacher's bracketed trace
// lines do ("[BufferPool] ..."), with byte/page counts humanized for a
// terminal reader rather than left as raw integers.
func (s Stats) String() string {
	return fmt.Sprintf(
		"[BufferPool] resident=%s/%s pinned=%s dirty=%s evictable=%s (%s resident bytes)",
		humanize.Comma(int64(s.Resident)), humanize.Comma(int64(s.Capacity)),
		humanize.Comma(int64(s.Pinned)), humanize.Comma(int64(s.Dirty)),
		humanize.Comma(int64(s.EvictableAt)),
		humanize.Bytes(uint64(s.Resident)*storagepage.PageSize),
	)
}
