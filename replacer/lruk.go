// Package replacer implements the LRU-K eviction policy (spec.md 4.1): pick
// the evictable frame with the largest K-th-backward distance, breaking
// ties toward the coldest frame. It never touches page content — only
// frame_id bookkeeping — and is always entered under the buffer pool's own
// mutex, per spec.md section 5, in addition to its own internal one.
package replacer

import (
	"fmt"
	"sync"

	"bufftree/storagepage"
)

const infiniteDistance = ^uint64(0)

// node is one frame's access history: a bounded ring of up to K
// timestamps (oldest first), plus whether the pool currently considers
// the frame a candidate for eviction.
type node struct {
	history   []uint64
	evictable bool
}

// LRUK is the replacer described in spec.md 4.1. The zero value is not
// usable — construct with New.
type LRUK struct {
	mu sync.Mutex

	nodeStore       map[storagepage.FrameID]*node
	currentTimestamp uint64
	k               int
	replacerSize    int
	currSize        int
}

// New returns a replacer tracking up to numFrames distinct frame ids, each
// remembering at most k most-recent accesses.
func New(numFrames int, k int) *LRUK {
	return &LRUK{
		nodeStore:    make(map[storagepage.FrameID]*node),
		k:            k,
		replacerSize: numFrames,
	}
}

// RecordAccess notes that frameID was just touched. It creates the node on
// first sight and never changes evictability — that is SetEvictable's job.
func (r *LRUK) RecordAccess(frameID storagepage.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(frameID) >= r.replacerSize {
		panic(fmt.Sprintf("replacer: frame id %d out of range [0, %d)", frameID, r.replacerSize))
	}

	n, ok := r.nodeStore[frameID]
	if !ok {
		n = &node{}
		r.nodeStore[frameID] = n
	}

	r.currentTimestamp++
	n.history = append(n.history, r.currentTimestamp)
	if len(n.history) > r.k {
		n.history = n.history[1:]
	}
}

// SetEvictable marks frameID as eligible (or not) for Evict. A no-op if the
// frame has never been seen by RecordAccess.
func (r *LRUK) SetEvictable(frameID storagepage.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodeStore[frameID]
	if !ok {
		return
	}
	if n.evictable == evictable {
		return
	}
	n.evictable = evictable
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Remove erases frameID's history entirely. It is a fatal programmer error
// to call Remove on a frame that exists but is not evictable (spec.md
// section 7) — that indicates the buffer pool forgot to unpin first.
func (r *LRUK) Remove(frameID storagepage.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodeStore[frameID]
	if !ok {
		return
	}
	if !n.evictable {
		panic(fmt.Sprintf("replacer: Remove called on non-evictable frame %d", frameID))
	}
	delete(r.nodeStore, frameID)
	r.currSize--
}

// Evict selects and removes the best eviction victim among evictable
// frames: largest K-th-backward distance (+Inf for frames with fewer than
// K recorded accesses) wins; among +Inf candidates the oldest first access
// wins; any remaining tie is broken toward the smaller frame id, which is
// the deterministic tie-break this implementation chooses where spec.md
// leaves the source's own tie-breaking under-specified.
func (r *LRUK) Evict() (storagepage.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		victim      storagepage.FrameID
		victimFound bool
		victimDist  uint64
		victimEarly uint64
	)

	for frameID, n := range r.nodeStore {
		if !n.evictable {
			continue
		}

		dist := infiniteDistance
		if len(n.history) == r.k {
			dist = r.currentTimestamp - n.history[0]
		}
		earliest := n.history[0]

		switch {
		case !victimFound:
			victim, victimDist, victimEarly, victimFound = frameID, dist, earliest, true
		case dist > victimDist:
			victim, victimDist, victimEarly = frameID, dist, earliest
		case dist == victimDist:
			if earliest < victimEarly || (earliest == victimEarly && frameID < victim) {
				victim, victimDist, victimEarly = frameID, dist, earliest
			}
		}
	}

	if !victimFound {
		return 0, false
	}

	delete(r.nodeStore, victim)
	r.currSize--
	return victim, true
}

// Size returns the number of currently evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}
