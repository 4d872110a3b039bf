// Package diskio is the external collaborator spec.md section 1 calls the
// "disk manager": a page-addressable block device exposing ReadPage/WritePage.
// The buffer pool consumes it opaquely through the Manager interface; this
// package also ships two concrete implementations (in-memory and on-disk)
// since every correctness test needs something real to drive against, the
// same way the teacher repo ships both an InMemoryPager and an OnDiskPager.
package diskio

import (
	"bufftree/storagepage"
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Manager is the disk-manager contract the buffer pool consumes. ReadPage
// and WritePage are synchronous and operate on a fixed storagepage.PageSize
// buffer. AllocatePage/DeallocatePage manage the disk-side id space; the
// buffer pool keeps its own monotonic page-id counter (spec section 4.2) and
// only calls DeallocatePage, on DeletePage, which must be idempotent.
type Manager interface {
	ReadPage(id storagepage.ID, buf *[storagepage.PageSize]byte) error
	WritePage(id storagepage.ID, buf *[storagepage.PageSize]byte) error
	AllocatePage() (storagepage.ID, error)
	DeallocatePage(id storagepage.ID) error
}

// ErrPageChecksum is returned by ReadPage when the trailing xxhash64
// checksum stamped by WritePage does not match the page's content —
// the corruption-detection path both reference managers implement.
var ErrPageChecksum = fmt.Errorf("diskio: page checksum mismatch")

// checksumSize is the width, in bytes, of the trailing xxhash64 digest
// WritePage appends after the page payload and ReadPage verifies.
const checksumSize = 8

// payloadSize is how much of storagepage.PageSize is available to callers
// once the trailing checksum is reserved.
const payloadSize = storagepage.PageSize - checksumSize

func stampChecksum(buf *[storagepage.PageSize]byte) {
	sum := xxhash.Sum64(buf[:payloadSize])
	for i := 0; i < checksumSize; i++ {
		buf[payloadSize+i] = byte(sum >> (8 * i))
	}
}

func verifyChecksum(buf *[storagepage.PageSize]byte) bool {
	var want uint64
	for i := 0; i < checksumSize; i++ {
		want |= uint64(buf[payloadSize+i]) << (8 * i)
	}
	return xxhash.Sum64(buf[:payloadSize]) == want
}

// MemoryManager is an in-memory Manager, analogous to the teacher's
// InMemoryPager (bplustree/disk_pager.go) — used by tests and by any
// caller that does not need durability across process restarts.
type MemoryManager struct {
	mu       sync.RWMutex
	pages    map[storagepage.ID]*[storagepage.PageSize]byte
	nextPage storagepage.ID
}

// NewMemoryManager returns a Manager backed by a plain map.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		pages:    make(map[storagepage.ID]*[storagepage.PageSize]byte),
		nextPage: 0,
	}
}

func (m *MemoryManager) ReadPage(id storagepage.ID, buf *[storagepage.PageSize]byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.pages[id]
	if !ok {
		// Reading a page that was never written is not an error in this
		// reference implementation: a freshly allocated page reads as
		// zeros, matching NewPage's "zero the frame" contract.
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	*buf = *stored
	if !verifyChecksum(buf) {
		return ErrPageChecksum
	}
	return nil
}

func (m *MemoryManager) WritePage(id storagepage.ID, buf *[storagepage.PageSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stampChecksum(buf)
	stored := new([storagepage.PageSize]byte)
	*stored = *buf
	m.pages[id] = stored
	return nil
}

func (m *MemoryManager) AllocatePage() (storagepage.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPage
	m.nextPage++
	return id, nil
}

func (m *MemoryManager) DeallocatePage(id storagepage.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	return nil
}

// FileManager is a file-backed Manager, analogous to the teacher's
// OnDiskPager / storage_engine/disk_manager — pages live at a fixed offset
// (id * storagepage.PageSize) inside one file.
type FileManager struct {
	mu       sync.RWMutex
	file     *os.File
	nextPage storagepage.ID
}

// NewFileManager opens (creating if absent) the database file at path and
// derives the next free page id from its current size.
func NewFileManager(path string) (*FileManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskio: failed to open %s: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("diskio: failed to stat %s: %w", path, err)
	}
	numPages := stat.Size() / storagepage.PageSize
	return &FileManager{file: file, nextPage: storagepage.ID(numPages)}, nil
}

func (m *FileManager) ReadPage(id storagepage.ID, buf *[storagepage.PageSize]byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offset := int64(id) * storagepage.PageSize
	n, err := m.file.ReadAt(buf[:], offset)
	if err != nil {
		if n == 0 {
			for i := range buf {
				buf[i] = 0
			}
			return nil
		}
		return fmt.Errorf("diskio: failed to read page %d: %w", id, err)
	}
	if !verifyChecksum(buf) {
		return ErrPageChecksum
	}
	return nil
}

func (m *FileManager) WritePage(id storagepage.ID, buf *[storagepage.PageSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stampChecksum(buf)
	offset := int64(id) * storagepage.PageSize
	if _, err := m.file.WriteAt(buf[:], offset); err != nil {
		return fmt.Errorf("diskio: failed to write page %d: %w", id, err)
	}
	return nil
}

func (m *FileManager) AllocatePage() (storagepage.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPage
	m.nextPage++
	return id, nil
}

func (m *FileManager) DeallocatePage(id storagepage.ID) error {
	// No free-list in this reference implementation: disk space for a
	// deallocated page is never reused. Idempotent, per spec section 6.
	return nil
}

// Sync flushes the underlying file to stable storage.
func (m *FileManager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Sync()
}

// Close syncs and closes the underlying file.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return fmt.Errorf("diskio: failed to sync before close: %w", err)
	}
	return m.file.Close()
}
