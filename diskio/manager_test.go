package diskio

import (
	"errors"
	"os"
	"testing"

	"bufftree/storagepage"
)

func TestMemoryManagerRoundTrip(t *testing.T) {
	m := NewMemoryManager()
	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}

	var buf [storagepage.PageSize]byte
	buf[0] = 0xAB
	if err := m.WritePage(id, &buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	var out [storagepage.PageSize]byte
	if err := m.ReadPage(id, &out); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if out[0] != 0xAB {
		t.Fatalf("out[0] = %#x, want 0xAB", out[0])
	}
}

func TestMemoryManagerReadUnwrittenPageIsZero(t *testing.T) {
	m := NewMemoryManager()
	var buf [storagepage.PageSize]byte
	buf[0] = 1 // not zeroed by caller; ReadPage must still zero it
	if err := m.ReadPage(storagepage.ID(42), &buf); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %#x, want 0", i, b)
		}
	}
}

func TestChecksumMismatchDetected(t *testing.T) {
	m := NewMemoryManager()
	id, _ := m.AllocatePage()
	var buf [storagepage.PageSize]byte
	if err := m.WritePage(id, &buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	m.pages[id][0] ^= 0xFF // corrupt the payload, leave the checksum stale

	var out [storagepage.PageSize]byte
	err := m.ReadPage(id, &out)
	if !errors.Is(err, ErrPageChecksum) {
		t.Fatalf("ReadPage error = %v, want ErrPageChecksum", err)
	}
}

func TestFileManagerRoundTrip(t *testing.T) {
	path := t.TempDir() + "/test.db"
	fm, err := NewFileManager(path)
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}
	defer fm.Close()

	id, err := fm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	var data [storagepage.PageSize]byte
	data[10] = 7
	if err := fm.WritePage(id, &data); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := fm.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	reopened, err := NewFileManager(path)
	if err != nil {
		t.Fatalf("reopen NewFileManager: %v", err)
	}
	defer reopened.Close()

	var out [storagepage.PageSize]byte
	if err := reopened.ReadPage(id, &out); err != nil {
		t.Fatalf("ReadPage after reopen: %v", err)
	}
	if out[10] != 7 {
		t.Fatalf("out[10] = %d, want 7", out[10])
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected backing file to exist: %v", err)
	}
}
