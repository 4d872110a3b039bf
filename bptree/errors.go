package bptree

import "fmt"

// Sentinel errors a caller can match with errors.Is, following the same
// convention the rest of this module uses (diskio.ErrPageChecksum).
var (
	// ErrKeyNotFound is returned by Remove when the key is absent. GetValue
	// reports absence through its bool return instead, matching the
	// teacher's Get(key) (value, bool) idiom.
	ErrKeyNotFound = fmt.Errorf("bptree: key not found")

	// ErrDuplicateKey is returned by Insert when the key already exists.
	// Spec.md section 4.3.2 treats a duplicate insert as a no-op failure,
	// not an overwrite.
	ErrDuplicateKey = fmt.Errorf("bptree: duplicate key")

	// ErrPoolExhausted is returned by New when the buffer pool cannot
	// produce a frame for the tree's header page — every other fetch or
	// page-allocation failure in this package is treated as a fatal,
	// can't-happen condition instead (mustf panics).
	ErrPoolExhausted = fmt.Errorf("bptree: buffer pool exhausted")
)

// mustf panics with a formatted message when an invariant the rest of this
// package relies on does not hold — a page this tree itself wrote coming
// back corrupt, or a fetch of a page id this tree just allocated failing.
// These are can't-happen conditions, not recoverable errors; the teacher's
// disk manager takes the same stance on a failed write (storage_engine
// panics rather than threading an error through every caller).
func mustf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
