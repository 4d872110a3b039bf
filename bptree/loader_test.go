package bptree

import (
	"strconv"
	"strings"
	"testing"

	"bufftree/bptree/keycodec"
	"bufftree/bufferpool"
	"bufftree/diskio"
	"bufftree/txnctx"
)

func TestRunBatchFile(t *testing.T) {
	pool := bufferpool.New(32, 2, diskio.NewMemoryManager())
	tree, err := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	script := strings.NewReader("i 1\ni 2\ni 3\nd 2\ni 4\n")
	err = tree.RunBatchFile(script, txnctx.New(),
		func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		func(k int64) int64 { return k * 10 },
	)
	if err != nil {
		t.Fatalf("RunBatchFile: %v", err)
	}

	for _, k := range []int64{1, 3, 4} {
		v, ok := tree.GetValue(k)
		if !ok || v != k*10 {
			t.Fatalf("GetValue(%d) = (%d, %v), want (%d, true)", k, v, ok, k*10)
		}
	}
	if _, ok := tree.GetValue(2); ok {
		t.Fatal("key 2 should have been removed by the batch file")
	}
}

func TestRunBatchFileRejectsMalformedLine(t *testing.T) {
	pool := bufferpool.New(8, 2, diskio.NewMemoryManager())
	tree, _ := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, 4, 4)

	err := tree.RunBatchFile(strings.NewReader("i\n"), txnctx.None,
		func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		func(k int64) int64 { return k },
	)
	if err == nil {
		t.Fatal("expected an error for a malformed batch line")
	}
}
