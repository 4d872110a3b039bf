package bptree

import (
	"bytes"
	"strings"
	"testing"

	"bufftree/bptree/keycodec"
	"bufftree/bufferpool"
	"bufftree/diskio"
)

func TestDrawAndPrintBPlusTree(t *testing.T) {
	pool := bufferpool.New(32, 2, diskio.NewMemoryManager())
	tree, err := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, 3, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for k := int64(1); k <= 12; k++ {
		tree.Insert(k, k)
	}

	var dot bytes.Buffer
	if err := tree.DrawBPlusTree(&dot); err != nil {
		t.Fatalf("DrawBPlusTree: %v", err)
	}
	if !strings.HasPrefix(dot.String(), "digraph G {") {
		t.Fatal("DrawBPlusTree output should start with a digraph header")
	}

	var plain bytes.Buffer
	if err := tree.PrintBPlusTree(&plain); err != nil {
		t.Fatalf("PrintBPlusTree: %v", err)
	}
	if !strings.Contains(plain.String(), "leaf") {
		t.Fatal("PrintBPlusTree output should mention at least one leaf page")
	}
}

func TestDrawEmptyTree(t *testing.T) {
	pool := bufferpool.New(4, 2, diskio.NewMemoryManager())
	tree, _ := New[int64, int64](pool, keycodec.Int64{}, keycodec.Int64{}, 3, 3)

	var dot bytes.Buffer
	if err := tree.DrawBPlusTree(&dot); err != nil {
		t.Fatalf("DrawBPlusTree on empty tree: %v", err)
	}
}
