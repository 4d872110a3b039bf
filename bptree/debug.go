package bptree

import (
	"fmt"
	"io"

	"bufftree/bptree/dotdump"
	"bufftree/storagepage"
)

// DrawBPlusTree walks every page reachable from the root and renders the
// whole tree as GraphViz dot source via the dotdump package — the
// SUPPLEMENTED-FEATURES analogue of original_source/b_plus_tree.cpp's
// Draw, kept out of the hot Insert/Remove/GetValue paths entirely.
func (t *Tree[K, V]) DrawBPlusTree(w io.Writer) error {
	nodes, err := t.collectNodes()
	if err != nil {
		return err
	}
	return dotdump.Draw(w, nodes)
}

// PrintBPlusTree is DrawBPlusTree's plain-text counterpart.
func (t *Tree[K, V]) PrintBPlusTree(w io.Writer) error {
	nodes, err := t.collectNodes()
	if err != nil {
		return err
	}
	dotdump.Print(w, nodes)
	return nil
}

func (t *Tree[K, V]) collectNodes() ([]dotdump.Node, error) {
	root := t.rootPageID()
	if root == storagepage.INVALID {
		return nil, nil
	}
	var nodes []dotdump.Node
	var walk func(id storagepage.ID) error
	walk = func(id storagepage.ID) error {
		guard, ok := t.pool.FetchPageRead(id)
		if !ok {
			return fmt.Errorf("bptree: fetch page %d for dump: page not resident", id)
		}
		tag := pageTag(guard.Data()[0])
		if tag == tagLeaf {
			leaf := decodeLeaf(guard.Data(), t.kc, t.vc)
			n := dotdump.Node{PageID: int64(id), IsLeaf: true, NextLeaf: int64(leaf.next)}
			for _, k := range leaf.keys {
				n.Keys = append(n.Keys, fmt.Sprintf("%v", k))
			}
			guard.Drop()
			nodes = append(nodes, n)
			return nil
		}
		internal := decodeInternal(guard.Data(), t.kc)
		n := dotdump.Node{PageID: int64(id), NextLeaf: -1}
		for _, k := range internal.keys {
			n.Keys = append(n.Keys, fmt.Sprintf("%v", k))
		}
		children := append([]storagepage.ID(nil), internal.children...)
		for _, c := range children {
			n.Children = append(n.Children, int64(c))
		}
		guard.Drop()
		nodes = append(nodes, n)
		for _, c := range children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return nodes, nil
}
