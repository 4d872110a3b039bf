// Package dotdump renders a bptree.Tree as GraphViz dot source for
// debugging — the same role original_source/b_plus_tree.cpp's
// Draw/Print/BPlusTreeDrawer play in the project this was distilled
// from, reshaped as a standalone reader rather than a method on Tree so
// it stays a pure debugging aid with no hook back into the tree's own
// package.
package dotdump

import (
	"fmt"
	"io"
)

// Node is the minimal shape dotdump needs from a decoded tree node —
// callers build this slice by walking their own Tree instantiation, since
// dotdump cannot itself be generic over a caller's unexported node types.
type Node struct {
	PageID   int64
	IsLeaf   bool
	Keys     []string
	Children []int64 // empty for leaf nodes
	NextLeaf int64    // -1 if none, meaningful only for leaf nodes
}

// Draw writes dot source for nodes to w. Internal nodes are drawn as
// record-shaped boxes of their keys; leaf nodes additionally get a dashed
// edge to their right sibling so the sibling chain is visible at a
// glance, mirroring BPlusTreeDrawer's behavior.
func Draw(w io.Writer, nodes []Node) error {
	fmt.Fprintln(w, "digraph G {")
	fmt.Fprintln(w, "  node [shape=record];")
	for _, n := range nodes {
		label := fmt.Sprintf("<p0>")
		for i, k := range n.Keys {
			label += fmt.Sprintf("|%s|<p%d>", k, i+1)
		}
		fmt.Fprintf(w, "  \"%d\" [label=\"%s\"];\n", n.PageID, label)
		for _, c := range n.Children {
			fmt.Fprintf(w, "  \"%d\" -> \"%d\";\n", n.PageID, c)
		}
		if n.IsLeaf && n.NextLeaf >= 0 {
			fmt.Fprintf(w, "  \"%d\" -> \"%d\" [style=dashed, constraint=false];\n", n.PageID, n.NextLeaf)
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}

// Print writes a terse, human-readable indented listing of nodes instead
// of dot source — the "Print" half of the original Draw/Print pair, for
// a quick terminal check without piping through GraphViz.
func Print(w io.Writer, nodes []Node) {
	for _, n := range nodes {
		kind := "internal"
		if n.IsLeaf {
			kind = "leaf"
		}
		fmt.Fprintf(w, "page %d (%s) keys=%v", n.PageID, kind, n.Keys)
		if n.IsLeaf {
			fmt.Fprintf(w, " next=%d", n.NextLeaf)
		} else {
			fmt.Fprintf(w, " children=%v", n.Children)
		}
		fmt.Fprintln(w)
	}
}
