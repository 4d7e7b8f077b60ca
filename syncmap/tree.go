package syncmap

import "github.com/naglis/aeneas-sub000/timeval"

// Tree is a hierarchical sync-map stored as an arena: nodes are
// addressed by index, each holding a Fragment payload and its
// children's indices. There are no parent pointers and no pointer
// cycles, so multi-level traversals are plain index walks.
type Tree struct {
	nodes []node
}

type node struct {
	fragment Fragment
	children []int
}

// NewTree creates a tree with a single root node carrying root.
func NewTree(root Fragment) *Tree {
	return &Tree{nodes: []node{{fragment: root}}}
}

const RootIndex = 0

// AddChild appends f as a child of parent, returning the new node's
// index.
func (t *Tree) AddChild(parent int, f Fragment) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{fragment: f})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// AppendFragmentList adds every fragment of l as a child of parent, in
// list order.
func (t *Tree) AppendFragmentList(parent int, l *FragmentList) {
	for _, f := range l.Fragments() {
		t.AddChild(parent, f)
	}
}

func (t *Tree) Fragment(idx int) Fragment   { return t.nodes[idx].fragment }
func (t *Tree) Children(idx int) []int      { return t.nodes[idx].children }
func (t *Tree) IsLeaf(idx int) bool         { return len(t.nodes[idx].children) == 0 }
func (t *Tree) NodeCount() int              { return len(t.nodes) }

// Leaves returns the fragments of every leaf node, in a pre-order,
// left-to-right walk starting from root.
func (t *Tree) Leaves(root int) []Fragment {
	var out []Fragment
	var walk func(idx int)
	walk = func(idx int) {
		if t.IsLeaf(idx) {
			out = append(out, t.nodes[idx].fragment)
			return
		}
		for _, c := range t.nodes[idx].children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// LeavesAreConsistent verifies the leaves of root form a sorted,
// non-overlapping sequence: each consecutive pair's relative position is
// in AllowedFragmentPositions and intervals are non-decreasing in Begin.
func (t *Tree) LeavesAreConsistent(root int) bool {
	leaves := t.Leaves(root)
	for i := 0; i+1 < len(leaves); i++ {
		a, b := leaves[i].Interval, leaves[i+1].Interval
		if a.Begin.Gt(b.Begin) {
			return false
		}
		pos := timeval.RelativePositionOf(a, b)
		if !timeval.AllowedFragmentPositions[pos] {
			return false
		}
	}
	return true
}
