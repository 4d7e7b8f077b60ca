package textmodel

// Tree is a hierarchical transcript: a root whose children are
// paragraphs, whose children are sentences, whose children are words —
// one level per multi-level alignment pass. Like syncmap.Tree, it is
// stored as an arena of index-addressed nodes rather than a
// parent-linked structure, so level-by-level traversal is a plain index
// walk with no pointer cycles to worry about.
type Tree struct {
	nodes []textNode
}

type textNode struct {
	fragment *TextFragment
	children []int
}

// NewTree creates a tree with a single root node. The root's own
// Fragment is typically unused (it carries no alignable text of its
// own) — alignment walks its children.
func NewTree(root *TextFragment) *Tree {
	return &Tree{nodes: []textNode{{fragment: root}}}
}

const RootIndex = 0

// AddChild appends f as a child of parent, returning the new node's
// index.
func (t *Tree) AddChild(parent int, f *TextFragment) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, textNode{fragment: f})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

func (t *Tree) Fragment(idx int) *TextFragment { return t.nodes[idx].fragment }
func (t *Tree) Children(idx int) []int         { return t.nodes[idx].children }
func (t *Tree) IsLeaf(idx int) bool             { return len(t.nodes[idx].children) == 0 }

// ChildFragments returns the TextFragment carried by each of idx's
// children, in order — the fragment list one level of alignment aligns
// against the audio.
func (t *Tree) ChildFragments(idx int) []*TextFragment {
	children := t.Children(idx)
	out := make([]*TextFragment, len(children))
	for i, c := range children {
		out[i] = t.Fragment(c)
	}
	return out
}
