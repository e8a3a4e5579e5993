package quadtree

// Node is one node of a region quadtree. It is either a leaf, which owns a
// region and its representative color, or an internal node, which owns a
// region and exactly four children that partition it in NW, NE, SW, SE order.
//
// Nodes are immutable: the builder and the decoder are the only code that
// creates them.
type Node struct {
	region   Region
	color    Color
	children *[4]*Node
}

func newLeaf(r Region, c Color) *Node {
	return &Node{region: r, color: c}
}

func newInternal(r Region, children [4]*Node) *Node {
	return &Node{region: r, children: &children}
}

// Region returns the pixels covered by n.
func (n *Node) Region() Region {
	return n.region
}

// Color returns the leaf color. Internal nodes report the zero Color.
func (n *Node) Color() Color {
	return n.color
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.children == nil
}

// Child returns the child in quadrant q, or nil for leaves.
func (n *Node) Child(q Quadrant) *Node {
	if n.children == nil || q < NW || q > SE {
		return nil
	}
	return n.children[q]
}

// Children returns the four children in NW, NE, SW, SE order, or nil for
// leaves. The returned slice is a copy.
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	kids := *n.children
	return kids[:]
}

// Walk visits n and its descendants in pre-order. fn receives each node with
// its depth (0 for n itself); returning false skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) || n.children == nil {
		return
	}
	for _, c := range n.children {
		c.walk(fn, depth+1)
	}
}

// Equal reports whether n and o have the same shape, regions and leaf colors.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.region != o.region || n.color != o.color || n.IsLeaf() != o.IsLeaf() {
		return false
	}
	if n.children == nil {
		return true
	}
	for i := range n.children {
		if !n.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Tree is a region quadtree together with the parameters it was built with.
type Tree struct {
	header Header
	root   *Node
}

// Header returns the tree's header.
func (t *Tree) Header() Header {
	return t.header
}

// Root returns the root node, whose region is the whole image.
func (t *Tree) Root() *Node {
	return t.root
}

// Bounds returns the region covering the whole image.
func (t *Tree) Bounds() Region {
	return t.root.region
}

// Equal reports whether t and o have equal headers and equal node trees.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.header == o.header && t.root.Equal(o.root)
}

// LeafAt returns the leaf covering pixel (x, y). ok is false when the point
// lies outside the image.
func (t *Tree) LeafAt(x, y int) (leaf *Node, ok bool) {
	n := t.root
	if !n.region.Contains(x, y) {
		return nil, false
	}
	for n.children != nil {
		left, top := n.region.Split()
		q := NW
		if x >= n.region.X+left {
			q++
		}
		if y >= n.region.Y+top {
			q += 2
		}
		n = n.children[q]
	}
	return n, true
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	Internal int `json:"internal"`
	MaxDepth int `json:"max_depth"`

	// EncodedBytes is the exact size Encode produces for the tree.
	EncodedBytes int `json:"encoded_bytes"`

	// RawBytes is the size of the image as packed 8-bit RGB.
	RawBytes int `json:"raw_bytes"`
}

// Stats counts the nodes of t.
func (t *Tree) Stats() Stats {
	var s Stats
	t.root.Walk(func(n *Node, depth int) bool {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		} else {
			s.Internal++
		}
		s.MaxDepth = max(s.MaxDepth, depth)
		return true
	})
	s.EncodedBytes = headerSize + s.Leaves*leafSize + s.Internal
	s.RawBytes = t.root.region.Area() * 3
	return s
}
