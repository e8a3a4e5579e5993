package quadtree

import (
	"iter"
	"slices"
)

// Point is a pixel-edge coordinate. (0, 0) is the top-left corner of the
// image and (Width, Height) its bottom-right corner.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Segment is an axis-aligned line segment between two pixel-edge points.
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Horizontal reports whether s runs along a row.
func (s Segment) Horizontal() bool {
	return s.Start.Y == s.End.Y
}

// Segments yields the subdivision lines of t in pre-order. Every internal
// node contributes its horizontal split line followed by its vertical split
// line; leaves contribute nothing. The sequence may be iterated any number of
// times and always yields the same segments in the same order.
func (t *Tree) Segments() iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		segments(t.root, yield)
	}
}

// Lines collects Segments into a slice.
func Lines(t *Tree) []Segment {
	return slices.Collect(t.Segments())
}

func segments(n *Node, yield func(Segment) bool) bool {
	if n.IsLeaf() {
		return true
	}
	r := n.region
	left, top := r.Split()
	h := Segment{Start: Point{r.X, r.Y + top}, End: Point{r.X + r.Width, r.Y + top}}
	v := Segment{Start: Point{r.X + left, r.Y}, End: Point{r.X + left, r.Y + r.Height}}
	if !yield(h) || !yield(v) {
		return false
	}
	for _, c := range n.children {
		if !segments(c, yield) {
			return false
		}
	}
	return true
}
