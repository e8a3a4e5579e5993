package quadtree

import "fmt"

// QuarterPolicyV1 identifies the quartering rule used by this package: the
// first half of an odd extent gets the extra row or column.
const QuarterPolicyV1 uint8 = 1

// maxDimension bounds image width and height so that areas fit comfortably
// in an int on every platform the encoder runs on.
const maxDimension = 1 << 30

// Quadrant names a child position. Children are always ordered NW, NE, SW, SE.
type Quadrant int

const (
	NW Quadrant = iota
	NE
	SW
	SE
)

func (q Quadrant) String() string {
	switch q {
	case NW:
		return "NW"
	case NE:
		return "NE"
	case SW:
		return "SW"
	case SE:
		return "SE"
	default:
		return fmt.Sprintf("Quadrant(%d)", int(q))
	}
}

// Region is an axis-aligned rectangle of pixels. (X, Y) is the top-left pixel
// (inclusive); the region covers X..X+Width-1 and Y..Y+Height-1.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the number of pixels in r.
func (r Region) Area() int {
	return r.Width * r.Height
}

// Empty reports whether r contains no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the pixel (x, y) lies inside r.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Overlaps reports whether r and o share at least one pixel.
func (r Region) Overlaps(o Region) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Intersect returns the largest region contained in both r and o. The result
// is the zero Region when they do not overlap.
func (r Region) Intersect(o Region) Region {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.Width, o.X+o.Width), min(r.Y+r.Height, o.Y+o.Height)
	if x0 >= x1 || y0 >= y1 {
		return Region{}
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Split returns the width of the west half and the height of the north half
// under QuarterPolicyV1.
func (r Region) Split() (left, top int) {
	return (r.Width + 1) / 2, (r.Height + 1) / 2
}

// Quarter splits r into its NW, NE, SW and SE children. Both extents must be
// at least 2, otherwise some children would be empty.
func (r Region) Quarter() [4]Region {
	left, top := r.Split()
	return [4]Region{
		NW: {X: r.X, Y: r.Y, Width: left, Height: top},
		NE: {X: r.X + left, Y: r.Y, Width: r.Width - left, Height: top},
		SW: {X: r.X, Y: r.Y + top, Width: left, Height: r.Height - top},
		SE: {X: r.X + left, Y: r.Y + top, Width: r.Width - left, Height: r.Height - top},
	}
}

// Edges returns the four borders of r in pixel-edge coordinates, clockwise
// from the top edge.
func (r Region) Edges() [4]Segment {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height
	return [4]Segment{
		{Start: Point{x0, y0}, End: Point{x1, y0}},
		{Start: Point{x1, y0}, End: Point{x1, y1}},
		{Start: Point{x1, y1}, End: Point{x0, y1}},
		{Start: Point{x0, y1}, End: Point{x0, y0}},
	}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// splittable reports whether the builder may quarter r.
func splittable(r Region, minLeafSize int) bool {
	return r.Width > minLeafSize && r.Height > minLeafSize
}
