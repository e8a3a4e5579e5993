package imaging

import (
	"cmp"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains a color in the representations reported by the tools.
type ColorResult struct {
	Hex string   `json:"hex"` // "#RRGGBB"
	RGB RGBColor `json:"rgb"`
	HSL HSLColor `json:"hsl"`
}

// DescribeColor expands a leaf color into hex, RGB and HSL form.
func DescribeColor(c quadtree.Color) ColorResult {
	h, s, l := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return ColorResult{
		Hex: c.Hex(),
		RGB: RGBColor{R: c.R, G: c.G, B: c.B},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

// SampleColor reads the source image pixel at (x, y), relative to the image's
// top-left corner, as an 8-bit color with alpha dropped.
func SampleColor(img image.Image, x, y int) (quadtree.Color, error) {
	bounds := img.Bounds()
	if x < 0 || y < 0 || x >= bounds.Dx() || y >= bounds.Dy() {
		return quadtree.Color{}, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, bounds.Dx(), bounds.Dy())
	}

	r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
	return quadtree.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}, nil
}

// ColorFrequency is a leaf color and the share of the image it covers.
type ColorFrequency struct {
	Color      ColorResult `json:"color"`
	Leaves     int         `json:"leaves"`
	Percentage float64     `json:"percentage"` // Share of image area, 0-100
}

// DominantLeafColors returns up to count leaf colors ordered by the image
// area their leaves cover. Ties are broken by hex value so the order is
// stable.
func DominantLeafColors(t *quadtree.Tree, count int) []ColorFrequency {
	if t == nil || t.Root() == nil || count <= 0 {
		return nil
	}

	type tally struct {
		area   int
		leaves int
	}
	tallies := make(map[quadtree.Color]*tally)
	t.Root().Walk(func(n *quadtree.Node, _ int) bool {
		if n.IsLeaf() {
			e, ok := tallies[n.Color()]
			if !ok {
				e = &tally{}
				tallies[n.Color()] = e
			}
			e.area += n.Region().Area()
			e.leaves++
		}
		return true
	})

	total := float64(t.Bounds().Area())
	colors := make([]ColorFrequency, 0, len(tallies))
	for c, e := range tallies {
		colors = append(colors, ColorFrequency{
			Color:      DescribeColor(c),
			Leaves:     e.leaves,
			Percentage: float64(e.area) / total * 100,
		})
	}

	slices.SortFunc(colors, func(a, b ColorFrequency) int {
		if c := cmp.Compare(b.Percentage, a.Percentage); c != 0 {
			return c
		}
		return cmp.Compare(a.Color.Hex, b.Color.Hex)
	})

	if len(colors) > count {
		colors = colors[:count]
	}
	return colors
}
