package quadtree

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit RGB sample.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Distance returns the largest absolute per-channel difference between c and o.
func (c Color) Distance(o Color) int {
	d := absDiff(c.R, o.R)
	if g := absDiff(c.G, o.G); g > d {
		d = g
	}
	if b := absDiff(c.B, o.B); b > d {
		d = b
	}
	return d
}

// DistanceLab returns the CIE76 delta E between c and o.
func (c Color) DistanceLab(o Color) float64 {
	return c.colorful().DistanceLab(o.colorful()) * 100
}

// Hex formats the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGBA implements color.Color so leaves can be painted directly.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
