package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"iter"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// DefaultLineColor is used when a render request names no line color.
const DefaultLineColor = "#FF0000"

// DefaultMaxPixels bounds the pixel count of a rendering when no budget is
// configured: 64 Mi pixels, 256 MiB as RGBA.
const DefaultMaxPixels int64 = 64 << 20

// ErrRenderTooLarge is returned when a rendering would exceed its pixel budget.
var ErrRenderTooLarge = errors.New("rendering exceeds the pixel budget")

// CheckRenderSize returns an ErrRenderTooLarge error when a width x height
// rendering enlarged by scale would hold more than maxPixels pixels.
// Scales below 1 count as 1 and a non-positive maxPixels selects
// DefaultMaxPixels.
func CheckRenderSize(width, height, scale int, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if scale < 1 {
		scale = 1
	}
	// float64 keeps 2^32 x 2^32 headers from overflowing.
	pixels := float64(width) * float64(height) * float64(scale) * float64(scale)
	if pixels > float64(maxPixels) {
		return fmt.Errorf("%w: %dx%d at scale %d is %.0f pixels, limit %d",
			ErrRenderTooLarge, width, height, scale, pixels, maxPixels)
	}
	return nil
}

// RenderMode selects what a quadtree render shows.
type RenderMode string

const (
	// RenderOverlay draws subdivision lines over the source image.
	RenderOverlay RenderMode = "overlay"
	// RenderReconstruct paints every leaf with its color.
	RenderReconstruct RenderMode = "reconstruct"
	// RenderOutlined paints the leaves and draws the subdivision lines on top.
	RenderOutlined RenderMode = "outlined"
)

// ParseRenderMode maps a mode name to a RenderMode. The empty string selects
// RenderOverlay.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(s) {
	case "", RenderOverlay:
		return RenderOverlay, nil
	case RenderReconstruct, RenderOutlined:
		return RenderMode(s), nil
	}
	return "", fmt.Errorf("unknown render mode %q (want overlay, reconstruct or outlined)", s)
}

// LineStyle controls how subdivision segments are stroked.
type LineStyle struct {
	Color string  // "#RRGGBB" or "#RRGGBBAA"
	Width float64 // Stroke width in pixels
}

// DrawSegments strokes segs over a copy of base. Segment endpoints are pixel
// edge coordinates relative to base's top-left corner, so a line at y=4 runs
// between rows 3 and 4. Even widths straddle that edge; odd integer widths
// are shifted half a pixel so they fill whole rows, and a 1px line at y=4
// covers exactly row 4. The result always has its origin at (0,0).
func DrawSegments(base image.Image, segs iter.Seq[quadtree.Segment], style LineStyle) (image.Image, error) {
	hex := style.Color
	if hex == "" {
		hex = DefaultLineColor
	}
	lineColor, err := parseHexColor(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid line color %q: %w", hex, err)
	}
	width := style.Width
	if width <= 0 {
		width = 1
	}

	if base.Bounds().Min != (image.Point{}) {
		base = imaging.Clone(base)
	}

	dc := gg.NewContextForImage(base)
	dc.SetColor(color.NRGBA(lineColor))
	dc.SetLineWidth(width)
	dc.SetLineCapButt()

	shift := pixelShift(width)
	for s := range segs {
		x0, y0 := float64(s.Start.X), float64(s.Start.Y)
		x1, y1 := float64(s.End.X), float64(s.End.Y)
		if y0 == y1 {
			y0 += shift
			y1 += shift
		} else {
			x0 += shift
			x1 += shift
		}
		dc.DrawLine(x0, y0, x1, y1)
	}
	dc.Stroke()

	return dc.Image(), nil
}

// pixelShift moves lines of odd integer width onto pixel centres so the
// rasterizer does not split them across two half-covered rows.
func pixelShift(width float64) float64 {
	if width == math.Trunc(width) && int64(width)%2 == 1 {
		return 0.5
	}
	return 0
}

// RenderTree paints each leaf of t with its color, producing the image the
// tree approximates.
func RenderTree(t *quadtree.Tree) *image.RGBA {
	bounds := t.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, bounds.Width, bounds.Height))

	t.Root().Walk(func(n *quadtree.Node, _ int) bool {
		if n.IsLeaf() {
			r := n.Region()
			rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
			draw.Draw(img, rect, image.NewUniform(n.Color()), image.Point{}, draw.Src)
		}
		return true
	})
	return img
}

// Render produces the image for mode. source is only read in RenderOverlay
// mode and must then have the tree's dimensions.
func Render(source image.Image, t *quadtree.Tree, mode RenderMode, style LineStyle) (image.Image, error) {
	switch mode {
	case RenderOverlay:
		if source == nil {
			return nil, fmt.Errorf("overlay rendering needs the source image")
		}
		b := t.Bounds()
		if source.Bounds().Dx() != b.Width || source.Bounds().Dy() != b.Height {
			return nil, fmt.Errorf("source image is %dx%d but the tree covers %dx%d",
				source.Bounds().Dx(), source.Bounds().Dy(), b.Width, b.Height)
		}
		return DrawSegments(source, t.Segments(), style)
	case RenderReconstruct:
		return RenderTree(t), nil
	case RenderOutlined:
		return DrawSegments(RenderTree(t), t.Segments(), style)
	}
	return nil, fmt.Errorf("unknown render mode %q", mode)
}

// CropRegion cuts r out of a rendered image whose origin is the tree's
// origin. r must lie inside the image.
func CropRegion(img image.Image, r quadtree.Region) (image.Image, error) {
	b := img.Bounds()
	full := quadtree.Region{Width: b.Dx(), Height: b.Dy()}
	if r.Empty() || r.Intersect(full) != r {
		return nil, fmt.Errorf("crop region %v outside image bounds %dx%d", r, b.Dx(), b.Dy())
	}
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(b.Min)
	return imaging.Crop(img, rect), nil
}

// RenderResult is a rendered image encoded for transport in a tool response.
type RenderResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Mode        string `json:"mode"`
	Segments    int    `json:"segments"`
}

// Scale enlarges img by an integer factor with nearest-neighbor sampling, so
// leaf edges stay crisp. Factors below 2 return img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor)
}

// EncodePNG scales img and returns it as a base64 PNG.
func EncodePNG(img image.Image, scale int) (*RenderResult, error) {
	img = Scale(img, scale)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &RenderResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080".
// The components are returned unpremultiplied.
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// ValidLineColor reports whether hex is a color DrawSegments accepts.
func ValidLineColor(hex string) error {
	_, err := parseHexColor(hex)
	return err
}
