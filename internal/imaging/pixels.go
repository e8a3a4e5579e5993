package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// ToPixelBuffer converts img into the row-major RGB buffer the quadtree
// builder consumes. Pixel (0,0) of the buffer is img.Bounds().Min.
//
// Alpha is composited over black: translucent pixels darken in proportion to
// their transparency.
func ToPixelBuffer(img image.Image) *quadtree.PixelBuffer {
	rgba := clone.AsRGBA(img)
	bounds := rgba.Bounds()
	buf := quadtree.NewPixelBuffer(bounds.Dx(), bounds.Dy())

	for y := 0; y < buf.Height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+buf.Width*4]
		for x := 0; x < buf.Width; x++ {
			p := row[x*4 : x*4+3]
			buf.Pix[y*buf.Width+x] = quadtree.Color{R: p[0], G: p[1], B: p[2]}
		}
	}
	return buf
}

// Smooth applies a Gaussian blur of the given radius. Smoothing before a
// build merges noisy areas into larger leaves. A radius of zero or less
// returns img unchanged.
func Smooth(img image.Image, radius float64) image.Image {
	if radius <= 0 {
		return img
	}
	return blur.Gaussian(img, radius)
}

// BuildFromImage smooths img by blurRadius, converts it to a pixel buffer
// and builds its quadtree.
func BuildFromImage(img image.Image, opts quadtree.Options, blurRadius float64) (*quadtree.Tree, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", quadtree.ErrInvalidInput)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", quadtree.ErrInvalidInput)
	}

	tree, err := quadtree.Build(ToPixelBuffer(Smooth(img, blurRadius)), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build quadtree: %w", err)
	}
	return tree, nil
}
