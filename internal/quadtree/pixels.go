package quadtree

import "fmt"

// PixelBuffer is a decoded image: Width*Height colors in row-major order.
//
// The quadtree package only reads from a PixelBuffer. Decoding image files
// into one is the caller's job.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []Color
}

// NewPixelBuffer allocates a zeroed (black) buffer of the given size.
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]Color, width*height),
	}
}

// At returns the color at (x, y). The coordinates must be inside the buffer.
func (b *PixelBuffer) At(x, y int) Color {
	return b.Pix[y*b.Width+x]
}

// Set stores c at (x, y). The coordinates must be inside the buffer.
func (b *PixelBuffer) Set(x, y int, c Color) {
	b.Pix[y*b.Width+x] = c
}

// Fill paints every pixel of r with c. r is clipped to the buffer.
func (b *PixelBuffer) Fill(r Region, c Color) {
	r = r.Intersect(b.Bounds())
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := b.Pix[y*b.Width : (y+1)*b.Width]
		for x := r.X; x < r.X+r.Width; x++ {
			row[x] = c
		}
	}
}

// Bounds returns the region covering the whole buffer.
func (b *PixelBuffer) Bounds() Region {
	return Region{Width: b.Width, Height: b.Height}
}

func (b *PixelBuffer) validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil pixel buffer", ErrInvalidInput)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: buffer dimensions %dx%d must be positive", ErrInvalidInput, b.Width, b.Height)
	}
	if b.Width > maxDimension || b.Height > maxDimension {
		return fmt.Errorf("%w: buffer dimensions %dx%d exceed %d", ErrInvalidInput, b.Width, b.Height, maxDimension)
	}
	if len(b.Pix) != b.Width*b.Height {
		return fmt.Errorf("%w: buffer holds %d pixels, want %d", ErrInvalidInput, len(b.Pix), b.Width*b.Height)
	}
	return nil
}
