package quadtree

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// MaxParallelDepth bounds Options.ParallelDepth. Depth d forks up to 4^d
// goroutines.
const MaxParallelDepth = 8

// Options controls Build.
type Options struct {
	// Tolerance is the homogeneity threshold. Its unit depends on Metric:
	// channel levels (0-255) for MetricMaxChannel, squared levels for
	// MetricVariance and delta E for MetricLab. 0 demands identical pixels.
	Tolerance float64

	// MinLeafSize stops subdivision: a region whose width or height is at or
	// below it becomes a leaf even when it is not homogeneous. Must be >= 1.
	MinLeafSize int

	// Metric selects the homogeneity test.
	Metric MetricKind

	// ParallelDepth builds the children of nodes shallower than this depth
	// concurrently. 0 builds everything on the calling goroutine; at most
	// MaxParallelDepth. The result does not depend on this value.
	ParallelDepth int
}

// DefaultOptions returns exact color matching down to single pixels, built
// sequentially. The result is lossless for power-of-two squares; other
// shapes can end in 1-pixel strips that are forced leaves holding a mean
// color.
func DefaultOptions() Options {
	return Options{
		Tolerance:   0,
		MinLeafSize: 1,
		Metric:      MetricMaxChannel,
	}
}

// Validate reports an ErrConfig error for unusable options.
func (o Options) Validate() error {
	if o.MinLeafSize < 1 {
		return fmt.Errorf("%w: min leaf size %d must be at least 1", ErrConfig, o.MinLeafSize)
	}
	if uint64(o.MinLeafSize) > math.MaxUint32 {
		return fmt.Errorf("%w: min leaf size %d does not fit in 32 bits", ErrConfig, o.MinLeafSize)
	}
	if math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) || o.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance %v must be a finite non-negative number", ErrConfig, o.Tolerance)
	}
	if !o.Metric.Valid() {
		return fmt.Errorf("%w: unknown metric %s", ErrConfig, o.Metric)
	}
	if o.ParallelDepth < 0 || o.ParallelDepth > MaxParallelDepth {
		return fmt.Errorf("%w: parallel depth %d must be between 0 and %d", ErrConfig, o.ParallelDepth, MaxParallelDepth)
	}
	return nil
}

// Build constructs the region quadtree of buf.
//
// The root region is the whole buffer. Each region is tested with the
// configured metric; homogeneous regions, and regions whose width or height
// is at most MinLeafSize, become leaves holding the region's mean color.
// Every other region is quartered and its children are built in NW, NE, SW,
// SE order. Forced leaves at the minimum size may be lossy: their
// color is the mean of pixels that did not pass the tolerance.
//
// Build returns an ErrInvalidInput error for an empty or inconsistent buffer
// and an ErrConfig error for invalid options. It never returns a partial tree.
// Identical inputs always produce equal trees.
func Build(buf *PixelBuffer, opts Options) (*Tree, error) {
	if err := buf.validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	b := &builder{buf: buf, opts: opts}
	root := b.build(buf.Bounds(), 0)

	return &Tree{
		header: Header{
			Version:     FormatVersion,
			Policy:      QuarterPolicyV1,
			Metric:      opts.Metric,
			Width:       uint32(buf.Width),
			Height:      uint32(buf.Height),
			Tolerance:   opts.Tolerance,
			MinLeafSize: uint32(opts.MinLeafSize),
		},
		root: root,
	}, nil
}

type builder struct {
	buf  *PixelBuffer
	opts Options
}

func (b *builder) build(r Region, depth int) *Node {
	homogeneous, rep := IsHomogeneous(b.opts.Metric, b.buf, r, b.opts.Tolerance)
	if homogeneous || !splittable(r, b.opts.MinLeafSize) {
		return newLeaf(r, rep)
	}

	quads := r.Quarter()
	var children [4]*Node

	if depth < b.opts.ParallelDepth {
		// Sibling regions are disjoint and each goroutine writes only its
		// own slot, so the buffer is the only shared (read-only) state.
		var g errgroup.Group
		for i, q := range quads {
			g.Go(func() error {
				children[i] = b.build(q, depth+1)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, q := range quads {
			children[i] = b.build(q, depth+1)
		}
	}

	return newInternal(r, children)
}
