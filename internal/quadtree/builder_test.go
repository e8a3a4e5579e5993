package quadtree

import (
	"errors"
	"math"
	"testing"
)

var (
	black = Color{0, 0, 0}
	white = Color{255, 255, 255}
	red   = Color{255, 0, 0}
	blue  = Color{0, 0, 255}
)

// uniformBuffer creates a buffer filled with a single color
func uniformBuffer(width, height int, c Color) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	buf.Fill(buf.Bounds(), c)
	return buf
}

// halfBuffer creates a buffer with the left half black and the right half white
func halfBuffer(width, height int) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	buf.Fill(Region{X: width / 2, Width: width - width/2, Height: height}, white)
	return buf
}

// noiseBuffer creates a deterministic high-frequency pattern
func noiseBuffer(width, height int) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, Color{
				R: uint8((x * 17) ^ (y * 31)),
				G: uint8((x * 7) + (y * 13)),
				B: uint8((x * y) & 0xFF),
			})
		}
	}
	return buf
}

// gradientBuffer creates a smooth horizontal and vertical gradient
func gradientBuffer(width, height int) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, Color{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 128,
			})
		}
	}
	return buf
}

// testSizes covers powers of two, odd extents and thin strips
var testSizes = []struct{ w, h int }{
	{1, 1}, {1, 7}, {7, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 3},
	{8, 8}, {9, 9}, {13, 7}, {16, 16}, {17, 31}, {32, 20},
}

func mustBuild(t *testing.T, buf *PixelBuffer, opts Options) *Tree {
	t.Helper()
	tree, err := Build(buf, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tree
}

func TestBuild_UniformIsSingleLeaf(t *testing.T) {
	for _, tol := range []float64{0, 1, 10, 255} {
		tree := mustBuild(t, uniformBuffer(4, 4, red), Options{Tolerance: tol, MinLeafSize: 1, Metric: MetricMaxChannel})

		root := tree.Root()
		if !root.IsLeaf() {
			t.Fatalf("tolerance %v: root should be a leaf", tol)
		}
		if root.Color() != red {
			t.Errorf("tolerance %v: color got %v, want %v", tol, root.Color(), red)
		}
		if want := (Region{Width: 4, Height: 4}); root.Region() != want {
			t.Errorf("tolerance %v: region got %v, want %v", tol, root.Region(), want)
		}
	}
}

func TestBuild_HalfBlackHalfWhite(t *testing.T) {
	tree := mustBuild(t, halfBuffer(4, 4), DefaultOptions())

	root := tree.Root()
	if root.IsLeaf() {
		t.Fatal("root should be internal")
	}

	tests := []struct {
		q      Quadrant
		region Region
		color  Color
	}{
		{NW, Region{0, 0, 2, 2}, black},
		{NE, Region{2, 0, 2, 2}, white},
		{SW, Region{0, 2, 2, 2}, black},
		{SE, Region{2, 2, 2, 2}, white},
	}

	for _, tt := range tests {
		t.Run(tt.q.String(), func(t *testing.T) {
			child := root.Child(tt.q)
			if !child.IsLeaf() {
				t.Fatalf("%s should be a leaf", tt.q)
			}
			if child.Region() != tt.region {
				t.Errorf("region: got %v, want %v", child.Region(), tt.region)
			}
			if child.Color() != tt.color {
				t.Errorf("color: got %v, want %v", child.Color(), tt.color)
			}
		})
	}
}

func TestBuild_OddSplitGivesExtraPixelToFirstHalf(t *testing.T) {
	// Single white pixel in the bottom-right corner of a 5x3 image.
	buf := uniformBuffer(5, 3, black)
	buf.Set(4, 2, white)

	tree := mustBuild(t, buf, DefaultOptions())
	root := tree.Root()

	if got, want := root.Child(NW).Region(), (Region{0, 0, 3, 2}); got != want {
		t.Errorf("NW: got %v, want %v", got, want)
	}
	if got, want := root.Child(SE).Region(), (Region{3, 2, 2, 1}); got != want {
		t.Errorf("SE: got %v, want %v", got, want)
	}
	// The SE child is one row tall, so it is forced to a leaf with the mean color.
	se := root.Child(SE)
	if !se.IsLeaf() {
		t.Fatal("SE should be a forced leaf")
	}
	if want := (Color{128, 128, 128}); se.Color() != want {
		t.Errorf("SE color: got %v, want %v", se.Color(), want)
	}
}

func TestBuild_MinLeafSizeForcesLeaves(t *testing.T) {
	buf := noiseBuffer(16, 16)

	tests := []struct {
		minLeaf      int
		wantMinWidth int
	}{
		{1, 1},
		{2, 2},
		{4, 4},
		{8, 8},
		{16, 16},
	}

	for _, tt := range tests {
		tree := mustBuild(t, buf, Options{MinLeafSize: tt.minLeaf, Metric: MetricMaxChannel})
		tree.Root().Walk(func(n *Node, _ int) bool {
			if n.Region().Width < tt.wantMinWidth || n.Region().Height < tt.wantMinWidth {
				t.Errorf("minLeaf %d: node %v smaller than %d", tt.minLeaf, n.Region(), tt.wantMinWidth)
			}
			if !n.IsLeaf() && !splittable(n.Region(), tt.minLeaf) {
				t.Errorf("minLeaf %d: internal node %v should have been a leaf", tt.minLeaf, n.Region())
			}
			return true
		})
	}
}

func TestBuild_ThinStripIsForcedLeaf(t *testing.T) {
	buf := NewPixelBuffer(1, 4)
	buf.Set(0, 0, white)

	tree := mustBuild(t, buf, DefaultOptions())
	if !tree.Root().IsLeaf() {
		t.Fatal("1-pixel wide image cannot be quartered and must be a leaf")
	}
	if want := (Color{64, 64, 64}); tree.Root().Color() != want {
		t.Errorf("color: got %v, want %v", tree.Root().Color(), want)
	}
}

func TestBuild_PartitionInvariant(t *testing.T) {
	for _, sz := range testSizes {
		tree := mustBuild(t, noiseBuffer(sz.w, sz.h), DefaultOptions())

		var leaves []Region
		area := 0
		tree.Root().Walk(func(n *Node, _ int) bool {
			if n.Region().Empty() {
				t.Errorf("%dx%d: empty region %v", sz.w, sz.h, n.Region())
			}
			if !n.IsLeaf() {
				sum := 0
				for i, c := range n.Children() {
					sum += c.Region().Area()
					for _, o := range n.Children()[i+1:] {
						if c.Region().Overlaps(o.Region()) {
							t.Errorf("%dx%d: siblings %v and %v overlap", sz.w, sz.h, c.Region(), o.Region())
						}
					}
				}
				if sum != n.Region().Area() {
					t.Errorf("%dx%d: children of %v cover %d pixels, want %d", sz.w, sz.h, n.Region(), sum, n.Region().Area())
				}
				return true
			}
			leaves = append(leaves, n.Region())
			area += n.Region().Area()
			return true
		})

		if area != sz.w*sz.h {
			t.Errorf("%dx%d: leaf area got %d, want %d", sz.w, sz.h, area, sz.w*sz.h)
		}

		// Every pixel belongs to exactly one leaf.
		covered := make([]int, sz.w*sz.h)
		for _, r := range leaves {
			for y := r.Y; y < r.Y+r.Height; y++ {
				for x := r.X; x < r.X+r.Width; x++ {
					covered[y*sz.w+x]++
				}
			}
		}
		for i, n := range covered {
			if n != 1 {
				t.Fatalf("%dx%d: pixel (%d,%d) covered %d times", sz.w, sz.h, i%sz.w, i/sz.w, n)
			}
		}
	}
}

func TestBuild_LosslessAtZeroTolerance(t *testing.T) {
	// Square power-of-two images halve in lockstep down to single pixels, so
	// no forced leaf is ever needed.
	for _, size := range []int{1, 2, 8, 16} {
		buf := noiseBuffer(size, size)
		tree := mustBuild(t, buf, DefaultOptions())

		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				leaf, ok := tree.LeafAt(x, y)
				if !ok {
					t.Fatalf("%dx%d: LeafAt(%d,%d) not found", size, size, x, y)
				}
				if leaf.Color() != buf.At(x, y) {
					t.Fatalf("%dx%d: pixel (%d,%d) got %v, want %v", size, size, x, y, leaf.Color(), buf.At(x, y))
				}
			}
		}
	}
}

func TestBuild_OnlyForcedLeavesAreLossy(t *testing.T) {
	for _, sz := range testSizes {
		buf := noiseBuffer(sz.w, sz.h)
		tree := mustBuild(t, buf, DefaultOptions())

		tree.Root().Walk(func(n *Node, _ int) bool {
			if !n.IsLeaf() {
				return true
			}
			if ok, _ := IsHomogeneous(MetricMaxChannel, buf, n.Region(), 0); ok {
				return true
			}
			if splittable(n.Region(), 1) {
				t.Errorf("%dx%d: lossy leaf %v could have been split", sz.w, sz.h, n.Region())
			}
			return true
		})
	}
}

func TestBuild_Idempotent(t *testing.T) {
	for _, metric := range []MetricKind{MetricMaxChannel, MetricVariance, MetricLab} {
		opts := Options{Tolerance: 12, MinLeafSize: 1, Metric: metric}
		a := mustBuild(t, gradientBuffer(23, 17), opts)
		b := mustBuild(t, gradientBuffer(23, 17), opts)
		if !a.Equal(b) {
			t.Errorf("%s: two builds of the same input differ", metric)
		}
	}
}

func TestBuild_ToleranceMonotonicity(t *testing.T) {
	bufs := map[string]*PixelBuffer{
		"gradient": gradientBuffer(31, 29),
		"noise":    noiseBuffer(24, 24),
	}
	tolerances := map[MetricKind][]float64{
		MetricMaxChannel: {0, 1, 4, 16, 64, 128, 255},
		MetricVariance:   {0, 10, 100, 1000, 10000},
		MetricLab:        {0, 2, 5, 10, 50, 100},
	}

	for name, buf := range bufs {
		for metric, tols := range tolerances {
			prev := math.MaxInt
			for _, tol := range tols {
				tree := mustBuild(t, buf, Options{Tolerance: tol, MinLeafSize: 1, Metric: metric})
				nodes := tree.Stats().Nodes
				if nodes > prev {
					t.Errorf("%s/%s: tolerance %v has %d nodes, more than %d at a lower tolerance",
						name, metric, tol, nodes, prev)
				}
				prev = nodes
			}
		}
	}
}

func TestBuild_ParallelMatchesSequential(t *testing.T) {
	for _, sz := range testSizes {
		buf := noiseBuffer(sz.w, sz.h)
		seq := mustBuild(t, buf, Options{Tolerance: 40, MinLeafSize: 1, Metric: MetricMaxChannel})

		for _, depth := range []int{1, 2, 4, MaxParallelDepth} {
			par := mustBuild(t, buf, Options{Tolerance: 40, MinLeafSize: 1, Metric: MetricMaxChannel, ParallelDepth: depth})
			if !seq.Equal(par) {
				t.Errorf("%dx%d: parallel depth %d differs from sequential build", sz.w, sz.h, depth)
			}
		}
	}
}

func TestBuild_Header(t *testing.T) {
	tree := mustBuild(t, noiseBuffer(7, 5), Options{Tolerance: 3.5, MinLeafSize: 2, Metric: MetricLab})
	h := tree.Header()

	want := Header{
		Version:     FormatVersion,
		Policy:      QuarterPolicyV1,
		Metric:      MetricLab,
		Width:       7,
		Height:      5,
		Tolerance:   3.5,
		MinLeafSize: 2,
	}
	if h != want {
		t.Errorf("header: got %+v, want %+v", h, want)
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		buf  *PixelBuffer
	}{
		{"nil buffer", nil},
		{"zero width", &PixelBuffer{Width: 0, Height: 4}},
		{"zero height", &PixelBuffer{Width: 4, Height: 0}},
		{"negative width", &PixelBuffer{Width: -1, Height: 4, Pix: make([]Color, 4)}},
		{"short pixel slice", &PixelBuffer{Width: 4, Height: 4, Pix: make([]Color, 15)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(tt.buf, DefaultOptions())
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error: got %v, want ErrInvalidInput", err)
			}
			if tree != nil {
				t.Error("Build should not return a tree on failure")
			}
		})
	}
}

func TestBuild_ConfigError(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero min leaf", Options{MinLeafSize: 0, Metric: MetricMaxChannel}},
		{"negative min leaf", Options{MinLeafSize: -3, Metric: MetricMaxChannel}},
		{"negative tolerance", Options{Tolerance: -1, MinLeafSize: 1, Metric: MetricMaxChannel}},
		{"NaN tolerance", Options{Tolerance: math.NaN(), MinLeafSize: 1, Metric: MetricMaxChannel}},
		{"infinite tolerance", Options{Tolerance: math.Inf(1), MinLeafSize: 1, Metric: MetricMaxChannel}},
		{"unknown metric", Options{MinLeafSize: 1, Metric: 99}},
		{"zero metric", Options{MinLeafSize: 1}},
		{"negative parallel depth", Options{MinLeafSize: 1, Metric: MetricMaxChannel, ParallelDepth: -1}},
		{"parallel depth too deep", Options{MinLeafSize: 1, Metric: MetricMaxChannel, ParallelDepth: MaxParallelDepth + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(uniformBuffer(4, 4, blue), tt.opts)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error: got %v, want ErrConfig", err)
			}
			if tree != nil {
				t.Error("Build should not return a tree on failure")
			}
		})
	}
}

func TestBuild_DepthIsLogarithmic(t *testing.T) {
	tree := mustBuild(t, noiseBuffer(37, 64), DefaultOptions())
	// ceil(log2(64)) levels below the root at most.
	if got := tree.Stats().MaxDepth; got > 6 {
		t.Errorf("max depth: got %d, want <= 6", got)
	}
}
