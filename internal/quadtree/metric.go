package quadtree

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// MetricKind selects how IsHomogeneous judges a region. The numeric value is
// written to encoded trees, so existing values must never change.
type MetricKind uint8

const (
	// MetricMaxChannel bounds the largest per-channel distance of any pixel
	// from the region's mean color.
	MetricMaxChannel MetricKind = 1

	// MetricVariance bounds the largest per-channel population variance.
	MetricVariance MetricKind = 2

	// MetricLab bounds the CIE76 delta E of any pixel from the mean color.
	MetricLab MetricKind = 3
)

func (k MetricKind) String() string {
	switch k {
	case MetricMaxChannel:
		return "maxchannel"
	case MetricVariance:
		return "variance"
	case MetricLab:
		return "lab"
	default:
		return fmt.Sprintf("metric(%d)", uint8(k))
	}
}

// Valid reports whether k is a known metric.
func (k MetricKind) Valid() bool {
	return k >= MetricMaxChannel && k <= MetricLab
}

// MarshalText encodes k by name.
func (k MetricKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %d", ErrConfig, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *MetricKind) UnmarshalText(text []byte) error {
	m, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*k = m
	return nil
}

// ParseMetric maps a metric name ("maxchannel", "variance", "lab") to its
// kind. The empty string selects MetricMaxChannel.
func ParseMetric(name string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "maxchannel", "max_channel", "max-channel":
		return MetricMaxChannel, nil
	case "variance":
		return MetricVariance, nil
	case "lab", "cie76":
		return MetricLab, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", ErrConfig, name)
	}
}

// IsHomogeneous reports whether every pixel of r is within tolerance of the
// region's representative color, as judged by kind. The representative color
// (the rounded per-channel mean) is returned either way so that callers can
// force a leaf for regions too small to split.
//
// r must be non-empty and inside buf. A 1x1 region is always homogeneous.
// Unknown metric kinds never report a homogeneous region.
func IsHomogeneous(kind MetricKind, buf *PixelBuffer, r Region, tolerance float64) (bool, Color) {
	rep := MeanColor(buf, r)
	if r.Area() == 1 {
		return true, rep
	}

	switch kind {
	case MetricMaxChannel:
		return withinChannelDistance(buf, r, rep, tolerance), rep
	case MetricVariance:
		return maxChannelVariance(buf, r) <= tolerance, rep
	case MetricLab:
		return withinLabDistance(buf, r, rep, tolerance), rep
	default:
		return false, rep
	}
}

// MeanColor returns the per-channel mean of r, rounded half up.
func MeanColor(buf *PixelBuffer, r Region) Color {
	var sr, sg, sb uint64
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := buf.Pix[y*buf.Width+r.X : y*buf.Width+r.X+r.Width]
		for _, p := range row {
			sr += uint64(p.R)
			sg += uint64(p.G)
			sb += uint64(p.B)
		}
	}
	n := uint64(r.Area())
	if n == 0 {
		return Color{}
	}
	half := n / 2
	return Color{
		R: uint8((sr + half) / n),
		G: uint8((sg + half) / n),
		B: uint8((sb + half) / n),
	}
}

func withinChannelDistance(buf *PixelBuffer, r Region, rep Color, tolerance float64) bool {
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := buf.Pix[y*buf.Width+r.X : y*buf.Width+r.X+r.Width]
		for _, p := range row {
			if float64(p.Distance(rep)) > tolerance {
				return false
			}
		}
	}
	return true
}

func withinLabDistance(buf *PixelBuffer, r Region, rep Color, tolerance float64) bool {
	ref := rep.colorful()
	// Regions are usually dominated by a handful of colors; skip repeats.
	last, lastOK := Color{}, false
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := buf.Pix[y*buf.Width+r.X : y*buf.Width+r.X+r.Width]
		for _, p := range row {
			if lastOK && p == last {
				continue
			}
			if p.colorful().DistanceLab(ref)*100 > tolerance {
				return false
			}
			last, lastOK = p, true
		}
	}
	return true
}

func maxChannelVariance(buf *PixelBuffer, r Region) float64 {
	n := r.Area()
	rs := make([]float64, 0, n)
	gs := make([]float64, 0, n)
	bs := make([]float64, 0, n)
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := buf.Pix[y*buf.Width+r.X : y*buf.Width+r.X+r.Width]
		for _, p := range row {
			rs = append(rs, float64(p.R))
			gs = append(gs, float64(p.G))
			bs = append(bs, float64(p.B))
		}
	}
	return max(stat.PopVariance(rs, nil), stat.PopVariance(gs, nil), stat.PopVariance(bs, nil))
}
