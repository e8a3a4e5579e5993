package quadtree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// FormatVersion is the version of the binary layout written by Encode.
const FormatVersion uint8 = 1

const (
	headerSize = 28
	leafSize   = 4 // tag + R, G, B

	tagLeaf     byte = 0
	tagInternal byte = 1
)

var magic = [4]byte{'R', 'Q', 'T', '1'}

// Header carries everything needed to rebuild node regions from an encoded
// node stream, plus the parameters the tree was built with.
type Header struct {
	Version     uint8      `json:"version"`
	Policy      uint8      `json:"policy"`
	Metric      MetricKind `json:"metric"`
	Width       uint32     `json:"width"`
	Height      uint32     `json:"height"`
	Tolerance   float64    `json:"tolerance"`
	MinLeafSize uint32     `json:"min_leaf_size"`
}

// Encode serializes t: a 28-byte big-endian header followed by the pre-order
// node stream.
//
//	offset  size  field
//	0       4     magic "RQT1"
//	4       1     format version
//	5       1     quartering policy version
//	6       1     metric kind
//	7       1     reserved, 0
//	8       4     width
//	12      4     height
//	16      8     tolerance (IEEE 754 bits)
//	24      4     min leaf size
//	28      ...   nodes: 0 R G B for a leaf, 1 then four children for an internal node
func Encode(t *Tree) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, t.Stats().EncodedBytes)
	buf = appendHeader(buf, t.header)
	buf = appendNode(buf, t.root)
	return buf, nil
}

// EncodeTo writes the encoding of t to w.
func EncodeTo(w io.Writer, t *Tree) error {
	if err := t.validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(appendHeader(nil, t.header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writeNode(bw, t.root); err != nil {
		return fmt.Errorf("failed to write nodes: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

func (t *Tree) validate() error {
	if t == nil || t.root == nil {
		return fmt.Errorf("%w: nil tree", ErrInvalidInput)
	}
	want := Region{Width: int(t.header.Width), Height: int(t.header.Height)}
	if t.root.region != want {
		return fmt.Errorf("%w: root region %s does not match header %dx%d",
			ErrInvalidInput, t.root.region, t.header.Width, t.header.Height)
	}
	return nil
}

func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, magic[:]...)
	dst = append(dst, h.Version, h.Policy, byte(h.Metric), 0)
	dst = binary.BigEndian.AppendUint32(dst, h.Width)
	dst = binary.BigEndian.AppendUint32(dst, h.Height)
	dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(h.Tolerance))
	dst = binary.BigEndian.AppendUint32(dst, h.MinLeafSize)
	return dst
}

func appendNode(dst []byte, n *Node) []byte {
	if n.IsLeaf() {
		return append(dst, tagLeaf, n.color.R, n.color.G, n.color.B)
	}
	dst = append(dst, tagInternal)
	for _, c := range n.children {
		dst = appendNode(dst, c)
	}
	return dst
}

func writeNode(w *bufio.Writer, n *Node) error {
	if n.IsLeaf() {
		_, err := w.Write([]byte{tagLeaf, n.color.R, n.color.G, n.color.B})
		return err
	}
	if err := w.WriteByte(tagInternal); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := writeNode(w, c); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses bytes produced by Encode and rebuilds the identical tree.
//
// It returns an ErrCorruptData error, and no tree, when the input is
// truncated, carries an unknown magic, version, policy, metric or node tag,
// describes an internal node at a region the quartering policy cannot split,
// or has bytes left over after the root node.
func Decode(data []byte) (*Tree, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	d := &decoder{data: data, pos: headerSize, minLeafSize: int(h.MinLeafSize)}
	root, err := d.node(Region{Width: int(h.Width), Height: int(h.Height)})
	if err != nil {
		return nil, err
	}
	if d.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after root node", ErrCorruptData, len(data)-d.pos)
	}

	return &Tree{header: h, root: root}, nil
}

// DecodeFrom reads r to the end and decodes the result.
func DecodeFrom(r io.Reader) (*Tree, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read tree: %w", err)
	}
	return Decode(buf.Bytes())
}

// DecodeHeader parses only the header of an encoded tree.
func DecodeHeader(data []byte) (Header, error) {
	return decodeHeader(data)
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: truncated header (%d of %d bytes)", ErrCorruptData, len(data), headerSize)
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorruptData, data[:4])
	}

	h := Header{
		Version:     data[4],
		Policy:      data[5],
		Metric:      MetricKind(data[6]),
		Width:       binary.BigEndian.Uint32(data[8:12]),
		Height:      binary.BigEndian.Uint32(data[12:16]),
		Tolerance:   math.Float64frombits(binary.BigEndian.Uint64(data[16:24])),
		MinLeafSize: binary.BigEndian.Uint32(data[24:28]),
	}

	switch {
	case h.Version != FormatVersion:
		return Header{}, fmt.Errorf("%w: unsupported format version %d", ErrCorruptData, h.Version)
	case h.Policy != QuarterPolicyV1:
		return Header{}, fmt.Errorf("%w: unsupported quartering policy %d", ErrCorruptData, h.Policy)
	case !h.Metric.Valid():
		return Header{}, fmt.Errorf("%w: unknown metric %d", ErrCorruptData, uint8(h.Metric))
	case h.Width == 0 || h.Height == 0:
		return Header{}, fmt.Errorf("%w: empty image %dx%d", ErrCorruptData, h.Width, h.Height)
	case h.Width > maxDimension || h.Height > maxDimension:
		return Header{}, fmt.Errorf("%w: image %dx%d too large", ErrCorruptData, h.Width, h.Height)
	case h.MinLeafSize == 0:
		return Header{}, fmt.Errorf("%w: min leaf size 0", ErrCorruptData)
	case math.IsNaN(h.Tolerance) || math.IsInf(h.Tolerance, 0) || h.Tolerance < 0:
		return Header{}, fmt.Errorf("%w: invalid tolerance %v", ErrCorruptData, h.Tolerance)
	}
	return h, nil
}

type decoder struct {
	data        []byte
	pos         int
	minLeafSize int
}

func (d *decoder) node(r Region) (*Node, error) {
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("%w: truncated at node %s", ErrCorruptData, r)
	}
	tag := d.data[d.pos]
	d.pos++

	switch tag {
	case tagLeaf:
		if len(d.data)-d.pos < 3 {
			return nil, fmt.Errorf("%w: truncated leaf color at %s", ErrCorruptData, r)
		}
		c := Color{R: d.data[d.pos], G: d.data[d.pos+1], B: d.data[d.pos+2]}
		d.pos += 3
		return newLeaf(r, c), nil

	case tagInternal:
		if !splittable(r, d.minLeafSize) {
			return nil, fmt.Errorf("%w: internal node at unsplittable region %s", ErrCorruptData, r)
		}
		var children [4]*Node
		for i, q := range r.Quarter() {
			c, err := d.node(q)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return newInternal(r, children), nil

	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02x at offset %d", ErrCorruptData, tag, d.pos-1)
	}
}
