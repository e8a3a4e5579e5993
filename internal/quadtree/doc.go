// Package quadtree builds, serializes and inspects region quadtrees over RGB
// pixel buffers.
//
// A region quadtree partitions an image into rectangles. A rectangle whose
// pixels are all within a tolerance of their mean color becomes a leaf that
// stores that color; any other rectangle is quartered and each quarter is
// handled the same way. The package is purely computational: it never reads
// or writes files and never decodes image formats. Callers hand it a decoded
// PixelBuffer and get back an immutable Tree.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner,
// X increasing rightward and Y increasing downward. A Region is described by
// its top-left pixel and its extent. Segments use pixel-edge coordinates, so
// a segment endpoint may equal the image width or height.
//
// # Quartering Policy
//
// Policy version 1 splits a region of width w and height h at
// left = ceil(w/2) and top = ceil(h/2): when an extent is odd the first half
// (the west column or the north row) receives the extra pixel. Children are
// always stored in NW, NE, SW, SE order. A region is only split when both its
// width and height exceed the minimum leaf size, which keeps every child
// non-empty for any image size, power of two or not.
//
// # Homogeneity Metrics
//
// The representative color of a region is the per-channel mean, rounded half
// up. Three metrics decide whether a region is homogeneous:
//   - MetricMaxChannel: every pixel is within tolerance of the mean on every channel
//   - MetricVariance: the largest per-channel population variance is within tolerance
//   - MetricLab: every pixel is within tolerance (CIE76 delta E) of the mean
//
// # Binary Format
//
// Encode writes a fixed 28-byte header followed by a pre-order node stream.
// Each node is a one byte tag: 0 for a leaf followed by R, G, B, or 1 for an
// internal node followed by its four children. Regions are never stored; they
// are recomputed from the header dimensions and the quartering policy, whose
// version is recorded in the header so older files stay decodable.
//
// # Thread Safety
//
// Trees are immutable once built or decoded and may be shared between
// goroutines without synchronization.
package quadtree
