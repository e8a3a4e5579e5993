// Package imaging connects image files to quadtrees.
//
// It decodes source images, converts them into quadtree pixel buffers,
// describes leaf colors and renders trees back into images.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y downward. Images whose bounds do not start at
// the origin are addressed relative to their Min point, so pixel (0,0) of a
// pixel buffer is always the image's top-left pixel.
//
// Subdivision segments use pixel edge coordinates: a horizontal segment at
// y=4 is drawn between rows 3 and 4.
//
// # Formats
//
// PNG, JPEG, GIF, QOI and PPM files are decoded. JPEG EXIF orientation is
// applied on load. Rendered output is PNG.
//
// # Rendering
//
// Render supports three modes:
//   - overlay: subdivision lines stroked over the source image
//   - reconstruct: each leaf painted with its color
//   - outlined: the reconstruction with lines on top
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their inputs.
package imaging
