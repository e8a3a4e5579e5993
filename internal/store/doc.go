// Package store persists encoded quadtrees on disk.
//
// Files hold the bytes produced by quadtree.Encode, optionally wrapped in a
// single zstd frame. Load detects the zstd magic number, so callers never need
// to know how a file was written.
package store
