package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// zstdMagic is the frame header of every zstd stream (RFC 8878).
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// maxDecodedSize caps the decompressed size of a tree file.
const maxDecodedSize = 1 << 30

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	encoderErr  error

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and one
// decoder serve every caller.
func zstdEncoder() (*zstd.Encoder, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1),
		)
	})
	return encoder, encoderErr
}

func zstdDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedSize),
		)
	})
	return decoder, decoderErr
}

// Marshal encodes t, compressing the result with zstd when compress is set.
func Marshal(t *quadtree.Tree, compress bool) ([]byte, error) {
	data, err := quadtree.Encode(t)
	if err != nil {
		return nil, err
	}
	if !compress {
		return data, nil
	}

	enc, err := zstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Unmarshal decodes bytes written by Marshal, compressed or not.
func Unmarshal(data []byte) (*quadtree.Tree, error) {
	if IsCompressed(data) {
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		plain, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decompress: %w", quadtree.ErrCorruptData, err)
		}
		data = plain
	}
	return quadtree.Decode(data)
}

// IsCompressed reports whether data starts with a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Save writes t to path and returns the number of bytes written. The file is
// written to a temporary sibling first and renamed into place, so readers
// never observe a partial tree.
func Save(path string, t *quadtree.Tree, compress bool) (int64, error) {
	data, err := Marshal(t, compress)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write tree: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to rename tree file: %w", err)
	}
	return int64(len(data)), nil
}

// Load reads a tree written by Save.
func Load(path string) (*quadtree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	t, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return t, nil
}
