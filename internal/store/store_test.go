package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

func testTree(t *testing.T) *quadtree.Tree {
	t.Helper()
	buf := quadtree.NewPixelBuffer(33, 17)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			buf.Set(x, y, quadtree.Color{R: uint8(x / 8 * 60), G: uint8(y / 4 * 50), B: 10})
		}
	}
	tree, err := quadtree.Build(buf, quadtree.DefaultOptions())
	require.NoError(t, err)
	return tree
}

func TestMarshalRoundTrip(t *testing.T) {
	tree := testTree(t)

	for _, compress := range []bool{false, true} {
		data, err := Marshal(tree, compress)
		require.NoError(t, err)
		require.Equal(t, compress, IsCompressed(data))

		decoded, err := Unmarshal(data)
		require.NoError(t, err)
		require.True(t, tree.Equal(decoded))
	}
}

func TestMarshalCompressesRepetitiveTrees(t *testing.T) {
	tree := testTree(t)

	raw, err := Marshal(tree, false)
	require.NoError(t, err)
	compressed, err := Marshal(tree, true)
	require.NoError(t, err)

	require.Less(t, len(compressed), len(raw))
}

func TestSaveLoad(t *testing.T) {
	tree := testTree(t)
	dir := t.TempDir()

	for name, compress := range map[string]bool{"raw.rqt": false, "packed.rqt": true} {
		path := filepath.Join(dir, name)

		n, err := Save(path, tree, compress)
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, n, info.Size())

		loaded, err := Load(path)
		require.NoError(t, err)
		require.True(t, tree.Equal(loaded))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "temp files should be cleaned up")
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.rqt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err := Save(path, testTree(t), false)
	require.NoError(t, err)

	_, err = Load(path)
	require.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.rqt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnmarshalCorrupt(t *testing.T) {
	tree := testTree(t)
	raw, err := Marshal(tree, false)
	require.NoError(t, err)
	compressed, err := Marshal(tree, true)
	require.NoError(t, err)

	tests := map[string][]byte{
		"truncated raw":        raw[:len(raw)-2],
		"truncated compressed": compressed[:len(compressed)/2],
		"garbage after magic":  append(append([]byte{}, zstdMagic...), 1, 2, 3, 4, 5),
		"not a tree":           []byte("hello, world, this is not a tree"),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			decoded, err := Unmarshal(data)
			require.ErrorIs(t, err, quadtree.ErrCorruptData)
			require.Nil(t, decoded)
		})
	}
}

func TestSaveInvalidTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.rqt")
	_, err := Save(path, nil, true)
	require.ErrorIs(t, err, quadtree.ErrInvalidInput)

	_, statErr := os.Stat(path)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}
