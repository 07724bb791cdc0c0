package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	dst := t.TempDir()

	p, err := safeJoin(dst, "a/b.glb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "a", "b.glb"), p)

	for _, name := range []string{"../evil.glb", "a/../../evil.glb", `..\evil.glb`, "."} {
		_, err := safeJoin(dst, name)
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}
}

func TestZipExtractor(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "models.zip")
	writeZip(t, src, map[string]string{
		"ship.glb":       "glTF",
		"parts/hull.obj": "v 0 0 0",
	})

	dst := t.TempDir()
	require.NoError(t, zipExtractor{}.Extract(ctx, src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "parts", "hull.obj"))
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0", string(b))
}

func TestZipExtractor_RejectsTraversal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{"../escape.glb": "x"})

	dst := t.TempDir()
	err := zipExtractor{}.Extract(context.Background(), src, dst)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dst), "escape.glb"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestZipExtractor_SizeLimit(t *testing.T) {
	const limit = 64 << 10

	t.Run("single entry", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "bomb.zip")
		writeZip(t, src, map[string]string{"huge.glb": strings.Repeat("\x00", 4<<20)})

		dst := t.TempDir()
		err := zipExtractor{maxBytes: limit}.Extract(context.Background(), src, dst)
		assert.ErrorIs(t, err, ErrTooLarge)

		info, statErr := os.Stat(filepath.Join(dst, "huge.glb"))
		require.NoError(t, statErr)
		assert.LessOrEqual(t, info.Size(), int64(limit+1), "entry is cut off at the limit")
	})

	t.Run("total across entries", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "many.zip")
		writeZip(t, src, map[string]string{
			"a.glb": strings.Repeat("a", 40<<10),
			"b.glb": strings.Repeat("b", 40<<10),
		})
		err := zipExtractor{maxBytes: limit}.Extract(context.Background(), src, t.TempDir())
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("exactly at limit", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "fits.zip")
		writeZip(t, src, map[string]string{"fits.glb": strings.Repeat("x", limit)})
		assert.NoError(t, zipExtractor{maxBytes: limit}.Extract(context.Background(), src, t.TempDir()))
	})
}

func TestUniversalExtractor_SizeLimit(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bomb.zip")
	writeZip(t, src, map[string]string{"huge.glb": strings.Repeat("\x00", 1<<20)})

	err := universalExtractor{maxBytes: 1 << 10}.Extract(context.Background(), src, t.TempDir())
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestZipExtractor_NotAZip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(src, []byte("definitely not a zip"), 0o644))
	assert.Error(t, zipExtractor{}.Extract(context.Background(), src, t.TempDir()))
}

func TestRarExtractor(t *testing.T) {
	dst := t.TempDir()
	require.NoError(t, rarExtractor{}.Extract(context.Background(), filepath.Join("testdata", "crate.rar"), dst))

	b, err := os.ReadFile(filepath.Join(dst, "crate.glb"))
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(b[:4]))
	assert.Len(t, b, 48)
}

func TestSevenZipExtractor(t *testing.T) {
	dst := t.TempDir()
	require.NoError(t, sevenZipExtractor{}.Extract(context.Background(), filepath.Join("testdata", "crate.7z"), dst))

	b, err := os.ReadFile(filepath.Join(dst, "crate.glb"))
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(b[:4]))
	assert.Len(t, b, 48)
}

func TestLibraryExtractors_SizeLimitOnFixtures(t *testing.T) {
	ctx := context.Background()
	err := rarExtractor{maxBytes: 16}.Extract(ctx, filepath.Join("testdata", "crate.rar"), t.TempDir())
	assert.ErrorIs(t, err, ErrTooLarge)

	err = sevenZipExtractor{maxBytes: 16}.Extract(ctx, filepath.Join("testdata", "crate.7z"), t.TempDir())
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUniversalExtractor_Zip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "models.zip")
	writeZip(t, src, map[string]string{"dir/model.gltf": "{}"})

	dst := t.TempDir()
	require.NoError(t, universalExtractor{}.Extract(context.Background(), src, dst))

	files, err := ListFiles(dst)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "dir/model.gltf", files[0].Path)
}

func TestLibraryExtractors_Supports(t *testing.T) {
	assert.True(t, zipExtractor{}.Supports(FormatZip))
	assert.False(t, zipExtractor{}.Supports(FormatRar))
	assert.True(t, rarExtractor{}.Supports(FormatRar))
	assert.True(t, sevenZipExtractor{}.Supports(Format7z))
	assert.True(t, universalExtractor{}.Supports(FormatUnknown))
}
