package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	t.Run("Should find supported files in order and skip hidden dirs", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "b.md", "# B")
		write(t, dir, "a.txt", "A")
		write(t, dir, "notes/c.PDF", "%PDF")
		write(t, dir, "image.png", "x")
		write(t, dir, ".cache/d.txt", "hidden")
		files, err := Discover(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.txt"),
			filepath.Join(dir, "b.md"),
			filepath.Join(dir, "notes/c.PDF"),
		}, files)
	})

	t.Run("Should treat a missing directory as empty", func(t *testing.T) {
		files, err := Discover(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestLoad(t *testing.T) {
	t.Run("Should load text files as a single page", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "week1/intro.md", "# Agile\nIterative delivery.")
		docs, err := Load(t.Context(), dir)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "week1/intro.md", docs[0].ID)
		assert.Equal(t, "week1/intro.md", docs[0].Source)
		require.Len(t, docs[0].Pages, 1)
		assert.Equal(t, 1, docs[0].Pages[0].Number)
		assert.Contains(t, docs[0].Pages[0].Text, "Iterative delivery.")
		assert.Positive(t, docs[0].Size)
	})

	t.Run("Should skip files that fail to parse", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "broken.pdf", "not a pdf")
		write(t, dir, "ok.txt", "fine")
		docs, err := Load(t.Context(), dir)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "ok.txt", docs[0].ID)
	})
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("x.PDF"))
	assert.True(t, Supported("x.md"))
	assert.False(t, Supported("x.docx"))
}
