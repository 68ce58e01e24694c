package writer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-freezer/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := New(t.TempDir(), testLogger())
	require.NoError(t, err)
	return w
}

func TestWriter_New_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does", "not", "exist", "yet")
	w, err := New(root, testLogger())
	require.NoError(t, err)

	info, statErr := os.Stat(w.Root())
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestWriter_Write(t *testing.T) {
	w := newTestWriter(t)

	absPath, err := w.Write(filepath.FromSlash("blog/index.html"), []byte("<html>hi</html>"))
	require.NoError(t, err)

	content, readErr := os.ReadFile(absPath)
	require.NoError(t, readErr)
	assert.Equal(t, "<html>hi</html>", string(content))
	assert.True(t, filepath.IsAbs(absPath))
}

func TestWriter_Write_IdempotentSameBytes(t *testing.T) {
	w := newTestWriter(t)
	body := []byte("same content")

	first, err := w.Write("page.html", body)
	require.NoError(t, err)

	second, err := w.Write("page.html", body)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriter_Write_CollisionDifferentBytes(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.Write("page", []byte("first body"))
	require.NoError(t, err)

	_, err = w.Write("page", []byte("second body"))
	assert.ErrorIs(t, err, utils.ErrCollision)

	// The original content survives
	content, readErr := os.ReadFile(filepath.Join(w.Root(), "page"))
	require.NoError(t, readErr)
	assert.Equal(t, "first body", string(content))
}

func TestWriter_Write_FileVsDirectoryConflict(t *testing.T) {
	t.Run("FileFirst", func(t *testing.T) {
		w := newTestWriter(t)

		_, err := w.Write("about", []byte("the page"))
		require.NoError(t, err)

		// "about/" maps under the same name as a directory
		_, err = w.Write(filepath.FromSlash("about/index.html"), []byte("the listing"))
		assert.ErrorIs(t, err, utils.ErrCollision)
		assert.NotErrorIs(t, err, utils.ErrFilesystem, "a mapping clash is per-page, not systemic")
	})

	t.Run("DirectoryFirst", func(t *testing.T) {
		w := newTestWriter(t)

		_, err := w.Write(filepath.FromSlash("about/index.html"), []byte("the listing"))
		require.NoError(t, err)

		_, err = w.Write("about", []byte("the page"))
		assert.ErrorIs(t, err, utils.ErrCollision)
		assert.NotErrorIs(t, err, utils.ErrFilesystem, "a mapping clash is per-page, not systemic")
	})
}

func TestWriter_Write_RefusesEscapeFromRoot(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.Write(filepath.FromSlash("../outside.html"), []byte("nope"))
	assert.ErrorIs(t, err, utils.ErrFilesystem)

	_, err = w.Write(filepath.FromSlash("a/../../outside.html"), []byte("nope"))
	assert.ErrorIs(t, err, utils.ErrFilesystem)
}

func TestWriter_PathExistsWithHash(t *testing.T) {
	w := newTestWriter(t)
	body := []byte("cached page")

	_, err := w.Write("cached.html", body)
	require.NoError(t, err)

	hash := utils.HashBytes(body)
	assert.True(t, w.PathExistsWithHash("cached.html", hash))
	assert.False(t, w.PathExistsWithHash("cached.html", utils.HashBytes([]byte("other"))))
	assert.False(t, w.PathExistsWithHash("missing.html", hash))
}

func TestWriter_PathExistsWithHash_RegistersForCollisionDetection(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "page"), []byte("from previous run"), 0644))

	w, err := New(root, testLogger())
	require.NoError(t, err)

	require.True(t, w.PathExistsWithHash("page", utils.HashBytes([]byte("from previous run"))))

	// A later URL mapping to the same path with other content collides
	_, err = w.Write("page", []byte("different content"))
	assert.ErrorIs(t, err, utils.ErrCollision)
}

func TestWriter_CleanRoot(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.Write("stale.html", []byte("old run"))
	require.NoError(t, err)

	require.NoError(t, w.CleanRoot())

	_, statErr := os.Stat(filepath.Join(w.Root(), "stale.html"))
	assert.True(t, os.IsNotExist(statErr))

	// Registry was reset too: rewriting the path is not a collision
	_, err = w.Write("stale.html", []byte("new run"))
	assert.NoError(t, err)
}
