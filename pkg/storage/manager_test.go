package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "wallscraper/pkg/errors"
)

func TestResolveDirCreatesMissing(t *testing.T) {
	target := filepath.Join(t.TempDir(), "walls", "2024") + string(filepath.Separator)

	dir, err := ResolveDir(target)
	require.NoError(t, err)
	assert.Equal(t, target, dir, "the path is returned verbatim")

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// A second run on an existing directory is fine.
	_, err = ResolveDir(target)
	assert.NoError(t, err)
}

func TestResolveDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := ResolveDir(file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadDirectory))
}

func TestResolveDirEmptyIsBad(t *testing.T) {
	before, err := os.ReadDir(".")
	require.NoError(t, err)

	dir, err := ResolveDir("")
	assert.True(t, errors.Is(err, ErrBadDirectory))
	assert.Equal(t, "", dir)

	after, err := os.ReadDir(".")
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestFileNameAndPath(t *testing.T) {
	m := NewManager("out/", "AlfaRomeo", ".png", false)
	assert.Equal(t, "AlfaRomeo_01.png", m.FileName(1))
	assert.Equal(t, "AlfaRomeo_012.png", m.FileName(12))
	assert.Equal(t, "out/AlfaRomeo_03.png", m.Path(3))

	// Without a trailing separator the last segment becomes a filename prefix.
	m = NewManager("out", "AlfaRomeo", ".png", false)
	assert.Equal(t, "outAlfaRomeo_01.png", m.Path(1))

	m = NewManager("out", "AlfaRomeo", ".png", true)
	assert.Equal(t, filepath.Join("out", "AlfaRomeo_01.png"), m.Path(1))

	m = NewManager("", "AlfaRomeo", ".png", true)
	assert.Equal(t, "AlfaRomeo_01.png", m.Path(1))
}

func TestSave(t *testing.T) {
	dir := t.TempDir() + string(filepath.Separator)
	m := NewManager(dir, "AlfaRomeo", ".png", false)

	data := []byte("fake png payload")
	res, err := m.Save(bytes.NewReader(data), m.Path(1))
	require.NoError(t, err)

	assert.Equal(t, dir+"AlfaRomeo_01.png", res.Path)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Len(t, res.Digest, 64)

	content, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	digest, err := FileDigest(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Digest, digest)

	assert.Equal(t, 1, m.GetSavedCount())
	assertNoTempFiles(t, dir)
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir() + string(filepath.Separator)
	m := NewManager(dir, "AlfaRomeo", ".png", false)

	require.NoError(t, os.WriteFile(m.Path(1), []byte("old"), 0644))

	_, err := m.Save(strings.NewReader("new"), m.Path(1))
	require.NoError(t, err)

	content, err := os.ReadFile(m.Path(1))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestSaveReadFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir() + string(filepath.Separator)
	m := NewManager(dir, "AlfaRomeo", ".png", false)

	_, err := m.Save(failingReader{}, m.Path(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var scrapeErr *errs.Error
	assert.False(t, errors.As(err, &scrapeErr), "read failures are not filesystem errors")

	_, statErr := os.Stat(m.Path(1))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, m.GetSavedCount())
	assertNoTempFiles(t, dir)
}

func TestSaveMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "gone")+string(filepath.Separator), "AlfaRomeo", ".png", false)

	_, err := m.Save(strings.NewReader("x"), m.Path(1))
	require.Error(t, err)

	var scrapeErr *errs.Error
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, errs.ErrorTypeFilesystem, scrapeErr.Type)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}
