package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"

	errs "wallscraper/pkg/errors"
)

// ErrBadDirectory is returned when the target directory cannot be created or is not a directory
var ErrBadDirectory = errors.New("directory is bad")

// ResolveDir prepares an explicitly given target directory. An empty path is
// not a directory and is rejected; callers that mean the working directory
// skip resolution. The path is returned unchanged so that filenames are built
// exactly as given.
func ResolveDir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrBadDirectory)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDirectory, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDirectory, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrBadDirectory, path)
	}

	return path, nil
}

// SaveResult describes a file written by the manager
type SaveResult struct {
	Path   string
	Size   int64
	Digest string
}

// Manager names and writes wallpaper files
type Manager struct {
	outputDir string
	prefix    string
	extension string
	joinPath  bool

	saved int
	mu    sync.Mutex
}

// NewManager creates a new storage manager. With joinPath false the directory
// and filename are concatenated as-is, so "out" yields "outAlfaRomeo_01.png".
func NewManager(outputDir, prefix, extension string, joinPath bool) *Manager {
	return &Manager{
		outputDir: outputDir,
		prefix:    prefix,
		extension: extension,
		joinPath:  joinPath,
	}
}

// FileName returns the bare filename for counter value n
func (m *Manager) FileName(n int) string {
	return fmt.Sprintf("%s_0%d%s", m.prefix, n, m.extension)
}

// Path returns where the file for counter value n is written
func (m *Manager) Path(n int) string {
	if m.joinPath && m.outputDir != "" {
		return filepath.Join(m.outputDir, m.FileName(n))
	}
	return m.outputDir + m.FileName(n)
}

// Save streams r to path through a temporary file and renames it into place.
// An existing file at path is replaced.
func (m *Manager) Save(r io.Reader, path string) (*SaveResult, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errs.New(errs.ErrorTypeFilesystem, 0, "", "failed to create temporary file", err)
	}
	tempFile := tmp.Name()

	h := newDigest()
	w := &trackingWriter{w: io.MultiWriter(tmp, h)}
	n, err := io.Copy(w, r)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tempFile)
		if w.err != nil {
			return nil, errs.New(errs.ErrorTypeFilesystem, 0, "", "failed to write image data", err)
		}
		// Read side failed; the caller decides whether that is worth retrying.
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return nil, errs.New(errs.ErrorTypeFilesystem, 0, "", "failed to close file", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return nil, errs.New(errs.ErrorTypeFilesystem, 0, "", "failed to set file mode", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return nil, errs.New(errs.ErrorTypeFilesystem, 0, "", "failed to rename temporary file", err)
	}

	m.mu.Lock()
	m.saved++
	m.mu.Unlock()

	return &SaveResult{
		Path:   path,
		Size:   n,
		Digest: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns how many files this manager has written
func (m *Manager) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

// FileDigest returns the hex blake2b-256 digest of the file at path
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newDigest()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newDigest() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

// trackingWriter remembers write failures so they can be told apart from read failures
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
