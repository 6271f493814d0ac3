package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"wallscraper/pkg/logger"
	"wallscraper/pkg/storage"
)

// Version is the manifest format written by this build
const Version = 1

// Entry records one downloaded wallpaper
type Entry struct {
	File         string    `json:"file"`
	Index        int       `json:"index"`
	Size         int64     `json:"size"`
	Digest       string    `json:"digest"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Manifest maps image URLs to the files they were saved as
type Manifest struct {
	Version   int              `json:"version"`
	RunID     string           `json:"run_id"`
	PageURL   string           `json:"page_url"`
	Entries   map[string]Entry `json:"entries"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	mu sync.RWMutex
}

// New returns an empty manifest for pageURL
func New(pageURL string) *Manifest {
	now := time.Now()
	return &Manifest{
		Version:   Version,
		RunID:     uuid.NewString(),
		PageURL:   pageURL,
		Entries:   make(map[string]Entry),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Record stores the entry for url, replacing any previous one
func (m *Manifest) Record(url string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now()
	}
	m.Entries[url] = e
}

// Lookup returns the entry recorded for url
func (m *Manifest) Lookup(url string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.Entries[url]
	return e, ok
}

// IsComplete reports whether url was downloaded before and its file is still
// on disk with the recorded digest
func (m *Manifest) IsComplete(url string) bool {
	e, ok := m.Lookup(url)
	if !ok || e.Digest == "" {
		return false
	}

	digest, err := storage.FileDigest(e.File)
	if err != nil {
		return false
	}
	return digest == e.Digest
}

// NextIndex returns the first counter value not used by any entry
func (m *Manifest) NextIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	next := 1
	for _, e := range m.Entries {
		if e.Index >= next {
			next = e.Index + 1
		}
	}
	return next
}

// Len returns the number of recorded entries
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Entries)
}

// Manager reads and writes the manifest file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the manifest at path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   path,
		logger: log,
	}
}

// Path returns the manifest location
func (mgr *Manager) Path() string {
	return mgr.path
}

// Load reads the manifest, returning a fresh one when none exists yet
func (mgr *Manager) Load(pageURL string) (*Manifest, error) {
	file, err := os.Open(mgr.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(pageURL), nil
		}
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var m Manifest
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	if m.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version %d (want %d)", m.Version, Version)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]Entry)
	}
	if pageURL != "" && m.PageURL != pageURL {
		mgr.logger.WarnWithFields("manifest was written for another page", map[string]interface{}{
			"manifest_page": m.PageURL,
			"page":          pageURL,
		})
	}
	// Each run gets its own id; the previous one is only kept in the log.
	previousRun := m.RunID
	m.RunID = uuid.NewString()

	mgr.logger.InfoWithFields("Manifest loaded", map[string]interface{}{
		"path":         mgr.path,
		"entries":      len(m.Entries),
		"previous_run": previousRun,
		"updated_at":   m.UpdatedAt,
	})

	return &m, nil
}

// Save writes the manifest to disk atomically
func (mgr *Manager) Save(m *Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdatedAt = time.Now()

	file, err := os.CreateTemp(filepath.Dir(mgr.path), "."+filepath.Base(mgr.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}
	tempPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync manifest file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close manifest file: %w", err)
	}

	if err := os.Rename(tempPath, mgr.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}

	mgr.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"path":    mgr.path,
		"entries": len(m.Entries),
		"run_id":  m.RunID,
	})

	return nil
}

