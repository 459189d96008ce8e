// Package history keeps the capped list of past uploads on the client.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sma-monitor/dashboard/internal/models"
)

const (
	// MaxEntries is the number of uploads remembered.
	MaxEntries = 10
	// FileName is the name of the persisted history file.
	FileName = "sma_file_history.json"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history entry not found")

// Store defines the interface for upload history.
type Store interface {
	// Add records a completed upload as the newest entry and returns it.
	Add(name string, size int64, uploadedAt time.Time) (models.HistoryEntry, error)
	// List returns the entries, newest first.
	List() ([]models.HistoryEntry, error)
	Get(id string) (models.HistoryEntry, error)
}

// prepend puts e first and trims the list to MaxEntries.
func prepend(entries []models.HistoryEntry, e models.HistoryEntry) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, min(len(entries)+1, MaxEntries))
	out = append(out, e)
	out = append(out, entries...)
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

func newEntry(name string, size int64, uploadedAt time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		ID:         uuid.NewString(),
		Name:       name,
		Size:       size,
		UploadedAt: uploadedAt,
		Status:     models.HistoryStatusCompleted,
	}
}

func find(entries []models.HistoryEntry, id string) (models.HistoryEntry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// MemoryStore keeps history in memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(name string, size int64, uploadedAt time.Time) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := newEntry(name, size, uploadedAt)
	s.entries = prepend(s.entries, e)
	return e, nil
}

func (s *MemoryStore) List() ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Get(id string) (models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.entries, id)
}

// FileStore persists history as a single JSON array, rewritten whole on
// every change.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns ~/.sma/sma_file_history.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sma", FileName), nil
}

// NewFileStore creates a store backed by path. The directory is created on
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Add(name string, size int64, uploadedAt time.Time) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return models.HistoryEntry{}, err
	}

	e := newEntry(name, size, uploadedAt)
	if err := s.save(prepend(entries, e)); err != nil {
		return models.HistoryEntry{}, err
	}
	return e, nil
}

func (s *FileStore) List() ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Get(id string) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return models.HistoryEntry{}, err
	}
	return find(entries, id)
}

// load reads the file. A missing or corrupted file reads as empty.
func (s *FileStore) load() ([]models.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// If file is corrupted, start fresh
		return nil, nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}

func (s *FileStore) save(entries []models.HistoryEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
