package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"trend_trader/internal/models"
)

// DefaultStateFile defines where we save our data on disk.
const DefaultStateFile = "state.json"

// ErrCorruptState is returned (with a default state) when the file cannot be trusted.
var ErrCorruptState = errors.New("state file is corrupt")

// FileStore keeps the position record in a single JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store writing to path (DefaultStateFile when empty).
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStateFile
	}
	return &FileStore{Path: path}
}

// Load reads the position state from disk.
// A missing file yields the default state and no error. An unreadable or
// invalid file yields the default state and an error wrapping ErrCorruptState,
// so the caller can log it and carry on without a position.
func (fs *FileStore) Load() (models.PositionState, error) {
	f, err := os.Open(fs.Path)
	if errors.Is(err, os.ErrNotExist) {
		return models.NewPositionState(), nil
	}
	if err != nil {
		return models.NewPositionState(), fmt.Errorf("%w: open: %v", ErrCorruptState, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return models.NewPositionState(), fmt.Errorf("%w: read: %v", ErrCorruptState, err)
	}

	var s models.PositionState
	if err := json.Unmarshal(b, &s); err != nil {
		return models.NewPositionState(), fmt.Errorf("%w: decode: %v", ErrCorruptState, err)
	}

	migrated := migrateState(&s)

	if !s.Valid() {
		return models.NewPositionState(), fmt.Errorf("%w: in_position=%t entry_price=%s", ErrCorruptState, s.InPosition, s.EntryPrice)
	}

	if migrated {
		if err := fs.Save(s); err != nil {
			return s, fmt.Errorf("save migrated state: %w", err)
		}
	}
	return s, nil
}

// migrateState handles schema evolution.
// Returns true if changes were made and the state needs to be saved.
func migrateState(s *models.PositionState) bool {
	updated := false

	// Migration: unversioned {in_position, entry_price} -> 2 (separate risk reference)
	if s.Version == "" {
		if s.InPosition && s.RiskReference.IsZero() {
			s.RiskReference = s.EntryPrice
		}
		if !s.InPosition {
			// the old bot left entry_price at 0.0 when flat; keep the invariant strict
			*s = models.NewPositionState()
		}
		s.Version = models.StateVersion
		updated = true
	}

	return updated
}

// Save writes the state using an atomic write pattern.
// 1. Write to a temporary file.
// 2. Sync to ensure data is on disk.
// 3. Rename temporary file to destination (atomic operation).
func (fs *FileStore) Save(s models.PositionState) error {
	s.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Same directory so the rename stays on one filesystem
	tmpFile := fs.Path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp state file: %w", err)
	}

	// Close explicitly before renaming (essential on Windows)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, fs.Path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
