// Package store provides the local durable store for notes, folders, and
// settings.
//
// The store is a device-scoped SQLite database holding each collection as a
// single JSON document under a stable, namespaced key. Every write is
// persisted immediately; there is no buffering or batching, so a power loss
// or abrupt exit never loses an acknowledged write.
//
// Reads never fail from the caller's perspective: a missing or corrupt
// collection degrades to an empty one with a logged warning. The cloud copy
// (when signed in) and the optimistic in-memory state are reconciled by the
// sync orchestrator, not here.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/driftnotes/drift/internal/entity"
)

// Collection keys. Namespaced so the database can host future collections
// without colliding.
const (
	keyNotes    = "drift-notes"
	keyFolders  = "drift-folders"
	keySettings = "drift-settings"
)

// Store is the local key-value store backed by SQLite.
type Store struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

// Open creates or opens the local store at the given path.
//
// The database is opened with WAL mode and a busy timeout so concurrent
// readers never block the single writer. If logger is nil, a default logger
// writing to stderr is used.
//
// The caller MUST call Close() when done.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	// A plain filename, not a file: URI, so paths containing ? or # are
	// never misparsed as query or fragment.
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path, logger: logger}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.conn.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the store after checkpointing the WAL so all changes land in
// the main database file.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Notes returns every locally stored note, ordered by UpdatedAt descending.
// Corrupt or missing data degrades to an empty slice with a logged warning.
func (s *Store) Notes() []entity.Note {
	var notes []entity.Note
	if !s.readCollection(keyNotes, &notes) {
		return []entity.Note{}
	}
	for i := range notes {
		notes[i].SetDefaults()
	}
	entity.SortNotes(notes)
	return notes
}

// Folders returns every locally stored folder, ordered by CreatedAt
// ascending. Corrupt or missing data degrades to an empty slice.
func (s *Store) Folders() []entity.Folder {
	var folders []entity.Folder
	if !s.readCollection(keyFolders, &folders) {
		return []entity.Folder{}
	}
	for i := range folders {
		folders[i].SetDefaults()
	}
	entity.SortFolders(folders)
	return folders
}

// PutNote inserts or fully replaces a note by id. There is no partial-field
// merge at this layer; callers supply the complete entity.
func (s *Store) PutNote(n entity.Note) error {
	notes := s.Notes()
	replaced := false
	for i := range notes {
		if notes[i].ID == n.ID {
			notes[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		notes = append(notes, n)
	}
	return s.writeCollection(keyNotes, notes)
}

// PutAllNotes atomically replaces the entire notes collection. Used when
// the orchestrator refreshes everything after a fresh sign-in.
func (s *Store) PutAllNotes(notes []entity.Note) error {
	return s.writeCollection(keyNotes, notes)
}

// RemoveNote deletes a note by id. Removing an absent id is a no-op.
func (s *Store) RemoveNote(id string) error {
	notes := s.Notes()
	kept := notes[:0]
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	return s.writeCollection(keyNotes, kept)
}

// PutFolder inserts or fully replaces a folder by id.
func (s *Store) PutFolder(f entity.Folder) error {
	folders := s.Folders()
	replaced := false
	for i := range folders {
		if folders[i].ID == f.ID {
			folders[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		folders = append(folders, f)
	}
	return s.writeCollection(keyFolders, folders)
}

// PutAllFolders atomically replaces the entire folders collection.
func (s *Store) PutAllFolders(folders []entity.Folder) error {
	return s.writeCollection(keyFolders, folders)
}

// RemoveFolder deletes a folder by id. Removing an absent id is a no-op.
func (s *Store) RemoveFolder(id string) error {
	folders := s.Folders()
	kept := folders[:0]
	for _, f := range folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	return s.writeCollection(keyFolders, kept)
}

// Settings loads the settings document, upgrading legacy schemas in one
// explicit step. Missing or corrupt settings degrade to the defaults.
func (s *Store) Settings() entity.Settings {
	raw, ok := s.readRaw(keySettings)
	if !ok {
		return entity.DefaultSettings()
	}
	return entity.UpgradeSettings(raw)
}

// PutSettings persists the settings document.
func (s *Store) PutSettings(settings entity.Settings) error {
	return s.writeCollection(keySettings, settings)
}

// readRaw fetches a raw document. Returns false when the key is absent or
// the row cannot be read.
func (s *Store) readRaw(key string) ([]byte, bool) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Printf("Warning: failed to read %s: %v", key, err)
		return nil, false
	}
	return []byte(value), true
}

// readCollection decodes a stored collection into dst. Returns false when
// the data is absent or unreadable.
func (s *Store) readCollection(key string, dst any) bool {
	raw, ok := s.readRaw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Printf("Warning: corrupt %s collection, treating as empty: %v", key, err)
		return false
	}
	return true
}

// writeCollection serializes and persists a collection under its key.
func (s *Store) writeCollection(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	_, err = s.conn.Exec(`
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
