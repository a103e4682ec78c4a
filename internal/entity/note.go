// Package entity defines the synchronized domain objects: notes, folders,
// per-user settings, and the signed-in identity.
//
// Notes and folders are the two entities the sync engine reconciles between
// the local store and the cloud store. Conflict resolution for notes is
// last-writer-wins on UpdatedAt; folders carry no merge timestamp and the
// last event applied wins.
package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// NoteType selects how a note's content payload is interpreted by the
// rendering layer. The sync engine treats content as an opaque blob.
type NoteType string

const (
	// TypeText is a rich-text note; content is an HTML fragment.
	TypeText NoteType = "text"
	// TypeBoard is a kanban board; content is a JSON array of columns.
	TypeBoard NoteType = "board"
	// TypeCalendar is a calendar; content is a JSON object keyed by ISO date.
	TypeCalendar NoteType = "calendar"
	// TypeImageBoard is an image board; content is a JSON array of images.
	TypeImageBoard NoteType = "image-board"
)

// Note is a single synchronized note.
//
// UpdatedAt is epoch milliseconds and is the sole conflict-resolution
// signal: it must strictly increase on every local mutation of the same id.
// Use Touch to stamp it.
type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	UpdatedAt int64    `json:"updatedAt"`
	FolderID  string   `json:"folderId,omitempty"`
	Type      NoteType `json:"type,omitempty"`
}

// Folder groups notes. CreatedAt is immutable after creation and is used
// only for stable display ordering, never for conflict resolution.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	ParentID  string `json:"parentId,omitempty"`
}

// NewNote mints a note with a fresh client-side id and the default title
// and content for its type.
func NewNote(folderID string, typ NoteType) Note {
	if typ == "" {
		typ = TypeText
	}

	title := "New note"
	content := ""
	switch typ {
	case TypeBoard:
		title = "New board"
		columns := []KanbanColumn{
			{ID: "todo", Title: "To do", Color: "red"},
			{ID: "progress", Title: "In progress", Color: "yellow"},
			{ID: "done", Title: "Done", Color: "green"},
		}
		data, _ := json.Marshal(columns)
		content = string(data)
	case TypeCalendar:
		title = "Calendar"
		content = "{}"
	case TypeImageBoard:
		title = "References"
		content = "[]"
	}

	return Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		UpdatedAt: time.Now().UnixMilli(),
		FolderID:  folderID,
		Type:      typ,
	}
}

// NewFolder mints a folder with a fresh client-side id.
func NewFolder(name, parentID string) Folder {
	return Folder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		ParentID:  parentID,
	}
}

// Touch stamps UpdatedAt with the current wall clock, guaranteeing a
// strictly increasing value even when mutations land within the same
// millisecond.
func (n *Note) Touch() {
	now := time.Now().UnixMilli()
	if now <= n.UpdatedAt {
		now = n.UpdatedAt + 1
	}
	n.UpdatedAt = now
}

// Validate checks the fields required for a note to be synchronized.
func (n *Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("id is required")
	}
	if n.UpdatedAt <= 0 {
		return fmt.Errorf("updatedAt is required")
	}
	switch n.Type {
	case TypeText, TypeBoard, TypeCalendar, TypeImageBoard:
		return nil
	default:
		return fmt.Errorf("unknown note type %q", n.Type)
	}
}

// SetDefaults fills optional fields so legacy or partial records never
// reach the sync engine malformed.
func (n *Note) SetDefaults() {
	if n.Type == "" {
		n.Type = TypeText
	}
	if n.UpdatedAt <= 0 {
		n.UpdatedAt = time.Now().UnixMilli()
	}
	if n.Title == "" {
		n.Title = "Untitled"
	}
}

// Validate checks the fields required for a folder to be synchronized.
func (f *Folder) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.CreatedAt <= 0 {
		return fmt.Errorf("createdAt is required")
	}
	return nil
}

// SetDefaults fills optional folder fields.
func (f *Folder) SetDefaults() {
	if f.CreatedAt <= 0 {
		f.CreatedAt = time.Now().UnixMilli()
	}
	if f.Name == "" {
		f.Name = "Untitled folder"
	}
}

// SortNotes orders notes by UpdatedAt descending, newest first.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt > notes[j].UpdatedAt
	})
}

// SortFolders orders folders by CreatedAt ascending, oldest first.
func SortFolders(folders []Folder) {
	sort.SliceStable(folders, func(i, j int) bool {
		return folders[i].CreatedAt < folders[j].CreatedAt
	})
}
