// Package backup reads and writes portable JSON archives of notes and
// folders.
//
// Parse is deliberately forgiving about shape: it accepts the native
// archive object, a bare array of notes, and a raw kanban column dump
// (which becomes a single board note), and it skips undecodable elements
// instead of rejecting the whole document. Only input that matches none of
// the accepted shapes is an error.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/driftnotes/drift/internal/entity"
)

// Archive is the decoded contents of a backup document.
type Archive struct {
	Notes   []entity.Note   `json:"notes"`
	Folders []entity.Folder `json:"folders"`
}

// Export serializes notes and folders as an indented archive document.
func Export(notes []entity.Note, folders []entity.Folder) ([]byte, error) {
	if notes == nil {
		notes = []entity.Note{}
	}
	if folders == nil {
		folders = []entity.Folder{}
	}
	data, err := json.MarshalIndent(Archive{Notes: notes, Folders: folders}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize backup: %w", err)
	}
	return data, nil
}

// Parse decodes a backup document in any accepted shape.
func Parse(data []byte) (Archive, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Archive{}, fmt.Errorf("backup document is empty")
	}

	switch trimmed[0] {
	case '{':
		return parseObject(trimmed)
	case '[':
		return parseArray(trimmed)
	default:
		return Archive{}, fmt.Errorf("unrecognized backup format")
	}
}

// rawArchive mirrors Archive with undecoded elements so one bad entry
// doesn't discard the rest.
type rawArchive struct {
	Notes   []json.RawMessage `json:"notes"`
	Folders []json.RawMessage `json:"folders"`
}

func parseObject(data []byte) (Archive, error) {
	var raw rawArchive
	if err := json.Unmarshal(data, &raw); err != nil {
		return Archive{}, fmt.Errorf("unrecognized backup format: %w", err)
	}
	if raw.Notes == nil && raw.Folders == nil {
		return Archive{}, fmt.Errorf("backup document has no notes or folders")
	}

	archive := Archive{}
	for _, elem := range raw.Notes {
		if n, ok := decodeNote(elem); ok {
			archive.Notes = append(archive.Notes, n)
		}
	}
	for _, elem := range raw.Folders {
		if f, ok := decodeFolder(elem); ok {
			archive.Folders = append(archive.Folders, f)
		}
	}
	return archive, nil
}

// parseArray handles both a bare note array and a raw kanban column dump.
func parseArray(data []byte) (Archive, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return Archive{}, fmt.Errorf("unrecognized backup format: %w", err)
	}
	if len(elems) == 0 {
		return Archive{}, fmt.Errorf("backup document is empty")
	}

	if looksLikeColumns(elems) {
		return columnsToArchive(data)
	}

	archive := Archive{}
	for _, elem := range elems {
		if n, ok := decodeNote(elem); ok {
			archive.Notes = append(archive.Notes, n)
		}
	}
	if len(archive.Notes) == 0 {
		return Archive{}, fmt.Errorf("no readable notes in backup document")
	}
	return archive, nil
}

// looksLikeColumns probes the array elements: kanban columns carry a tasks
// list, notes never do.
func looksLikeColumns(elems []json.RawMessage) bool {
	type probe struct {
		Tasks     json.RawMessage `json:"tasks"`
		UpdatedAt json.RawMessage `json:"updatedAt"`
	}
	for _, elem := range elems {
		var p probe
		if err := json.Unmarshal(elem, &p); err != nil {
			continue
		}
		if p.UpdatedAt != nil {
			return false
		}
		if p.Tasks != nil {
			return true
		}
	}
	return false
}

// columnsToArchive wraps a raw kanban column dump in a single board note.
func columnsToArchive(data []byte) (Archive, error) {
	var columns []entity.KanbanColumn
	if err := json.Unmarshal(data, &columns); err != nil {
		return Archive{}, fmt.Errorf("unrecognized backup format: %w", err)
	}

	content, err := json.Marshal(columns)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to re-encode board: %w", err)
	}

	n := entity.Note{
		ID:      uuid.NewString(),
		Title:   "Imported board",
		Content: string(content),
		Type:    entity.TypeBoard,
	}
	n.SetDefaults()
	return Archive{Notes: []entity.Note{n}}, nil
}

// decodeNote reads one note element, minting an id and filling defaults
// where the document omits them. Undecodable elements are dropped.
func decodeNote(elem json.RawMessage) (entity.Note, bool) {
	var n entity.Note
	if err := json.Unmarshal(elem, &n); err != nil {
		return entity.Note{}, false
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.SetDefaults()
	return n, true
}

// decodeFolder reads one folder element with the same leniency.
func decodeFolder(elem json.RawMessage) (entity.Folder, bool) {
	var f entity.Folder
	if err := json.Unmarshal(elem, &f); err != nil {
		return entity.Folder{}, false
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.SetDefaults()
	return f, true
}
