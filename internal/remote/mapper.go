package remote

import (
	"time"

	"github.com/driftnotes/drift/internal/entity"
)

// noteRow is the wire/row shape of a note: owner-stamped, snake-case keys.
// It is shared by the CRUD layer and the realtime change feed.
type noteRow struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	FolderID  *string `json:"folder_id"`
	Type      string  `json:"type"`
	UpdatedAt int64   `json:"updated_at"`
}

// folderRow is the wire/row shape of a folder.
type folderRow struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	CreatedAt int64   `json:"created_at"`
}

// noteToRow maps an in-memory note to its row shape, stamping the owner.
// Ids are carried through untouched; the mapper never regenerates them.
func noteToRow(n entity.Note, ownerID string) noteRow {
	row := noteRow{
		ID:        n.ID,
		UserID:    ownerID,
		Title:     n.Title,
		Content:   n.Content,
		Type:      string(n.Type),
		UpdatedAt: n.UpdatedAt,
	}
	if row.Type == "" {
		row.Type = string(entity.TypeText)
	}
	if n.FolderID != "" {
		folderID := n.FolderID
		row.FolderID = &folderID
	}
	return row
}

// noteFromRow maps a row back to the in-memory shape. Every optional field
// defaults so malformed or legacy rows never crash the orchestrator:
// missing type becomes text, a missing timestamp becomes the current time.
func noteFromRow(row noteRow) entity.Note {
	n := entity.Note{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		Type:      entity.NoteType(row.Type),
		UpdatedAt: row.UpdatedAt,
	}
	if row.FolderID != nil {
		n.FolderID = *row.FolderID
	}
	switch n.Type {
	case entity.TypeText, entity.TypeBoard, entity.TypeCalendar, entity.TypeImageBoard:
	default:
		n.Type = entity.TypeText
	}
	if n.UpdatedAt <= 0 {
		n.UpdatedAt = time.Now().UnixMilli()
	}
	return n
}

// folderToRow maps an in-memory folder to its row shape.
func folderToRow(f entity.Folder, ownerID string) folderRow {
	row := folderRow{
		ID:        f.ID,
		UserID:    ownerID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
	}
	if f.ParentID != "" {
		parentID := f.ParentID
		row.ParentID = &parentID
	}
	return row
}

// folderFromRow maps a row back to the in-memory shape with defaults.
func folderFromRow(row folderRow) entity.Folder {
	f := entity.Folder{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
	}
	if row.ParentID != nil {
		f.ParentID = *row.ParentID
	}
	if f.CreatedAt <= 0 {
		f.CreatedAt = time.Now().UnixMilli()
	}
	return f
}
