package remote

import (
	"testing"

	"github.com/driftnotes/drift/internal/entity"
)

func TestNoteRowRoundtrip(t *testing.T) {
	n := entity.Note{
		ID:        "n1",
		Title:     "Hello",
		Content:   "<p>hi</p>",
		UpdatedAt: 1234,
		FolderID:  "f1",
		Type:      entity.TypeBoard,
	}

	row := noteToRow(n, "user-1")
	if row.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", row.UserID)
	}
	if row.FolderID == nil || *row.FolderID != "f1" {
		t.Errorf("FolderID = %v, want f1", row.FolderID)
	}

	got := noteFromRow(row)
	if got != n {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, n)
	}
}

func TestNoteToRowDefaults(t *testing.T) {
	row := noteToRow(entity.Note{ID: "n1", UpdatedAt: 1}, "u")
	if row.Type != "text" {
		t.Errorf("Type = %q, want text default", row.Type)
	}
	if row.FolderID != nil {
		t.Errorf("FolderID = %v, want nil for root note", row.FolderID)
	}
}

func TestNoteFromRowDefaults(t *testing.T) {
	tests := []struct {
		name string
		row  noteRow
		want entity.NoteType
	}{
		{"missing type", noteRow{ID: "n1", UpdatedAt: 1}, entity.TypeText},
		{"unknown type", noteRow{ID: "n1", Type: "wiki", UpdatedAt: 1}, entity.TypeText},
		{"known type kept", noteRow{ID: "n1", Type: "calendar", UpdatedAt: 1}, entity.TypeCalendar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := noteFromRow(tt.row)
			if got.Type != tt.want {
				t.Errorf("Type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestNoteFromRowMissingTimestamp(t *testing.T) {
	got := noteFromRow(noteRow{ID: "n1"})
	if got.UpdatedAt <= 0 {
		t.Error("expected missing updated_at to default to now")
	}
	if got.ID != "n1" {
		t.Errorf("ID = %q; ids must pass through untouched", got.ID)
	}
}

func TestFolderRowRoundtrip(t *testing.T) {
	f := entity.Folder{ID: "f1", Name: "Work", CreatedAt: 99, ParentID: "f0"}

	row := folderToRow(f, "user-1")
	if row.ParentID == nil || *row.ParentID != "f0" {
		t.Errorf("ParentID = %v, want f0", row.ParentID)
	}

	got := folderFromRow(row)
	if got != f {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, f)
	}
}

func TestFolderFromRowDefaults(t *testing.T) {
	got := folderFromRow(folderRow{ID: "f1", Name: "Root level"})
	if got.CreatedAt <= 0 {
		t.Error("expected missing created_at to default to now")
	}
	if got.ParentID != "" {
		t.Errorf("ParentID = %q, want empty", got.ParentID)
	}
}
