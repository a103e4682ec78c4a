package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/entity"
	"github.com/driftnotes/drift/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	GroupID: "notes",
	Short:   "Create, list, move, and delete notes",
}

var (
	noteAddFolder  string
	noteAddType    string
	noteAddTitle   string
	noteAddContent string
)

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a note",
	Long: `Create a note, optionally inside a folder.

Types: text (default), board, calendar, image-board. Boards, calendars, and
image boards start with a type-appropriate empty payload.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		n := a.engine.CreateNote(noteAddFolder, entity.NoteType(noteAddType))
		if noteAddTitle != "" || noteAddContent != "" {
			if noteAddTitle != "" {
				n.Title = noteAddTitle
			}
			if noteAddContent != "" {
				n.Content = noteAddContent
			}
			n = a.engine.SaveNote(n)
		}

		fmt.Printf("%s Created %s note %s\n", ui.RenderPass("✓"), n.Type, n.ID)
		fmt.Printf("   Title: %s\n", n.Title)
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		snap := a.engine.Snapshot()
		if len(snap.Notes) == 0 {
			fmt.Printf("%s No notes yet. Create one with 'drift note add'\n", ui.RenderWarn("⚠"))
			return
		}

		folderNames := make(map[string]string, len(snap.Folders))
		for _, f := range snap.Folders {
			folderNames[f.ID] = f.Name
		}

		for _, n := range snap.Notes {
			updated := time.UnixMilli(n.UpdatedAt).Format("2006-01-02 15:04")
			line := fmt.Sprintf("%s  %-12s %s", n.ID, n.Type, n.Title)
			if n.FolderID != "" {
				if name, ok := folderNames[n.FolderID]; ok {
					line += fmt.Sprintf("  [%s]", name)
				} else {
					line += fmt.Sprintf("  [%s]", n.FolderID)
				}
			}
			fmt.Printf("%s  %s\n", line, ui.RenderFaint(updated))
		}
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		a.engine.DeleteNote(args[0])
		fmt.Printf("%s Deleted note %s\n", ui.RenderPass("✓"), args[0])
	},
}

var noteMvCmd = &cobra.Command{
	Use:   "mv <id> [folder-id]",
	Short: "Move a note into a folder (omit folder-id for the root)",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		folderID := ""
		if len(args) == 2 {
			folderID = args[1]
		}
		if err := a.engine.MoveNote(args[0], folderID); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Moved note %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	noteAddCmd.Flags().StringVar(&noteAddFolder, "folder", "", "parent folder id")
	noteAddCmd.Flags().StringVar(&noteAddType, "type", "text", "note type (text, board, calendar, image-board)")
	noteAddCmd.Flags().StringVar(&noteAddTitle, "title", "", "note title")
	noteAddCmd.Flags().StringVar(&noteAddContent, "content", "", "note content")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteRmCmd)
	noteCmd.AddCommand(noteMvCmd)
	rootCmd.AddCommand(noteCmd)
}
