package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/ui"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "notes",
	Short:   "Export and import JSON backups",
}

var backupExportOut string

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all notes and folders as a JSON document",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		data, err := a.engine.Export()
		if err != nil {
			fatalf("Error: %v", err)
		}

		if backupExportOut == "" {
			fmt.Println(string(data))
			return
		}
		if err := os.WriteFile(backupExportOut, data, 0644); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Exported to %s\n", ui.RenderPass("✓"), backupExportOut)
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import notes and folders from a JSON document",
	Long: `Import a backup document.

Accepted shapes: a {notes, folders} archive, a bare array of notes, or a
raw kanban column dump (imported as a single board note). Entities whose
id already exists are skipped, never overwritten.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("Error: %v", err)
		}

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		notes, folders, err := a.engine.Import(data)
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Imported %d notes, %d folders\n", ui.RenderPass("✓"), notes, folders)
	},
}

func init() {
	backupExportCmd.Flags().StringVarP(&backupExportOut, "out", "o", "", "output file (default: stdout)")

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}
