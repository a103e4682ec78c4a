package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/entity"
	"github.com/driftnotes/drift/internal/ui"
)

var folderCmd = &cobra.Command{
	Use:     "folder",
	GroupID: "notes",
	Short:   "Create, list, move, rename, and delete folders",
}

var folderAddParent string

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		f, err := a.engine.CreateFolder(args[0], folderAddParent)
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Created folder %s (%s)\n", ui.RenderPass("✓"), f.Name, f.ID)
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders as a tree",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		snap := a.engine.Snapshot()
		if len(snap.Folders) == 0 {
			fmt.Printf("%s No folders yet. Create one with 'drift folder add'\n", ui.RenderWarn("⚠"))
			return
		}

		printFolderTree(snap.Folders, "", 0)
	},
}

// printFolderTree lists the children of parentID at the given indent,
// recursing depth-first. Folders whose parent no longer resolves are shown
// at the root so nothing disappears from the listing.
func printFolderTree(folders []entity.Folder, parentID string, depth int) {
	known := make(map[string]bool, len(folders))
	for _, f := range folders {
		known[f.ID] = true
	}
	for _, f := range folders {
		effectiveParent := f.ParentID
		if effectiveParent != "" && !known[effectiveParent] {
			effectiveParent = ""
		}
		if effectiveParent != parentID {
			continue
		}
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		fmt.Printf("%s  %s\n", f.ID, f.Name)
		if depth < 32 {
			printFolderTree(folders, f.ID, depth+1)
		}
	}
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a folder",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		if err := a.engine.RenameFolder(args[0], args[1]); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Renamed folder %s\n", ui.RenderPass("✓"), args[0])
	},
}

var folderMvCmd = &cobra.Command{
	Use:   "mv <id> [parent-id]",
	Short: "Move a folder under a parent (omit parent-id for the root)",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 || len(args) > 2 {
			fatalf("Error: expected <id> [parent-id]")
		}
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		parentID := ""
		if len(args) == 2 {
			parentID = args[1]
		}
		if err := a.engine.MoveFolder(args[0], parentID); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Moved folder %s\n", ui.RenderPass("✓"), args[0])
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a folder, keeping its contents",
	Long: `Delete a folder. Notes and sub-folders inside it are never deleted;
they move to the root instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		a.engine.DeleteFolder(args[0])
		fmt.Printf("%s Deleted folder %s (contents kept)\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	folderAddCmd.Flags().StringVar(&folderAddParent, "parent", "", "parent folder id")

	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderMvCmd)
	folderCmd.AddCommand(folderRmCmd)
	rootCmd.AddCommand(folderCmd)
}
