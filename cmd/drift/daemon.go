package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/backup"
	"github.com/driftnotes/drift/internal/orchestrator"
	"github.com/driftnotes/drift/internal/ui"
)

var daemonWatchDir string

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "session",
	Short:   "Run the sync engine in the foreground",
	Long: `Run the sync engine continuously.

The daemon signs in from the persisted session, keeps the realtime
subscription open so changes from other devices land immediately, and
optionally watches a drop directory: any *.json backup document placed
there is imported and renamed with an .imported suffix.

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()

		a.engine.Watch(func(snap orchestrator.Snapshot) {
			a.logger.Printf("state=%s notes=%d folders=%d", snap.State, len(snap.Notes), len(snap.Folders))
		})

		if a.restoreSession(ctx) {
			snap := a.engine.Snapshot()
			fmt.Printf("%s Signed in as %s\n", ui.RenderPass("✓"), snap.Identity.DisplayName)
		} else {
			fmt.Printf("%s No session; running local-only\n", ui.RenderWarn("⚠"))
		}

		watchDir := daemonWatchDir
		if watchDir == "" {
			watchDir = a.cfg.WatchDir
		}
		var watcher *backup.DropWatcher
		if watchDir != "" {
			if err := os.MkdirAll(watchDir, 0755); err != nil {
				fatalf("Error creating watch directory: %v", err)
			}
			watcher, err = backup.NewDropWatcher()
			if err != nil {
				fatalf("Error creating watcher: %v", err)
			}
			if err := watcher.Start(watchDir); err != nil {
				fatalf("Error watching %s: %v", watchDir, err)
			}
			defer watcher.Stop()

			go a.importDrops(watcher)
			fmt.Printf("%s Watching %s for backup drops\n", ui.RenderAccent("👀"), watchDir)
		}

		fmt.Printf("%s Sync engine running (Ctrl+C to stop)\n", ui.RenderAccent("🚀"))
		<-ctx.Done()
		fmt.Printf("\n%s Shutting down\n", ui.RenderAccent("🛑"))
	},
}

// importDrops consumes drop events, importing each document once and
// renaming it so it never re-triggers.
func (a *app) importDrops(watcher *backup.DropWatcher) {
	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return
			}
			a.importDrop(event.Path)
		case err, ok := <-watcher.Errors():
			if !ok {
				return
			}
			a.logger.Printf("Warning: watcher error: %v", err)
		}
	}
}

func (a *app) importDrop(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		a.logger.Printf("Warning: failed to read drop %s: %v", path, err)
		return
	}

	notes, folders, err := a.engine.Import(data)
	if err != nil {
		a.logger.Printf("Warning: failed to import drop %s: %v", path, err)
		return
	}

	imported := path + ".imported"
	if err := os.Rename(path, imported); err != nil {
		a.logger.Printf("Warning: failed to archive drop %s: %v", path, err)
	}
	a.logger.Printf("Imported %s: %d notes, %d folders", filepath.Base(path), notes, folders)
}

func init() {
	daemonCmd.Flags().StringVar(&daemonWatchDir, "watch-dir", "", "drop directory to import backups from")
	rootCmd.AddCommand(daemonCmd)
}
