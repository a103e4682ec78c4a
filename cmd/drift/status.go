package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "session",
	Short:   "Show sync state and local data counts",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()

		a.restoreSession(cmd.Context())
		snap := a.engine.Snapshot()

		fmt.Printf("\n%s drift status\n\n", ui.RenderAccent("☁"))
		fmt.Printf("State: %s\n", snap.State)
		if snap.Identity != nil {
			fmt.Printf("Signed in: %s (%s)\n", snap.Identity.DisplayName, snap.Identity.Email)
		} else {
			fmt.Printf("Signed in: no\n")
		}
		fmt.Printf("Notes: %d\n", len(snap.Notes))
		fmt.Printf("Folders: %d\n", len(snap.Folders))
		fmt.Printf("Store: %s\n", a.store.Path())
		if a.cfg.RemoteDSN == "" {
			fmt.Printf("Cloud: %s\n", ui.RenderFaint("not configured"))
		} else if a.client == nil {
			fmt.Printf("Cloud: %s\n", ui.RenderWarn("unreachable"))
		} else {
			fmt.Printf("Cloud: %s\n", ui.RenderPass("connected"))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
