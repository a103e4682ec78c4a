package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/ui"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "session",
	Short:   "Sign in with a session token",
	Long: `Sign in to the cloud store using a session token from the auth backend.

The token is persisted locally so later commands stay signed in. On sign-in
the cloud copy of your notes becomes authoritative: local data is replaced
with the fetched collections.`,
	Run: func(cmd *cobra.Command, args []string) {
		token := loginToken
		if token == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Session token").
					EchoMode(huh.EchoModePassword).
					Value(&token),
			))
			if err := form.Run(); err != nil {
				fatalf("Error: %v", err)
			}
		}

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()

		id, err := a.sessions.SignIn(token)
		if err != nil {
			fatalf("Error: %v", err)
		}

		a.engine.SignIn(cmd.Context(), *id)
		a.engine.Flush()

		snap := a.engine.Snapshot()
		fmt.Printf("%s Signed in as %s (%s)\n", ui.RenderPass("✓"), id.DisplayName, id.Email)
		fmt.Printf("   Notes: %d  Folders: %d\n", len(snap.Notes), len(snap.Folders))
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "session",
	Short:   "Sign out and return to local-only mode",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()

		if err := a.sessions.SignOut(); err != nil {
			fatalf("Error: %v", err)
		}
		a.engine.SignOut()

		fmt.Printf("%s Signed out; notes stay available locally\n", ui.RenderPass("✓"))
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "session token (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
