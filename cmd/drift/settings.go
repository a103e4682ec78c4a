package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftnotes/drift/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "session",
	Short:   "Show and change user settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		snap := a.engine.Snapshot()
		fmt.Printf("Theme: %s\n", snap.Settings.Theme)
		fmt.Printf("Providers:\n")
		for _, p := range snap.Settings.Providers {
			marker := " "
			if p.ID == snap.Settings.ActiveProviderID {
				marker = ui.RenderPass("*")
			}
			fmt.Printf("  %s %s (%s, %d keys)\n", marker, p.Name, p.Type, len(p.APIKeys))
		}
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:   "theme <dark|light>",
	Short: "Set the UI theme",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		theme := args[0]
		if theme != "dark" && theme != "light" {
			fatalf("Error: theme must be dark or light")
		}

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer a.close()
		a.restoreSession(cmd.Context())

		settings := a.engine.Snapshot().Settings
		settings.Theme = theme
		a.engine.SaveSettings(settings)

		fmt.Printf("%s Theme set to %s\n", ui.RenderPass("✓"), theme)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	rootCmd.AddCommand(settingsCmd)
}
