// Command drift is an offline-first notes tool that syncs to a cloud
// store when signed in.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
