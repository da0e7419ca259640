// Command crossmarkctl is an operator CLI over the consumer API (spec
// §6): rotation lookups, auto-schedule run inspection, and sync admin,
// for an operator who would otherwise reach for curl against
// cmd/server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crossmarkctl",
		Short:         "Operate the crossmark scheduling core over its HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("base-url", defaultBaseURL(), "crossmark-scheduling-core base URL (env CROSSMARKCTL_BASE_URL)")
	root.PersistentFlags().String("token", os.Getenv("CROSSMARKCTL_TOKEN"), "operator bearer token (env CROSSMARKCTL_TOKEN)")
	root.PersistentFlags().Bool("json", false, "output raw JSON instead of a table")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newRotationsCmd())
	root.AddCommand(newRunsCmd())

	return root
}

func defaultBaseURL() string {
	if v := os.Getenv("CROSSMARKCTL_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
