package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect or kick the background reconciliation pipeline (C8)",
	}
	cmd.AddCommand(newSyncHealthCmd())
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncTriggerCmd())
	return cmd
}

func newSyncHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "GET sync/health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result map[string]any
			if err := client.get(cmd.Context(), "/sync/health", nil, &result); err != nil {
				return err
			}
			return renderSyncHealth(cmd, result)
		},
	}
}

func renderSyncHealth(cmd *cobra.Command, result map[string]any) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "status: %v\n", result["status"])
	checks, _ := result["checks"].(map[string]any)
	if len(checks) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Dependency", "Status", "Error"})
	for name, raw := range checks {
		check, _ := raw.(map[string]any)
		table.Append([]string{name, fmt.Sprintf("%v", check["status"]), fmt.Sprintf("%v", check["error"])})
	}
	table.Render()
	return nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "GET sync/status (background task queue depth by status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				TaskCounts map[string]int `json:"task_counts"`
			}
			if err := client.get(cmd.Context(), "/sync/status", nil, &result); err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Status", "Count"})
			for status, count := range result.TaskCounts {
				table.Append([]string{status, fmt.Sprintf("%d", count)})
			}
			table.Render()
			return nil
		},
	}
}

func newSyncTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "POST sync/trigger (enqueue an out-of-band pull_events task)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				TaskID string `json:"task_id"`
			}
			if err := client.post(cmd.Context(), "/sync/trigger", nil, &result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued pull_events task %s\n", result.TaskID)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
