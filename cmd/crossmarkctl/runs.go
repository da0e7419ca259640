package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type runHistoryRow struct {
	ID             string  `json:"id"`
	StartedAt      string  `json:"started_at"`
	EndedAt        *string `json:"ended_at,omitempty"`
	RunType        string  `json:"run_type"`
	State          string  `json:"state"`
	TotalProcessed int     `json:"total_processed"`
	Scheduled      int     `json:"scheduled"`
	RequiringSwaps int     `json:"requiring_swaps"`
	Failed         int     `json:"failed"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

type pendingScheduleRow struct {
	ID            string  `json:"id"`
	EventRefNum   int     `json:"event_ref_num"`
	EmployeeID    *string `json:"employee_id,omitempty"`
	Status        string  `json:"status"`
	IsSwap        bool    `json:"is_swap"`
	SwapReason    *string `json:"swap_reason,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect scheduler runs and their proposals (C5/C6)",
	}
	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsGetCmd())
	cmd.AddCommand(newRunsTriggerCmd())
	cmd.AddCommand(newRunsApproveCmd())
	cmd.AddCommand(newRunsRejectCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "GET auto_schedule/runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				Runs []runHistoryRow `json:"runs"`
			}
			query := map[string]string{"limit": fmt.Sprintf("%d", limit)}
			if err := client.get(cmd.Context(), "/auto_schedule/runs", query, &result); err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result.Runs)
			}
			return renderRunsTable(cmd, result.Runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max runs to list")
	return cmd
}

func renderRunsTable(cmd *cobra.Command, rows []runHistoryRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "Type", "State", "Started", "Total", "Scheduled", "Swaps", "Failed"})
	for _, row := range rows {
		table.Append([]string{
			row.ID,
			row.RunType,
			row.State,
			row.StartedAt,
			fmt.Sprintf("%d", row.TotalProcessed),
			fmt.Sprintf("%d", row.Scheduled),
			fmt.Sprintf("%d", row.RequiringSwaps),
			fmt.Sprintf("%d", row.Failed),
		})
	}
	table.Render()
	return nil
}

func newRunsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <run-id>",
		Short: "GET auto_schedule/runs/{id} (run status plus categorized proposals)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				Run            runHistoryRow                    `json:"run"`
				NewlyScheduled []pendingScheduleRow              `json:"newly_scheduled"`
				Swaps          []pendingScheduleRow              `json:"swaps"`
				Failed         []pendingScheduleRow              `json:"failed"`
				DailyPreview   map[string][]pendingScheduleRow   `json:"daily_preview"`
			}
			if err := client.get(cmd.Context(), "/auto_schedule/runs/"+args[0], nil, &result); err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			if err := renderRunsTable(cmd, []runHistoryRow{result.Run}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Newly scheduled:")
			if err := renderProposalsTable(cmd, result.NewlyScheduled); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Swaps:")
			if err := renderProposalsTable(cmd, result.Swaps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Failed:")
			return renderProposalsTable(cmd, result.Failed)
		},
	}
}

func renderProposalsTable(cmd *cobra.Command, rows []pendingScheduleRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  (none)")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "Event", "Employee", "Status", "Swap", "Reason"})
	for _, row := range rows {
		employeeID := "-"
		if row.EmployeeID != nil {
			employeeID = *row.EmployeeID
		}
		reason := ""
		if row.SwapReason != nil {
			reason = *row.SwapReason
		} else if row.FailureReason != nil {
			reason = *row.FailureReason
		}
		swap := ""
		if row.IsSwap {
			swap = "Yes"
		}
		table.Append([]string{row.ID, fmt.Sprintf("%d", row.EventRefNum), employeeID, row.Status, swap, reason})
	}
	table.Render()
	return nil
}

func newRunsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "POST auto_schedule/run (start a manual scheduling pass)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				RunID string `json:"run_id"`
			}
			if err := client.post(cmd.Context(), "/auto_schedule/run", nil, &result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started run %s\n", result.RunID)
			return nil
		},
	}
}

func newRunsApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <run-id>",
		Short: "POST auto_schedule/runs/{id}/approve (commit proposals into Schedules and enqueue pushes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			if err := client.post(cmd.Context(), "/auto_schedule/runs/"+args[0]+"/approve", nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approved run %s\n", args[0])
			return nil
		},
	}
}

func newRunsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <run-id>",
		Short: "POST auto_schedule/runs/{id}/reject (discard remaining proposals)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			if err := client.post(cmd.Context(), "/auto_schedule/runs/"+args[0]+"/reject", nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected run %s\n", args[0])
			return nil
		},
	}
}
