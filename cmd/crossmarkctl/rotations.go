package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type dailyRotationRow struct {
	Weekday      int     `json:"weekday"`
	RotationType string  `json:"rotation_type"`
	EmployeeID   *string `json:"employee_id,omitempty"`
}

func newRotationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotations",
		Short: "Inspect the weekday x rotation_type grid (C2)",
	}
	cmd.AddCommand(newRotationsListCmd())
	return cmd
}

func newRotationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "GET rotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var result struct {
				Rotations []dailyRotationRow `json:"rotations"`
			}
			if err := client.get(cmd.Context(), "/rotations", nil, &result); err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), result.Rotations)
			}
			return renderRotationsTable(cmd, result.Rotations)
		},
	}
}

func renderRotationsTable(cmd *cobra.Command, rows []dailyRotationRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rotation entries found.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Weekday", "Rotation Type", "Employee ID"})
	for _, row := range rows {
		weekday := fmt.Sprintf("%d", row.Weekday)
		if row.Weekday >= 0 && row.Weekday < len(weekdayNames) {
			weekday = weekdayNames[row.Weekday]
		}
		employeeID := "-"
		if row.EmployeeID != nil {
			employeeID = *row.EmployeeID
		}
		table.Append([]string{weekday, row.RotationType, employeeID})
	}
	table.Render()
	return nil
}
