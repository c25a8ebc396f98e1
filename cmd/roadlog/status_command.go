package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roadlog/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize session counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			total := 0
			rows := make([][]string, 0, len(stats))
			for _, status := range store.AllStatuses() {
				count, ok := stats[status]
				if !ok {
					continue
				}
				total += count
				rows = append(rows, []string{statusCell(status), fmt.Sprintf("%d", count)})
			}
			if total == 0 {
				cmd.Println("No sessions recorded.")
				return nil
			}

			cmd.Println(renderTable(
				[]string{"STATUS", "SESSIONS"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			cmd.Printf("Database: %s\n", st.Path())
			return nil
		},
	}
}
