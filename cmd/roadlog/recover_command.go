package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roadlog/internal/recovery"
)

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Demote sessions interrupted by a crash to a resumable state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			scanner := recovery.NewScanner(st, logger)
			recovered, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}
			if len(recovered) == 0 {
				cmd.Println("No interrupted sessions found.")
				return nil
			}

			rows := make([][]string, 0, len(recovered))
			for _, item := range recovered {
				rows = append(rows, []string{
					shortID(item.Session.ID),
					item.Session.Name,
					fmt.Sprintf("%d", item.Session.CaptureCount),
					fmt.Sprintf("%d", len(item.Info.Gaps)),
					fmt.Sprintf("%d", item.Info.PotentialMissedFrames),
					formatOptionalTime(item.Info.LastCaptureTime),
				})
			}
			cmd.Println(renderTable(
				[]string{"ID", "NAME", "CAPTURES", "GAPS", "MISSED?", "LAST CAPTURE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			cmd.Printf("%d session(s) demoted to paused.\n", len(recovered))
			return nil
		},
	}
}
