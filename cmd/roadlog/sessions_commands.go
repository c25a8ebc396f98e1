package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roadlog/internal/recovery"
	"roadlog/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage recorded survey sessions",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				cmd.Println("No sessions recorded.")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, session := range sessions {
				rows = append(rows, sessionRow(session))
			}
			cmd.Println(renderTable(
				[]string{"ID", "NAME", "STATUS", "CAPTURES", "SIZE", "DURATION", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with capture and publish details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			session, err := resolveSession(cmd, st, args[0])
			if err != nil {
				return err
			}

			captures, err := st.GetSessionCaptures(cmd.Context(), session.ID)
			if err != nil {
				return err
			}
			unpublished := 0
			for _, capture := range captures {
				if !capture.Published {
					unpublished++
				}
			}
			gaps := recovery.Gaps(captures)

			cmd.Printf("Session:   %s\n", session.ID)
			cmd.Printf("Name:      %s\n", session.Name)
			cmd.Printf("Status:    %s\n", session.Status)
			cmd.Printf("Created:   %s\n", formatTimestamp(session.CreatedAt))
			cmd.Printf("Captures:  %d (%d unpublished)\n", session.CaptureCount, unpublished)
			cmd.Printf("Size:      %s (avg image %s)\n", formatBytes(session.TotalBytes), formatBytes(session.AvgImageSize))
			cmd.Printf("Duration:  %s\n", formatDuration(session.Duration))
			cmd.Printf("Last shot: %s\n", formatOptionalTime(session.LastCaptureTime))

			if len(gaps) > 0 {
				parts := make([]string, 0, len(gaps))
				var missing int64
				for _, gap := range gaps {
					parts = append(parts, fmt.Sprintf("%d..%d", gap.After, gap.Before))
					missing += gap.Missing
				}
				cmd.Printf("Gaps:      %s (%d frames possibly lost)\n", strings.Join(parts, ", "), missing)
			}

			state, err := st.GetPublishState(cmd.Context(), session.ID)
			if err != nil {
				return err
			}
			if state != nil {
				cmd.Printf("Publish:   %d/%d uploaded, %d failed, started %s\n",
					state.Completed, state.TotalToUpload, state.Failed, formatTimestamp(state.PublishStarted))
				if state.CompletedAt != nil {
					cmd.Printf("Completed: %s\n", formatTimestamp(*state.CompletedAt))
				}
			}
			return nil
		},
	}
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session, its captures, and its publish state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			session, err := resolveSession(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := st.DeleteSession(cmd.Context(), session.ID); err != nil {
				return err
			}
			cmd.Printf("Deleted session %s (%s)\n", shortID(session.ID), session.Name)
			return nil
		},
	}
}

// resolveSession accepts either a full session ID or an unambiguous prefix.
func resolveSession(cmd *cobra.Command, st *store.Store, ref string) (*store.Session, error) {
	session, err := st.GetSession(cmd.Context(), ref)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return nil, err
	}
	var match *store.Session
	for _, candidate := range sessions {
		if strings.HasPrefix(candidate.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("session id prefix %q is ambiguous", ref)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no session matches %q", ref)
	}
	return match, nil
}
