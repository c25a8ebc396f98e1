package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadlog/internal/coverage"
	"roadlog/internal/notifications"
	"roadlog/internal/preflight"
	"roadlog/internal/publish"
	"roadlog/internal/recovery"
	"roadlog/internal/remote"
	"roadlog/internal/store"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <session-id>",
		Short: "Upload a session's captures to the content repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateRemote(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			results := preflight.Run(cfg)
			for _, result := range results {
				if !result.Passed {
					return fmt.Errorf("preflight check failed: %s: %s", result.Name, result.Detail)
				}
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			// Sessions interrupted by a crash must be demoted before anything
			// publishes, so gaps are surfaced and no session is uploaded while
			// it still looks mid-recording.
			recovered, err := recovery.NewScanner(st, logger).Scan(cmd.Context())
			if err != nil {
				return err
			}
			for _, item := range recovered {
				cmd.Printf("Recovered interrupted session %s (%s); demoted to paused.\n",
					shortID(item.Session.ID), item.Session.Name)
			}

			session, err := resolveSession(cmd, st, args[0])
			if err != nil {
				return err
			}

			collector, err := st.GetSetting(cmd.Context(), "collector", cfg.Capture.Collector)
			if err != nil {
				return err
			}

			client := remote.NewClient(cfg.GitHub)
			merger := coverage.NewMerger(client, st, collector, logger)
			notifier := notifications.Multi(
				notifications.NewService(cfg),
				&consoleProgress{cmd: cmd},
			)

			coordinator := publish.NewCoordinator(cfg, st, client, notifier, logger,
				publish.WithMerger(merger),
				publish.WithConnectivityWaiter(publish.NewConnectivityWaiter(cfg.GitHub.BaseURL, logger)),
			)

			if err := coordinator.Start(cmd.Context(), session.ID); err != nil {
				return err
			}

			return waitForJob(cmd.Context(), cmd, coordinator, st, session.ID)
		},
	}
}

// waitForJob polls the coordinator until the job clears, cancelling cleanly
// on interrupt so the session never stays in publishing status.
func waitForJob(ctx context.Context, cmd *cobra.Command, coordinator *publish.Coordinator, st *store.Store, sessionID string) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nInterrupted, cancelling publish...")
			if err := coordinator.Cancel(context.Background()); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
		}

		status := coordinator.Status()
		if !status.Active {
			break
		}
	}

	session, err := st.GetSession(context.Background(), sessionID)
	if err != nil {
		return err
	}
	switch session.Status {
	case store.StatusPublished:
		cmd.Printf("Session %s published.\n", shortID(sessionID))
		return nil
	case store.StatusPartiallyPublished:
		cmd.Printf("Session %s partially published; rerun publish to retry failed items.\n", shortID(sessionID))
		return nil
	case store.StatusPublishing:
		return fmt.Errorf("publish did not finish; session %s left resumable", shortID(sessionID))
	default:
		cmd.Printf("Session %s finished in status %s.\n", shortID(sessionID), session.Status)
		return nil
	}
}

// consoleProgress prints drain progress inline. It implements
// notifications.Service so the CLI consumes the same surface as push sinks.
type consoleProgress struct {
	cmd *cobra.Command
}

func (p *consoleProgress) NotifyPublishStarted(_ context.Context, sessionName string, total int) error {
	p.cmd.Printf("Publishing %s: %d captures queued\n", sessionName, total)
	return nil
}

func (p *consoleProgress) NotifyProgress(_ context.Context, _ string, progress notifications.Progress) error {
	eta := ""
	if progress.EstimatedSeconds > 0 {
		eta = fmt.Sprintf(", ~%s left", (time.Duration(progress.EstimatedSeconds) * time.Second).String())
	}
	line := fmt.Sprintf("  %d/%d uploaded (%.0f%%), %d failed%s",
		progress.Completed, progress.Total, progress.Percent, progress.Failed, eta)
	if isTTY() {
		p.cmd.Printf("\r%s", line+strings.Repeat(" ", 8))
	} else {
		p.cmd.Println(line)
	}
	return nil
}

func (p *consoleProgress) NotifyPublishCompleted(_ context.Context, _ string, completed, failed, total int) error {
	if isTTY() {
		p.cmd.Println()
	}
	p.cmd.Printf("Upload complete: %d/%d succeeded, %d failed\n", completed, total, failed)
	return nil
}

func (p *consoleProgress) NotifyError(_ context.Context, err error, itemContext string) error {
	if isTTY() {
		p.cmd.Println()
	}
	if itemContext != "" {
		p.cmd.Printf("  %s: %v\n", itemContext, err)
	} else {
		p.cmd.Printf("  error: %v\n", err)
	}
	return nil
}
