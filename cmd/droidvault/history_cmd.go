package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/droidvault/droidvault/internal/history"
	"github.com/droidvault/droidvault/internal/workspace"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent backup and restore sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ws, err := workspace.NewWorkspace(cfg.BackupDir, cfg.User)
			if err != nil {
				return err
			}

			store := history.NewStore(ws.HistoryDBPath())
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Recent(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(out, "%s  %-16s root %-12s copied %-4d skipped %-4d failed %-4d %s\n",
					s.StartedAt.Local().Format("2006-01-02 15:04"), s.Mode, s.Root,
					s.Copied, s.Skipped, s.Failed, gray.Render(humanize.Time(s.StartedAt)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to show")
	return cmd
}

// recordHistory appends one session row. History is observability only:
// failures are logged, never returned.
func recordHistory(ws *workspace.Workspace, session *history.Session) {
	store := history.NewStore(ws.HistoryDBPath())
	if err := store.Open(); err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Record(session); err != nil {
		slog.Warn("history record failed", "error", err)
	}
}
