package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/droidvault/droidvault/internal/adb"
	"github.com/droidvault/droidvault/internal/backup"
	"github.com/droidvault/droidvault/internal/history"
	"github.com/droidvault/droidvault/internal/workspace"
)

func init() {
	rootCmd.AddCommand(newBackupCmd())
}

func newBackupCmd() *cobra.Command {
	var selectPaths []string
	var rootName string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Pull new device files into a dated session",
		Long: `Backup walks the device root, skips folders matched by the exclude rules,
and pulls every file not seen in an earlier run. With --select only the
given remote paths are backed up, exclude rules do not apply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			out := cmd.OutOrStdout()

			device, err := adb.New(cfg.AdbPath, adb.WithSerial(cfg.Serial))
			if err != nil {
				return err
			}

			ws, err := workspace.NewWorkspace(cfg.BackupDir, cfg.User)
			if err != nil {
				return err
			}
			if err := ws.Setup(); err != nil {
				return err
			}
			defer ws.Unlock()

			index, err := backup.OpenIndex(ws.IndexPath(), cfg.DeviceRoot)
			if err != nil {
				return err
			}
			if err := index.MigrateLegacy(ws.LegacyRecordPath(), ws.LegacyRestoreRecordPath()); err != nil {
				slog.Warn("legacy record import failed", "error", err)
			}

			rules := backup.LoadExcludeRules(cfg.ExcludeFile)

			if rootName == "" {
				rootName = workspace.RootName(time.Now())
			}

			updates := make(chan backup.Progress, 64)
			eng, err := backup.NewEngine(backup.EngineConfig{
				Device:         device,
				Index:          index,
				Rules:          rules,
				DeviceRoot:     cfg.DeviceRoot,
				SessionDir:     ws.SessionDir(rootName),
				UserDir:        ws.UserDir,
				Root:           rootName,
				FailureLogPath: ws.FailureLogPath(),
				OnProgress:     func(p backup.Progress) { updates <- p },
			})
			if err != nil {
				return err
			}

			selections, err := probeSelections(cmd.Context(), device, selectPaths)
			if err != nil {
				return err
			}

			start := time.Now()
			var stats *backup.BackupStats
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				defer close(updates)
				var runErr error
				if len(selections) > 0 {
					stats, runErr = eng.BackupSelection(gctx, selections)
				} else {
					stats, runErr = eng.Backup(gctx)
				}
				return runErr
			})
			g.Go(func() error {
				for p := range updates {
					printProgress(out, p)
				}
				return nil
			})
			runErr := g.Wait()

			if stats != nil {
				mode := history.ModeBackup
				if len(selections) > 0 {
					mode = history.ModeBackupSelection
				}
				recordHistory(ws, &history.Session{
					Mode:       mode,
					Root:       eng.Root(),
					StartedAt:  start,
					FinishedAt: time.Now(),
					Copied:     stats.Copied,
					Skipped:    stats.Skipped,
					Failed:     stats.Failed,
				})

				fmt.Fprintf(out, "\nSession %s: %s copied, %s skipped, %s failed (%s)\n",
					cyan.Render(eng.Root()),
					green.Render(fmt.Sprintf("%d", stats.Copied)),
					gray.Render(fmt.Sprintf("%d", stats.Skipped)),
					red.Render(fmt.Sprintf("%d", stats.Failed)),
					time.Since(start).Round(time.Second))
				if stats.Failed > 0 {
					fmt.Fprintf(out, "Failed paths listed in %s\n", ws.FailureLogPath())
				}
			}
			return runErr
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringArrayVar(&selectPaths, "select", nil, "back up only this remote path (repeatable)")
	cmd.Flags().StringVar(&rootName, "root", "", "session root name (default today's date)")
	return cmd
}

// probeSelections asks the device whether each selected path is a directory,
// so directories get expanded recursively and files are pulled as-is.
func probeSelections(ctx context.Context, device backup.Device, paths []string) ([]backup.Selection, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	disc := backup.NewDiscovery(device)
	selections := make([]backup.Selection, 0, len(paths))
	for _, p := range paths {
		isDir, err := disc.IsDir(ctx, p)
		if err != nil {
			return nil, err
		}
		selections = append(selections, backup.Selection{Path: p, IsDir: isDir})
	}
	return selections, nil
}
