package main

import (
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
	rootCmd.AddCommand(newRestoreCmd())
}

func newRestoreCmd() *cobra.Command {
	var rootName string

	cmd := &cobra.Command{
		Use:   "restore KEY...",
		Short: "Push backed-up files onto the device",
		Long: `Restore pushes local captures back to their original place on the device.
Keys are device-relative paths as shown by droidvault tree, for example
Download/report.pdf. Without --root each file comes from its most recent
capture.`,
		Args: cobra.MinimumNArgs(1),
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

			sessionRoot := workspace.RootName(time.Now())
			updates := make(chan backup.Progress, 64)
			eng, err := backup.NewEngine(backup.EngineConfig{
				Device:         device,
				Index:          index,
				DeviceRoot:     cfg.DeviceRoot,
				SessionDir:     ws.SessionDir(sessionRoot),
				UserDir:        ws.UserDir,
				Root:           sessionRoot,
				FailureLogPath: ws.FailureLogPath(),
				OnProgress:     func(p backup.Progress) { updates <- p },
			})
			if err != nil {
				return err
			}

			items := make([]backup.RestoreItem, 0, len(args))
			for _, key := range args {
				items = append(items, backup.RestoreItem{Key: key, Root: rootName})
			}

			start := time.Now()
			var stats *backup.RestoreStats
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				defer close(updates)
				var runErr error
				stats, runErr = eng.Restore(gctx, items)
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
				historyRoot := rootName
				if historyRoot == "" {
					historyRoot = "latest"
				}
				recordHistory(ws, &history.Session{
					Mode:       history.ModeRestore,
					Root:       historyRoot,
					StartedAt:  start,
					FinishedAt: time.Now(),
					Copied:     stats.Restored,
					Failed:     stats.Failed,
				})

				fmt.Fprintf(out, "\nRestored %s, failed %s (%s)\n",
					green.Render(fmt.Sprintf("%d", stats.Restored)),
					red.Render(fmt.Sprintf("%d", stats.Failed)),
					time.Since(start).Round(time.Second))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&rootName, "root", "", "restore from this session root (default latest capture)")
	return cmd
}
