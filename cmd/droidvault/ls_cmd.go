package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/droidvault/droidvault/internal/adb"
	"github.com/droidvault/droidvault/internal/backup"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [REMOTE_DIR]",
		Short: "List a device directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			device, err := adb.New(cfg.AdbPath, adb.WithSerial(cfg.Serial))
			if err != nil {
				return err
			}

			dir := cfg.DeviceRoot
			if len(args) == 1 {
				dir = args[0]
				if !strings.HasPrefix(dir, "/") {
					dir = path.Join(cfg.DeviceRoot, dir)
				}
			}

			entries, err := backup.NewDiscovery(device).Children(cmd.Context(), dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				name := path.Base(e.Path)
				if e.IsDir {
					fmt.Fprintln(out, cyan.Render(name+"/"))
				} else {
					fmt.Fprintln(out, name)
				}
			}
			return nil
		},
	}
}
