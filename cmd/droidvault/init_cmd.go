package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/droidvault/droidvault/internal/config"
	"github.com/droidvault/droidvault/internal/utils"
)

const starterExcludes = `# Folders skipped during full backups. A folder is excluded when any
# pattern below occurs anywhere in its remote path.
excluded_folders:
  - /Android/data
  - /Android/obb
`

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and exclude file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if cfg, err := config.LoadFromFile(config.DefaultConfigPath); err == nil {
				fmt.Fprintln(out, "DroidVault already initialized")
				printConfigSummary(out, cfg)
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cfg.Path = config.DefaultConfigPath
			if err := cfg.Save(); err != nil {
				return err
			}

			if !utils.FileExists(cfg.ExcludeFile) {
				if err := utils.EnsureParent(cfg.ExcludeFile); err != nil {
					return err
				}
				if err := os.WriteFile(cfg.ExcludeFile, []byte(starterExcludes), 0o644); err != nil {
					return fmt.Errorf("write exclude file: %w", err)
				}
			}

			fmt.Fprintln(out, "DroidVault initialized")
			printConfigSummary(out, cfg)
			return nil
		},
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Config:      %s\n", green.Render(cfg.Path))
	fmt.Fprintf(w, "Backup Dir:  %s\n", cyan.Render(cfg.BackupDir))
	fmt.Fprintf(w, "User:        %s\n", cyan.Render(cfg.User))
	fmt.Fprintf(w, "Device Root: %s\n", cyan.Render(cfg.DeviceRoot))
	fmt.Fprintf(w, "ADB:         %s\n", cyan.Render(cfg.AdbPath))
	if cfg.ExcludeFile != "" {
		fmt.Fprintf(w, "Excludes:    %s\n", cyan.Render(cfg.ExcludeFile))
	}
}
