package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/droidvault/droidvault/internal/config"
	"github.com/droidvault/droidvault/internal/utils"
	"github.com/droidvault/droidvault/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var rootCmd = &cobra.Command{
	Use:     "droidvault",
	Short:   "Incremental Android backups over adb",
	Version: version.Detailed(),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.SortFlags = false
	pf.StringP("config", "c", config.DefaultConfigPath, "config file")
	pf.StringP("backup-dir", "b", config.DefaultBackupDir, "local backup directory")
	pf.StringP("user", "u", config.DefaultUser, "workspace name under the backup directory")
	pf.String("adb", config.DefaultAdbPath, "adb binary to shell out to")
	pf.StringP("serial", "s", "", "device serial, required when several devices are attached")
	pf.String("device-root", config.DefaultDeviceRoot, "remote directory to back up")
	pf.String("excludes", "", "excluded-folders YAML file")
}

func main() {
	// A .env next to the binary can set DROIDVAULT_* variables.
	_ = godotenv.Load()

	logFile := filepath.Join(config.DefaultConfigDir, "logs", "droidvault.log")

	// Terminal gets readable info-level logs, the log file gets everything.
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}),
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "log directory unavailable: %v\n", err)
	} else if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable: %v\n", err)
	} else {
		defer file.Close()
		lineWriter := utils.NewLineWriter(file)
		defer lineWriter.Close()
		handlers = append(handlers, slog.NewTextHandler(lineWriter, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			// Do not include time as it is added by the line writer.
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}))
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(handlers...)))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges the config file, DROIDVAULT_* environment variables and
// flags, in ascending precedence, and returns the validated result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("config") {
		configFilePath, _ := flags.GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(config.DefaultConfigDir)
		viper.AddConfigPath(filepath.Join(home, ".config", "droidvault"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return nil, fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("backup_dir", flags.Lookup("backup-dir"))
	viper.BindPFlag("user", flags.Lookup("user"))
	viper.BindPFlag("adb_path", flags.Lookup("adb"))
	viper.BindPFlag("serial", flags.Lookup("serial"))
	viper.BindPFlag("device_root", flags.Lookup("device-root"))
	viper.BindPFlag("exclude_file", flags.Lookup("excludes"))

	viper.SetEnvPrefix("DROIDVAULT")
	viper.AutomaticEnv()

	cfg := &config.Config{
		Path:        viper.ConfigFileUsed(),
		BackupDir:   viper.GetString("backup_dir"),
		User:        viper.GetString("user"),
		DeviceRoot:  viper.GetString("device_root"),
		AdbPath:     viper.GetString("adb_path"),
		Serial:      viper.GetString("serial"),
		ExcludeFile: viper.GetString("exclude_file"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
