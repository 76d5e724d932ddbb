package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/droidvault/droidvault/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".droidvault")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultExcludeFile = filepath.Join(DefaultConfigDir, "excludes.yaml")
	DefaultBackupDir   = filepath.Join(home, "DroidVault")
)

const (
	DefaultUser       = "default"
	DefaultDeviceRoot = "/sdcard"
	DefaultAdbPath    = "adb"
)

// Config is everything a run needs to know. No package-level state: the
// loaded struct is passed down explicitly.
type Config struct {
	BackupDir   string `json:"backup_dir"`
	User        string `json:"user"`
	DeviceRoot  string `json:"device_root"`
	AdbPath     string `json:"adb_path"`
	Serial      string `json:"serial,omitempty"`
	ExcludeFile string `json:"exclude_file,omitempty"`
	Path        string `json:"-"`
}

// Default returns a config with every field at its default.
func Default() *Config {
	return &Config{
		BackupDir:   DefaultBackupDir,
		User:        DefaultUser,
		DeviceRoot:  DefaultDeviceRoot,
		AdbPath:     DefaultAdbPath,
		ExcludeFile: DefaultExcludeFile,
		Path:        DefaultConfigPath,
	}
}

// Validate fills defaults and normalizes paths. It does not touch the disk.
func (c *Config) Validate() error {
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}
	resolved, err := utils.ResolvePath(c.BackupDir)
	if err != nil {
		return fmt.Errorf("backup dir: %w", err)
	}
	c.BackupDir = resolved

	if c.User == "" {
		c.User = DefaultUser
	}
	if strings.ContainsAny(c.User, `/\`) {
		return fmt.Errorf("user %q must not contain path separators", c.User)
	}

	if c.DeviceRoot == "" {
		c.DeviceRoot = DefaultDeviceRoot
	}
	if !strings.HasPrefix(c.DeviceRoot, "/") {
		return fmt.Errorf("device root %q must be an absolute device path", c.DeviceRoot)
	}

	if c.AdbPath == "" {
		c.AdbPath = DefaultAdbPath
	}
	if c.ExcludeFile == "" {
		c.ExcludeFile = DefaultExcludeFile
	}

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}
	return nil
}

// Save writes the config to its Path.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config has no path")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, data, 0o644)
}

// LoadFromFile reads and validates a config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
