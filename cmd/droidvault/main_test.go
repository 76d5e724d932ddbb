package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("DROIDVAULT_BACKUP_DIR", "/tmp/droidvault-test")
	t.Setenv("DROIDVAULT_USER", "tester")
	t.Setenv("DROIDVAULT_DEVICE_ROOT", "/storage/emulated/0")
	t.Setenv("DROIDVAULT_ADB_PATH", "/usr/local/bin/adb")
	t.Setenv("DROIDVAULT_SERIAL", "emulator-5554")

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/tmp/droidvault-test", cfg.BackupDir)
	assert.Equal(t, "tester", cfg.User)
	assert.Equal(t, "/storage/emulated/0", cfg.DeviceRoot)
	assert.Equal(t, "/usr/local/bin/adb", cfg.AdbPath)
	assert.Equal(t, "emulator-5554", cfg.Serial)
}

func TestLoadConfigFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	content := fmt.Sprintf(`{
	"backup_dir": %q,
	"user": "phone",
	"device_root": "/sdcard",
	"adb_path": "adb"
}`, filepath.Join(dir, "Backups"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	require.NoError(t, rootCmd.PersistentFlags().Set("config", configPath))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, configPath, cfg.Path)
	assert.Equal(t, filepath.Join(dir, "Backups"), cfg.BackupDir)
	assert.Equal(t, "phone", cfg.User)
	assert.Equal(t, "/sdcard", cfg.DeviceRoot)
}
