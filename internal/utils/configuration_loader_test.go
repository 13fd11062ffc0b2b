package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repowatch/internal/utils"
)

type loaderTestConfiguration struct {
	Common struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"common"`
	Watchdog struct {
		Root          string        `mapstructure:"root"`
		CheckInterval time.Duration `mapstructure:"check_interval"`
		ScanExcludes  []string      `mapstructure:"scan_excludes"`
	} `mapstructure:"watchdog"`
}

func TestLoadConfigurationAppliesDefaultsAndFile(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(temporaryDirectory, "config.yaml")
	configurationContent := "watchdog:\n  root: /srv/repositories\n  check_interval: 90s\n"
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o644))

	defaultValues := map[string]any{
		"common.log_level":        "info",
		"watchdog.check_interval": "5m",
		"watchdog.scan_excludes":  []string{"node_modules"},
	}

	loader := utils.NewConfigurationLoader("config", "yaml", "REPOWATCH", []string{temporaryDirectory})

	var loadedConfiguration loaderTestConfiguration
	metadata, loadError := loader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
	require.Equal(testInstance, "info", loadedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "/srv/repositories", loadedConfiguration.Watchdog.Root)
	require.Equal(testInstance, 90*time.Second, loadedConfiguration.Watchdog.CheckInterval)
	require.Equal(testInstance, []string{"node_modules"}, loadedConfiguration.Watchdog.ScanExcludes)
}

func TestLoadConfigurationMergesEmbeddedDefaults(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader("config", "yaml", "REPOWATCH", nil)
	loader.SetEmbeddedConfiguration([]byte("common:\n  log_level: warn\n"))

	var loadedConfiguration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration("", map[string]any{}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", loadedConfiguration.Common.LogLevel)
}

func TestLoadConfigurationReportsUnreadableFile(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(temporaryDirectory, "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("watchdog: ["), 0o644))

	loader := utils.NewConfigurationLoader("config", "yaml", "REPOWATCH", nil)

	var loadedConfiguration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{}, &loadedConfiguration)
	require.Error(testInstance, loadError)
	require.ErrorContains(testInstance, loadError, "failed to read configuration")
}
