package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/repowatch/internal/utils"
)

const (
	testConfigurationFileNameConstant = "config.yaml"
	testCacheFileNameConstant         = "cache"
	testRepositoryNameConstant        = "alpha"
)

type testConfigurationDocument struct {
	Common   map[string]string `yaml:"common"`
	Watchdog map[string]any    `yaml:"watchdog"`
}

func writeConfigurationFixture(testInstance *testing.T, document testConfigurationDocument) string {
	testInstance.Helper()

	encodedDocument, marshalError := yaml.Marshal(document)
	require.NoError(testInstance, marshalError)

	configurationPath := filepath.Join(testInstance.TempDir(), testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, encodedDocument, 0o644))
	return configurationPath
}

func TestInitializeConfigurationMergesDefaultsAndFile(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	cacheFilePath := filepath.Join(testInstance.TempDir(), testCacheFileNameConstant)
	configurationPath := writeConfigurationFixture(testInstance, testConfigurationDocument{
		Watchdog: map[string]any{
			"root":           rootDirectory,
			"cache_file":     cacheFilePath,
			"check_interval": "90s",
			"scan_excludes":  []string{"node_modules"},
		},
	})

	application := NewApplication()
	application.configurationFilePath = configurationPath

	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	require.Equal(testInstance, string(utils.LogLevelInfo), application.configuration.Common.LogLevel)
	require.Equal(testInstance, rootDirectory, application.configuration.Watchdog.RootDirectory)
	require.Equal(testInstance, cacheFilePath, application.configuration.Watchdog.CacheFilePath)
	require.Equal(testInstance, 90*time.Second, application.configuration.Watchdog.CheckInterval)
	require.Equal(testInstance, []string{"node_modules"}, application.configuration.Watchdog.ScanExcludes)
	require.False(testInstance, application.humanReadableLoggingEnabled())
}

func TestInitializeConfigurationHonorsLogFormatFlag(testInstance *testing.T) {
	application := NewApplication()

	require.NoError(testInstance, application.rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, string(utils.LogFormatConsole)))
	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	require.True(testInstance, application.humanReadableLoggingEnabled())
}

func TestEmbeddedDefaultConfigurationParses(testInstance *testing.T) {
	embeddedContent, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, configurationType)

	var document testConfigurationDocument
	require.NoError(testInstance, yaml.Unmarshal(embeddedContent, &document))
	require.Equal(testInstance, "info", document.Common["log_level"])
	require.Equal(testInstance, "structured", document.Common["log_format"])
	require.Equal(testInstance, "~/.repowatch/cache", document.Watchdog["cache_file"])
}

func TestScanCommandListsDiscoveredRepositories(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	repositoryPath := filepath.Join(rootDirectory, testRepositoryNameConstant)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, ".git"), 0o755))
	cacheFilePath := filepath.Join(testInstance.TempDir(), testCacheFileNameConstant)

	configurationPath := writeConfigurationFixture(testInstance, testConfigurationDocument{
		Watchdog: map[string]any{
			"root":       rootDirectory,
			"cache_file": cacheFilePath,
		},
	})

	application := NewApplication()
	outputBuffer := &bytes.Buffer{}
	application.rootCommand.SetOut(outputBuffer)
	application.rootCommand.SetErr(outputBuffer)
	application.rootCommand.SetArgs([]string{"scan", "--config", configurationPath})

	require.NoError(testInstance, application.rootCommand.Execute())
	require.Contains(testInstance, outputBuffer.String(), repositoryPath)

	cacheContent, readError := os.ReadFile(cacheFilePath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(cacheContent), repositoryPath)
}
