package watchdog

import (
	"errors"
	"strings"
	"time"

	pathutils "github.com/temirov/repowatch/internal/utils/path"
)

const (
	defaultCacheFilePathConstant = "~/.repowatch/cache"
	defaultCheckIntervalConstant = 5 * time.Minute

	rootConfigurationKeyConstant            = "root"
	cacheFileConfigurationKeyConstant       = "cache_file"
	checkIntervalConfigurationKeyConstant   = "check_interval"
	scanExcludesConfigurationKeyConstant    = "scan_excludes"
	checkExcludesConfigurationKeyConstant   = "check_excludes"
	remoteOverridesConfigurationKeyConstant = "remote_overrides"
	configurationKeySeparatorConstant       = "."

	rootNotConfiguredMessageConstant      = "watchdog root directory must be configured"
	cacheFileNotConfiguredMessageConstant = "watchdog cache file must be configured"
	intervalNotPositiveMessageConstant    = "watchdog check interval must be positive"
)

// ErrRootNotConfigured indicates the watchdog was configured without a scan root.
var ErrRootNotConfigured = errors.New(rootNotConfiguredMessageConstant)

// ErrCacheFileNotConfigured indicates the watchdog was configured without a cache file path.
var ErrCacheFileNotConfigured = errors.New(cacheFileNotConfiguredMessageConstant)

// ErrCheckIntervalNotPositive indicates a non-positive poll interval.
var ErrCheckIntervalNotPositive = errors.New(intervalNotPositiveMessageConstant)

// Configuration captures the watchdog settings loaded at startup.
type Configuration struct {
	RootDirectory   string            `mapstructure:"root"`
	CacheFilePath   string            `mapstructure:"cache_file"`
	CheckInterval   time.Duration     `mapstructure:"check_interval"`
	ScanExcludes    []string          `mapstructure:"scan_excludes"`
	CheckExcludes   []string          `mapstructure:"check_excludes"`
	RemoteOverrides map[string]string `mapstructure:"remote_overrides"`
}

// DefaultConfiguration provides baseline watchdog configuration values.
func DefaultConfiguration() Configuration {
	return Configuration{
		CacheFilePath: defaultCacheFilePathConstant,
		CheckInterval: defaultCheckIntervalConstant,
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultConfiguration()
	prefixedKey := func(key string) string {
		return configurationKeyPrefix + configurationKeySeparatorConstant + key
	}
	return map[string]any{
		prefixedKey(rootConfigurationKeyConstant):            defaults.RootDirectory,
		prefixedKey(cacheFileConfigurationKeyConstant):       defaults.CacheFilePath,
		prefixedKey(checkIntervalConfigurationKeyConstant):   defaults.CheckInterval.String(),
		prefixedKey(scanExcludesConfigurationKeyConstant):    defaults.ScanExcludes,
		prefixedKey(checkExcludesConfigurationKeyConstant):   defaults.CheckExcludes,
		prefixedKey(remoteOverridesConfigurationKeyConstant): defaults.RemoteOverrides,
	}
}

// Sanitize trims configured values and expands home directory shortcuts.
func (configuration Configuration) Sanitize() Configuration {
	homeExpander := pathutils.NewHomeExpander()

	sanitized := configuration
	sanitized.RootDirectory = homeExpander.Expand(strings.TrimSpace(configuration.RootDirectory))
	sanitized.CacheFilePath = homeExpander.Expand(strings.TrimSpace(configuration.CacheFilePath))
	sanitized.ScanExcludes = sanitizeSubstrings(configuration.ScanExcludes)
	sanitized.CheckExcludes = sanitizeSubstrings(configuration.CheckExcludes)
	sanitized.RemoteOverrides = sanitizeOverrides(configuration.RemoteOverrides)
	return sanitized
}

// Validate reports configuration invariant violations that must abort startup.
func (configuration Configuration) Validate() error {
	if len(configuration.RootDirectory) == 0 {
		return ErrRootNotConfigured
	}
	if len(configuration.CacheFilePath) == 0 {
		return ErrCacheFileNotConfigured
	}
	if configuration.CheckInterval <= 0 {
		return ErrCheckIntervalNotPositive
	}
	return nil
}

func sanitizeSubstrings(rawSubstrings []string) []string {
	sanitized := make([]string, 0, len(rawSubstrings))
	for _, candidate := range rawSubstrings {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}

func sanitizeOverrides(rawOverrides map[string]string) map[string]string {
	if len(rawOverrides) == 0 {
		return nil
	}
	sanitized := map[string]string{}
	for substring, remoteName := range rawOverrides {
		trimmedSubstring := strings.TrimSpace(substring)
		trimmedRemoteName := strings.TrimSpace(remoteName)
		if len(trimmedSubstring) == 0 || len(trimmedRemoteName) == 0 {
			continue
		}
		sanitized[trimmedSubstring] = trimmedRemoteName
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
