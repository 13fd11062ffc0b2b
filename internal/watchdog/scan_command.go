package watchdog

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repowatch/internal/cache"
	"github.com/temirov/repowatch/internal/scan"
)

const (
	scanCommandUseConstant              = "scan"
	scanCommandShortDescriptionConstant = "Discover repositories beneath the configured root"
	scanCommandLongDescriptionConstant  = "scan lists every git repository beneath the configured root, normalizing nested repositories into submodules and caching the discovered set for later runs."

	refreshFlagNameConstant        = "refresh"
	refreshFlagDescriptionConstant = "discard the cached repository list and rescan the filesystem"

	repositoryListLineTemplateConstant = "%s%s\n"
	excludedMarkerConstant             = " [excluded]"
	remoteMarkerTemplateConstant       = " [remote:%s]"
)

// ScanCommandBuilder assembles the scan command.
type ScanCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	RepositoryOperator    RepositoryOperator
}

// Build constructs the scan command.
func (builder *ScanCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   scanCommandUseConstant,
		Short: scanCommandShortDescriptionConstant,
		Long:  scanCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().Bool(refreshFlagNameConstant, false, refreshFlagDescriptionConstant)
	return command, nil
}

func (builder *ScanCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	logConfigurationFileInUse(logger, command)
	configuration := resolveConfiguration(builder.ConfigurationProvider).Sanitize()
	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	repositoryOperator, operatorError := resolveRepositoryOperator(builder.RepositoryOperator, logger, false)
	if operatorError != nil {
		return operatorError
	}

	cacheStore, storeError := cache.NewStore(configuration.CacheFilePath)
	if storeError != nil {
		return fmt.Errorf(cacheStoreCreationTemplateConstant, storeError)
	}

	refreshRequested, flagError := command.Flags().GetBool(refreshFlagNameConstant)
	if flagError != nil {
		return flagError
	}
	if refreshRequested {
		if deleteError := cacheStore.Delete(scan.RepositoryListCacheKey); deleteError != nil {
			return deleteError
		}
	}

	scanner, scannerError := scan.NewScanner(
		scan.Dependencies{
			CacheStore:          cacheStore,
			RepositoryDetector:  repositoryOperator,
			SubmoduleNormalizer: repositoryOperator,
			Logger:              logger,
		},
		scan.Options{
			RootDirectory:   configuration.RootDirectory,
			ScanExcludes:    configuration.ScanExcludes,
			CheckExcludes:   configuration.CheckExcludes,
			RemoteOverrides: configuration.RemoteOverrides,
		},
	)
	if scannerError != nil {
		return scannerError
	}

	repositoryEntries, scanError := scanner.Scan(command.Context())
	if scanError != nil {
		if repositoryEntries == nil {
			return scanError
		}
		logger.Error(
			cachePersistSkippedLogMessageConstant,
			zap.String(logFieldCacheFileConstant, configuration.CacheFilePath),
			zap.Error(scanError),
		)
	}

	for _, repositoryEntry := range repositoryEntries {
		fmt.Fprintf(
			command.OutOrStdout(),
			repositoryListLineTemplateConstant,
			repositoryEntry.Path,
			describeEntryMarkers(repositoryEntry),
		)
	}
	return nil
}

func describeEntryMarkers(repositoryEntry scan.RepositoryEntry) string {
	markers := ""
	if repositoryEntry.ExcludedFromChecks {
		markers += excludedMarkerConstant
	}
	if len(repositoryEntry.AlternativeRemote) > 0 {
		markers += fmt.Sprintf(remoteMarkerTemplateConstant, repositoryEntry.AlternativeRemote)
	}
	return markers
}
