package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/repowatch/internal/cache"
	"github.com/temirov/repowatch/internal/monitor"
	"github.com/temirov/repowatch/internal/scan"
	"github.com/temirov/repowatch/internal/summary"
)

const (
	repositoryOperatorMissingMessageConstant = "repository operator not configured"
	rootInaccessibleTemplateConstant         = "watchdog root directory %s is not accessible: %w"
	cacheStoreCreationTemplateConstant       = "failed to initialize cache store: %w"
	cachePersistSkippedLogMessageConstant    = "repository list not persisted; next run will rescan"

	logFieldCacheFileConstant = "cache_file"
)

// ErrRepositoryOperatorNotConfigured indicates the git operator dependency was missing.
var ErrRepositoryOperatorNotConfigured = errors.New(repositoryOperatorMissingMessageConstant)

// RepositoryOperator exposes every git operation the watchdog performs.
// gitrepo.RepositoryManager satisfies it.
type RepositoryOperator interface {
	IsRepository(repositoryPath string) bool
	AddSubmodule(executionContext context.Context, parentRepositoryPath string, childRepositoryPath string) error
	HasChanges(executionContext context.Context, repositoryPath string) (bool, error)
	Diff(executionContext context.Context, repositoryPath string) (string, error)
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string) error
}

// Dependencies enumerates external collaborators composed by the Manager.
type Dependencies struct {
	RepositoryOperator RepositoryOperator
	Summarizer         monitor.Summarizer
	Logger             *zap.Logger
}

// Manager composes the scanner, cache store, and monitor into one lifecycle.
//
// Start performs a single scan and hands the resulting snapshot to the
// monitor; picking up later repository changes requires invalidating the
// cache and restarting. The Manager holds no other state and never retries.
type Manager struct {
	configuration      Configuration
	logger             *zap.Logger
	repositoryOperator RepositoryOperator
	summarizer         monitor.Summarizer
	cacheStore         *cache.Store
	monitorInstance    *monitor.Monitor
}

// NewManager validates the configuration, opens the cache store, and returns a
// ready Manager. Configuration and cache-store failures abort startup.
func NewManager(dependencies Dependencies, configuration Configuration) (*Manager, error) {
	if dependencies.RepositoryOperator == nil {
		return nil, ErrRepositoryOperatorNotConfigured
	}

	sanitizedConfiguration := configuration.Sanitize()
	if validationError := sanitizedConfiguration.Validate(); validationError != nil {
		return nil, validationError
	}
	if _, statError := os.Stat(sanitizedConfiguration.RootDirectory); statError != nil {
		return nil, fmt.Errorf(rootInaccessibleTemplateConstant, sanitizedConfiguration.RootDirectory, statError)
	}

	cacheStore, storeError := cache.NewStore(sanitizedConfiguration.CacheFilePath)
	if storeError != nil {
		return nil, fmt.Errorf(cacheStoreCreationTemplateConstant, storeError)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	summarizer := dependencies.Summarizer
	if summarizer == nil {
		summarizer = summary.NewChangeSummarizer()
	}

	return &Manager{
		configuration:      sanitizedConfiguration,
		logger:             logger,
		repositoryOperator: dependencies.RepositoryOperator,
		summarizer:         summarizer,
		cacheStore:         cacheStore,
	}, nil
}

// Start scans for repositories and launches the monitor over the result.
func (manager *Manager) Start(executionContext context.Context) error {
	scanner, scannerError := scan.NewScanner(
		scan.Dependencies{
			CacheStore:          manager.cacheStore,
			RepositoryDetector:  manager.repositoryOperator,
			SubmoduleNormalizer: manager.repositoryOperator,
			Logger:              manager.logger,
		},
		scan.Options{
			RootDirectory:   manager.configuration.RootDirectory,
			ScanExcludes:    manager.configuration.ScanExcludes,
			CheckExcludes:   manager.configuration.CheckExcludes,
			RemoteOverrides: manager.configuration.RemoteOverrides,
		},
	)
	if scannerError != nil {
		return scannerError
	}

	repositoryEntries, scanError := scanner.Scan(executionContext)
	if scanError != nil {
		if repositoryEntries == nil {
			return scanError
		}
		// Monitoring proceeds on the in-memory list; only the cache benefit is lost.
		manager.logger.Error(
			cachePersistSkippedLogMessageConstant,
			zap.String(logFieldCacheFileConstant, manager.configuration.CacheFilePath),
			zap.Error(scanError),
		)
	}

	monitorInstance, monitorError := monitor.NewMonitor(
		monitor.Dependencies{
			RepositoryService: manager.repositoryOperator,
			Summarizer:        manager.summarizer,
			Logger:            manager.logger,
		},
		monitor.Options{
			Entries:       repositoryEntries,
			CheckInterval: manager.configuration.CheckInterval,
		},
	)
	if monitorError != nil {
		return monitorError
	}

	manager.monitorInstance = monitorInstance
	return monitorInstance.Start(executionContext)
}

// Stop halts the monitor without interrupting a tick in progress.
func (manager *Manager) Stop() {
	if manager.monitorInstance == nil {
		return
	}
	manager.monitorInstance.Stop()
}
