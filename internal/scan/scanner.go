package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// RepositoryListCacheKey stores the ordered repository path list between runs.
	RepositoryListCacheKey = "repos"
	// RepositoryListSeparator joins repository paths inside the cached value.
	RepositoryListSeparator = ";"

	rootDirectoryRequiredMessageConstant = "root directory must be provided"
	cacheStoreMissingMessageConstant     = "cache store not configured"
	normalizerMissingMessageConstant     = "submodule normalizer not configured"
	detectorMissingMessageConstant       = "repository detector not configured"
	rootResolveErrorTemplateConstant     = "failed to resolve root directory %s: %w"
	cachePersistErrorTemplateConstant    = "failed to persist repository list: %w"

	directoryUnreadableLogMessageConstant       = "directory skipped: not readable"
	submoduleNormalizedLogMessageConstant       = "nested repository normalized into submodule"
	submoduleNormalizationFailedMessageConstant = "nested repository left un-normalized"
	cacheHitLogMessageConstant                  = "repository list restored from cache"
	scanCompletedLogMessageConstant             = "repository scan completed"

	logFieldDirectoryConstant        = "directory"
	logFieldParentRepositoryConstant = "parent_repository"
	logFieldChildRepositoryConstant  = "child_repository"
	logFieldRepositoryCountConstant  = "repository_count"
)

// ErrRootDirectoryRequired indicates the scan root option was empty.
var ErrRootDirectoryRequired = errors.New(rootDirectoryRequiredMessageConstant)

// ErrCacheStoreNotConfigured indicates the cache store dependency was missing.
var ErrCacheStoreNotConfigured = errors.New(cacheStoreMissingMessageConstant)

// ErrNormalizerNotConfigured indicates the submodule normalizer dependency was missing.
var ErrNormalizerNotConfigured = errors.New(normalizerMissingMessageConstant)

// ErrDetectorNotConfigured indicates the repository detector dependency was missing.
var ErrDetectorNotConfigured = errors.New(detectorMissingMessageConstant)

// Dependencies enumerates external collaborators required for repository discovery.
type Dependencies struct {
	CacheStore          CacheStore
	RepositoryDetector  RepositoryDetector
	SubmoduleNormalizer SubmoduleNormalizer
	Logger              *zap.Logger
}

// Scanner discovers git repositories beneath a root directory, normalizing
// nested repositories into submodules and caching the discovered set.
type Scanner struct {
	cacheStore          CacheStore
	repositoryDetector  RepositoryDetector
	submoduleNormalizer SubmoduleNormalizer
	logger              *zap.Logger
	options             Options
}

// NewScanner validates dependencies and constructs a Scanner.
func NewScanner(dependencies Dependencies, options Options) (*Scanner, error) {
	if dependencies.CacheStore == nil {
		return nil, ErrCacheStoreNotConfigured
	}
	if dependencies.RepositoryDetector == nil {
		return nil, ErrDetectorNotConfigured
	}
	if dependencies.SubmoduleNormalizer == nil {
		return nil, ErrNormalizerNotConfigured
	}
	if len(strings.TrimSpace(options.RootDirectory)) == 0 {
		return nil, ErrRootDirectoryRequired
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scanner{
		cacheStore:          dependencies.CacheStore,
		repositoryDetector:  dependencies.RepositoryDetector,
		submoduleNormalizer: dependencies.SubmoduleNormalizer,
		logger:              logger,
		options:             options,
	}, nil
}

// Scan returns the ordered repository list, from the cache when available and
// from a full directory traversal otherwise.
//
// When persisting a fresh traversal to the cache fails, the in-memory list is
// returned together with the persistence error so the caller can decide
// whether to proceed without the cache benefit.
func (scanner *Scanner) Scan(executionContext context.Context) ([]RepositoryEntry, error) {
	if cachedValue, cacheHit := scanner.cacheStore.Get(RepositoryListCacheKey); cacheHit {
		entries := scanner.entriesFromCachedPaths(cachedValue)
		scanner.logger.Debug(cacheHitLogMessageConstant, zap.Int(logFieldRepositoryCountConstant, len(entries)))
		return entries, nil
	}

	absoluteRoot, absoluteError := filepath.Abs(scanner.options.RootDirectory)
	if absoluteError != nil {
		return nil, fmt.Errorf(rootResolveErrorTemplateConstant, scanner.options.RootDirectory, absoluteError)
	}

	entries := scanner.scanDirectory(executionContext, absoluteRoot)
	scanner.logger.Info(scanCompletedLogMessageConstant, zap.Int(logFieldRepositoryCountConstant, len(entries)))

	repositoryPaths := make([]string, 0, len(entries))
	for _, entry := range entries {
		repositoryPaths = append(repositoryPaths, entry.Path)
	}
	persistError := scanner.cacheStore.Set(RepositoryListCacheKey, strings.Join(repositoryPaths, RepositoryListSeparator))
	if persistError != nil {
		return entries, fmt.Errorf(cachePersistErrorTemplateConstant, persistError)
	}

	return entries, nil
}

// scanDirectory walks one directory depth-first and returns the repositories
// rooted beneath it. Unreadable directories are skipped, never fatal.
func (scanner *Scanner) scanDirectory(executionContext context.Context, directoryPath string) []RepositoryEntry {
	if baseNameContainsAny(filepath.Base(directoryPath), scanner.options.ScanExcludes) {
		return nil
	}

	if scanner.repositoryDetector.IsRepository(directoryPath) {
		scanner.normalizeNestedRepositories(executionContext, directoryPath)
		return []RepositoryEntry{scanner.buildEntry(directoryPath)}
	}

	childDirectories, readError := scanner.readChildDirectories(directoryPath)
	if readError != nil {
		scanner.logger.Warn(
			directoryUnreadableLogMessageConstant,
			zap.String(logFieldDirectoryConstant, directoryPath),
			zap.Error(readError),
		)
		return nil
	}

	var entries []RepositoryEntry
	for _, childDirectory := range childDirectories {
		entries = append(entries, scanner.scanDirectory(executionContext, childDirectory)...)
	}
	return entries
}

// normalizeNestedRepositories absorbs immediate child repositories into the
// parent as submodules. Normalization failures leave the child untouched; it
// reappears as a candidate on the next uncached scan.
func (scanner *Scanner) normalizeNestedRepositories(executionContext context.Context, parentRepositoryPath string) {
	childDirectories, readError := scanner.readChildDirectories(parentRepositoryPath)
	if readError != nil {
		scanner.logger.Warn(
			directoryUnreadableLogMessageConstant,
			zap.String(logFieldDirectoryConstant, parentRepositoryPath),
			zap.Error(readError),
		)
		return
	}

	for _, childDirectory := range childDirectories {
		if baseNameContainsAny(filepath.Base(childDirectory), scanner.options.ScanExcludes) {
			continue
		}
		if !scanner.repositoryDetector.IsRepository(childDirectory) {
			continue
		}

		normalizationError := scanner.submoduleNormalizer.AddSubmodule(executionContext, parentRepositoryPath, childDirectory)
		if normalizationError != nil {
			scanner.logger.Warn(
				submoduleNormalizationFailedMessageConstant,
				zap.String(logFieldParentRepositoryConstant, parentRepositoryPath),
				zap.String(logFieldChildRepositoryConstant, childDirectory),
				zap.Error(normalizationError),
			)
			continue
		}

		scanner.logger.Info(
			submoduleNormalizedLogMessageConstant,
			zap.String(logFieldParentRepositoryConstant, parentRepositoryPath),
			zap.String(logFieldChildRepositoryConstant, childDirectory),
		)
	}
}

func (scanner *Scanner) readChildDirectories(directoryPath string) ([]string, error) {
	directoryEntries, readError := os.ReadDir(directoryPath)
	if readError != nil {
		return nil, readError
	}

	childDirectories := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		childDirectories = append(childDirectories, filepath.Join(directoryPath, directoryEntry.Name()))
	}
	return childDirectories, nil
}

func (scanner *Scanner) entriesFromCachedPaths(cachedValue string) []RepositoryEntry {
	var entries []RepositoryEntry
	for _, repositoryPath := range strings.Split(cachedValue, RepositoryListSeparator) {
		if len(repositoryPath) == 0 {
			continue
		}
		entries = append(entries, scanner.buildEntry(repositoryPath))
	}
	return entries
}

func (scanner *Scanner) buildEntry(repositoryPath string) RepositoryEntry {
	baseName := filepath.Base(repositoryPath)
	return RepositoryEntry{
		Path:               repositoryPath,
		ExcludedFromChecks: baseNameContainsAny(baseName, scanner.options.CheckExcludes),
		AlternativeRemote:  resolveRemoteOverride(baseName, scanner.options.RemoteOverrides),
	}
}
