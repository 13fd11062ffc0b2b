package scan_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/repowatch/internal/cache"
	"github.com/temirov/repowatch/internal/scan"
)

type countingRepositoryDetector struct {
	detectionCount int
}

func (detector *countingRepositoryDetector) IsRepository(repositoryPath string) bool {
	detector.detectionCount++
	fileInfo, statError := os.Stat(filepath.Join(repositoryPath, ".git"))
	return statError == nil && fileInfo.IsDir()
}

type recordingSubmoduleNormalizer struct {
	normalizationError error
	recordedPairs      [][2]string
}

func (normalizer *recordingSubmoduleNormalizer) AddSubmodule(_ context.Context, parentRepositoryPath string, childRepositoryPath string) error {
	normalizer.recordedPairs = append(normalizer.recordedPairs, [2]string{parentRepositoryPath, childRepositoryPath})
	return normalizer.normalizationError
}

type failingCacheStore struct {
	values map[string]string
}

func (store *failingCacheStore) Get(key string) (string, bool) {
	value, exists := store.values[key]
	return value, exists
}

func (store *failingCacheStore) Set(string, string) error {
	return errors.New("disk full")
}

func createRepositoryDirectory(testInstance *testing.T, repositoryPath string) {
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, ".git"), 0o755))
}

// buildFixtureTree lays out:
//
//	root/alpha            repository with a nested repository alpha/nested
//	root/beta-archive     repository matching the check exclusion
//	root/node_modules     pruned subtree containing a repository
//	root/misc/gamma       repository two levels down
func buildFixtureTree(testInstance *testing.T) string {
	rootDirectory := testInstance.TempDir()
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "alpha"))
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "alpha", "nested"))
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "beta-archive"))
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "node_modules", "hidden"))
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "misc", "gamma"))
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, "notes.txt"), []byte("not a directory"), 0o644))
	return rootDirectory
}

func newFixtureScanner(testInstance *testing.T, rootDirectory string, cacheStore scan.CacheStore, normalizer scan.SubmoduleNormalizer, logger *zap.Logger) (*scan.Scanner, *countingRepositoryDetector) {
	detector := &countingRepositoryDetector{}
	scanner, creationError := scan.NewScanner(
		scan.Dependencies{
			CacheStore:          cacheStore,
			RepositoryDetector:  detector,
			SubmoduleNormalizer: normalizer,
			Logger:              logger,
		},
		scan.Options{
			RootDirectory:   rootDirectory,
			ScanExcludes:    []string{"node_modules"},
			CheckExcludes:   []string{"archive"},
			RemoteOverrides: map[string]string{"gamma": "backup"},
		},
	)
	require.NoError(testInstance, creationError)
	return scanner, detector
}

func newFileCacheStore(testInstance *testing.T) *cache.Store {
	cacheStore, creationError := cache.NewStore(filepath.Join(testInstance.TempDir(), "repowatch.cache"))
	require.NoError(testInstance, creationError)
	return cacheStore
}

func TestNewScannerValidatesDependencies(testInstance *testing.T) {
	cacheStore := newFileCacheStore(testInstance)
	detector := &countingRepositoryDetector{}
	normalizer := &recordingSubmoduleNormalizer{}

	testCases := []struct {
		name          string
		dependencies  scan.Dependencies
		options       scan.Options
		expectedError error
	}{
		{
			name:          "missing_cache_store",
			dependencies:  scan.Dependencies{RepositoryDetector: detector, SubmoduleNormalizer: normalizer},
			options:       scan.Options{RootDirectory: "/srv"},
			expectedError: scan.ErrCacheStoreNotConfigured,
		},
		{
			name:          "missing_detector",
			dependencies:  scan.Dependencies{CacheStore: cacheStore, SubmoduleNormalizer: normalizer},
			options:       scan.Options{RootDirectory: "/srv"},
			expectedError: scan.ErrDetectorNotConfigured,
		},
		{
			name:          "missing_normalizer",
			dependencies:  scan.Dependencies{CacheStore: cacheStore, RepositoryDetector: detector},
			options:       scan.Options{RootDirectory: "/srv"},
			expectedError: scan.ErrNormalizerNotConfigured,
		},
		{
			name:          "missing_root",
			dependencies:  scan.Dependencies{CacheStore: cacheStore, RepositoryDetector: detector, SubmoduleNormalizer: normalizer},
			options:       scan.Options{RootDirectory: "  "},
			expectedError: scan.ErrRootDirectoryRequired,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			scanner, creationError := scan.NewScanner(testCase.dependencies, testCase.options)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, scanner)
		})
	}
}

func TestScanDiscoversRepositoriesAndAppliesExclusions(testInstance *testing.T) {
	rootDirectory := buildFixtureTree(testInstance)
	normalizer := &recordingSubmoduleNormalizer{}
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, newFileCacheStore(testInstance), normalizer, zap.NewNop())

	entries, scanError := scanner.Scan(context.Background())
	require.NoError(testInstance, scanError)

	expectedEntries := []scan.RepositoryEntry{
		{Path: filepath.Join(rootDirectory, "alpha")},
		{Path: filepath.Join(rootDirectory, "beta-archive"), ExcludedFromChecks: true},
		{Path: filepath.Join(rootDirectory, "misc", "gamma"), AlternativeRemote: "backup"},
	}
	require.Equal(testInstance, expectedEntries, entries)
}

func TestScanNormalizesNestedRepositories(testInstance *testing.T) {
	rootDirectory := buildFixtureTree(testInstance)
	normalizer := &recordingSubmoduleNormalizer{}
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, newFileCacheStore(testInstance), normalizer, zap.NewNop())

	entries, scanError := scanner.Scan(context.Background())
	require.NoError(testInstance, scanError)

	require.Len(testInstance, normalizer.recordedPairs, 1)
	require.Equal(testInstance, filepath.Join(rootDirectory, "alpha"), normalizer.recordedPairs[0][0])
	require.Equal(testInstance, filepath.Join(rootDirectory, "alpha", "nested"), normalizer.recordedPairs[0][1])

	for _, entry := range entries {
		require.NotEqual(testInstance, filepath.Join(rootDirectory, "alpha", "nested"), entry.Path)
	}
}

func TestScanContinuesWhenNormalizationFails(testInstance *testing.T) {
	rootDirectory := buildFixtureTree(testInstance)
	normalizer := &recordingSubmoduleNormalizer{normalizationError: errors.New("submodule add failed")}
	observerCore, observedLogs := observer.New(zap.WarnLevel)
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, newFileCacheStore(testInstance), normalizer, zap.New(observerCore))

	entries, scanError := scanner.Scan(context.Background())
	require.NoError(testInstance, scanError)
	require.Len(testInstance, entries, 3)
	require.Len(testInstance, normalizer.recordedPairs, 1)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("nested repository left un-normalized").Len())
}

func TestScanCacheHitSkipsTraversal(testInstance *testing.T) {
	rootDirectory := buildFixtureTree(testInstance)
	cacheStore := newFileCacheStore(testInstance)
	normalizer := &recordingSubmoduleNormalizer{}

	firstScanner, _ := newFixtureScanner(testInstance, rootDirectory, cacheStore, normalizer, zap.NewNop())
	firstEntries, firstScanError := firstScanner.Scan(context.Background())
	require.NoError(testInstance, firstScanError)

	secondScanner, secondDetector := newFixtureScanner(testInstance, rootDirectory, cacheStore, normalizer, zap.NewNop())
	secondEntries, secondScanError := secondScanner.Scan(context.Background())
	require.NoError(testInstance, secondScanError)

	require.Equal(testInstance, firstEntries, secondEntries)
	require.Zero(testInstance, secondDetector.detectionCount)
	require.Len(testInstance, normalizer.recordedPairs, 1)
}

func TestScanSkipsUnreadableDirectories(testInstance *testing.T) {
	if os.Geteuid() == 0 {
		testInstance.Skip("directory permissions are not enforced for root")
	}

	rootDirectory := buildFixtureTree(testInstance)
	lockedDirectory := filepath.Join(rootDirectory, "locked")
	require.NoError(testInstance, os.MkdirAll(lockedDirectory, 0o755))
	require.NoError(testInstance, os.Chmod(lockedDirectory, 0o000))
	testInstance.Cleanup(func() { _ = os.Chmod(lockedDirectory, 0o755) })

	observerCore, observedLogs := observer.New(zap.WarnLevel)
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, newFileCacheStore(testInstance), &recordingSubmoduleNormalizer{}, zap.New(observerCore))

	entries, scanError := scanner.Scan(context.Background())
	require.NoError(testInstance, scanError)
	require.Len(testInstance, entries, 3)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("directory skipped: not readable").Len())
}

func TestScanReturnsEntriesWhenPersistFails(testInstance *testing.T) {
	rootDirectory := buildFixtureTree(testInstance)
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, &failingCacheStore{values: map[string]string{}}, &recordingSubmoduleNormalizer{}, zap.NewNop())

	entries, scanError := scanner.Scan(context.Background())
	require.Error(testInstance, scanError)
	require.ErrorContains(testInstance, scanError, "failed to persist repository list")
	require.Len(testInstance, entries, 3)
}

func TestScanRootThatIsRepositoryEmitsSingleEntry(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	createRepositoryDirectory(testInstance, rootDirectory)
	createRepositoryDirectory(testInstance, filepath.Join(rootDirectory, "child"))

	normalizer := &recordingSubmoduleNormalizer{}
	scanner, _ := newFixtureScanner(testInstance, rootDirectory, newFileCacheStore(testInstance), normalizer, zap.NewNop())

	entries, scanError := scanner.Scan(context.Background())
	require.NoError(testInstance, scanError)
	require.Len(testInstance, entries, 1)
	require.Equal(testInstance, rootDirectory, entries[0].Path)
	require.Len(testInstance, normalizer.recordedPairs, 1)
	require.Equal(testInstance, filepath.Join(rootDirectory, "child"), normalizer.recordedPairs[0][1])
}
