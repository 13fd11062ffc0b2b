package scan

import (
	"context"
	"sort"
	"strings"
)

// RepositoryEntry describes one discovered repository.
//
// Entries are created exclusively by the Scanner and are immutable afterwards;
// a changed exclusion rule or a new repository requires a fresh scan.
type RepositoryEntry struct {
	// Path is the absolute repository path, unique within one scan.
	Path string
	// ExcludedFromChecks marks repositories the monitor tracks but never acts on.
	ExcludedFromChecks bool
	// AlternativeRemote overrides the default push remote when non-empty.
	AlternativeRemote string
}

// Options configures repository discovery.
type Options struct {
	// RootDirectory is the directory the scan starts from.
	RootDirectory string
	// ScanExcludes prunes any directory whose base name contains one of the substrings.
	ScanExcludes []string
	// CheckExcludes marks repositories whose base name contains one of the substrings as excluded from checks.
	CheckExcludes []string
	// RemoteOverrides maps base-name substrings to the remote name pushes should target.
	RemoteOverrides map[string]string
}

// CacheStore is the subset of the cache used by the scanner.
type CacheStore interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// SubmoduleNormalizer converts a nested repository into a submodule of its parent.
type SubmoduleNormalizer interface {
	AddSubmodule(executionContext context.Context, parentRepositoryPath string, childRepositoryPath string) error
}

// RepositoryDetector reports whether a directory is a repository root.
type RepositoryDetector interface {
	IsRepository(repositoryPath string) bool
}

func baseNameContainsAny(baseName string, substrings []string) bool {
	for _, candidate := range substrings {
		if len(candidate) == 0 {
			continue
		}
		if strings.Contains(baseName, candidate) {
			return true
		}
	}
	return false
}

// resolveRemoteOverride returns the remote name of the first matching override
// in sorted substring order, keeping cache replays deterministic.
func resolveRemoteOverride(baseName string, overrides map[string]string) string {
	sortedSubstrings := make([]string, 0, len(overrides))
	for substring := range overrides {
		sortedSubstrings = append(sortedSubstrings, substring)
	}
	sort.Strings(sortedSubstrings)

	for _, substring := range sortedSubstrings {
		if len(substring) == 0 {
			continue
		}
		if strings.Contains(baseName, substring) {
			return overrides[substring]
		}
	}
	return ""
}
