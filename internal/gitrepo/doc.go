// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for detecting repositories, inspecting pending
// changes, and driving the commit, push, and submodule operations the watchdog
// performs against working directories.
package gitrepo
