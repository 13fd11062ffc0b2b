// Package summary turns diff text into short commit messages for unattended commits.
package summary
