package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/repowatch/internal/execshell"
)

const (
	gitMetadataDirectoryNameConstant = ".git"

	gitStatusSubcommandConstant    = "status"
	gitStatusPorcelainFlagConstant = "--porcelain"
	gitDiffSubcommandConstant      = "diff"
	gitHeadReferenceConstant       = "HEAD"
	gitAddSubcommandConstant       = "add"
	gitAddAllFlagConstant          = "--all"
	gitCommitSubcommandConstant    = "commit"
	gitCommitMessageFlagConstant   = "--message"
	gitPushSubcommandConstant      = "push"
	gitSubmoduleSubcommandConstant = "submodule"
	gitSubmoduleAddVerbConstant    = "add"
	relativePathPrefixConstant     = "./"

	unknownRevisionSignatureConstant = "unknown revision"
	badRevisionSignatureConstant     = "bad revision"
	ambiguousHeadSignatureConstant   = "ambiguous argument 'head'"

	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"

	executorMissingMessageConstant        = "git executor not configured"
	statusFailureTemplateConstant         = "failed to inspect status of %s: %w"
	diffFailureTemplateConstant           = "failed to read diff of %s: %w"
	stageFailureTemplateConstant          = "failed to stage changes in %s: %w"
	commitFailureTemplateConstant         = "failed to commit changes in %s: %w"
	pushFailureTemplateConstant           = "failed to push %s: %w"
	submoduleRelativePathTemplateConstant = "failed to resolve submodule path for %s: %w"
	submoduleRegistrationTemplateConstant = "failed to register %s as a submodule of %s: %w"
	commitMessageRequiredMessageConstant  = "commit message must be provided"
	repositoryPathRequiredMessageConstant = "repository path must be provided"
)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// ErrRepositoryPathRequired indicates an operation received an empty repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrCommitMessageRequired indicates a commit was requested without a message.
var ErrCommitMessageRequired = errors.New(commitMessageRequiredMessageConstant)

// GitExecutor exposes the subset of shell execution used by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager performs git operations against repository working directories.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager from the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsRepository reports whether the directory contains git metadata.
// A plain file named .git also counts: worktrees and registered submodules use one.
func (manager *RepositoryManager) IsRepository(repositoryPath string) bool {
	_, statError := os.Stat(filepath.Join(repositoryPath, gitMetadataDirectoryNameConstant))
	return statError == nil
}

// HasChanges reports whether the repository worktree contains uncommitted changes.
// A clean worktree is a normal false result, never an error.
func (manager *RepositoryManager) HasChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return false, ErrRepositoryPathRequired
	}

	executionResult, executionError := manager.executeGit(executionContext, repositoryPath, gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant)
	if executionError != nil {
		return false, fmt.Errorf(statusFailureTemplateConstant, repositoryPath, executionError)
	}

	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// Diff returns the textual diff of uncommitted changes against HEAD.
// Repositories without any commit yet fall back to the index diff.
func (manager *RepositoryManager) Diff(executionContext context.Context, repositoryPath string) (string, error) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return "", ErrRepositoryPathRequired
	}

	executionResult, executionError := manager.executeGit(executionContext, repositoryPath, gitDiffSubcommandConstant, gitHeadReferenceConstant)
	if executionError == nil {
		return executionResult.StandardOutput, nil
	}

	failedError := execshell.CommandFailedError{}
	if !errors.As(executionError, &failedError) || !isMissingHeadFailure(failedError) {
		return "", fmt.Errorf(diffFailureTemplateConstant, repositoryPath, executionError)
	}

	fallbackResult, fallbackError := manager.executeGit(executionContext, repositoryPath, gitDiffSubcommandConstant)
	if fallbackError != nil {
		return "", fmt.Errorf(diffFailureTemplateConstant, repositoryPath, fallbackError)
	}
	return fallbackResult.StandardOutput, nil
}

// isMissingHeadFailure reports whether git rejected the HEAD reference itself,
// which happens in repositories that have no commit yet. Any other command
// failure surfaces directly instead of triggering the index-diff fallback.
func isMissingHeadFailure(failure execshell.CommandFailedError) bool {
	standardError := strings.ToLower(failure.Result.StandardError)
	revisionSignatures := []string{
		unknownRevisionSignatureConstant,
		badRevisionSignatureConstant,
		ambiguousHeadSignatureConstant,
	}
	for _, revisionSignature := range revisionSignatures {
		if strings.Contains(standardError, revisionSignature) {
			return true
		}
	}
	return false
}

// Commit stages every pending change and records a commit with the supplied message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return ErrRepositoryPathRequired
	}
	if len(strings.TrimSpace(commitMessage)) == 0 {
		return ErrCommitMessageRequired
	}

	if _, stageError := manager.executeGit(executionContext, repositoryPath, gitAddSubcommandConstant, gitAddAllFlagConstant); stageError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, repositoryPath, stageError)
	}

	if _, commitError := manager.executeGit(executionContext, repositoryPath, gitCommitSubcommandConstant, gitCommitMessageFlagConstant, commitMessage); commitError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, repositoryPath, commitError)
	}

	return nil
}

// Push publishes local history to the named remote, or to the configured default when remoteName is empty.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string) error {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return ErrRepositoryPathRequired
	}

	pushArguments := []string{gitPushSubcommandConstant}
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) > 0 {
		pushArguments = append(pushArguments, trimmedRemoteName)
	}

	if _, pushError := manager.executeGit(executionContext, repositoryPath, pushArguments...); pushError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, repositoryPath, pushError)
	}

	return nil
}

// AddSubmodule registers the nested repository as a submodule of its parent.
func (manager *RepositoryManager) AddSubmodule(executionContext context.Context, parentRepositoryPath string, childRepositoryPath string) error {
	if len(strings.TrimSpace(parentRepositoryPath)) == 0 || len(strings.TrimSpace(childRepositoryPath)) == 0 {
		return ErrRepositoryPathRequired
	}

	relativeChildPath, relativeError := filepath.Rel(parentRepositoryPath, childRepositoryPath)
	if relativeError != nil {
		return fmt.Errorf(submoduleRelativePathTemplateConstant, childRepositoryPath, relativeError)
	}

	submoduleReference := relativePathPrefixConstant + filepath.ToSlash(relativeChildPath)
	_, submoduleError := manager.executeGit(
		executionContext,
		parentRepositoryPath,
		gitSubmoduleSubcommandConstant,
		gitSubmoduleAddVerbConstant,
		submoduleReference,
		filepath.ToSlash(relativeChildPath),
	)
	if submoduleError != nil {
		return fmt.Errorf(submoduleRegistrationTemplateConstant, childRepositoryPath, parentRepositoryPath, submoduleError)
	}

	return nil
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
}
