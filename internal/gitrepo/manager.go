package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitdirty/internal/execshell"
	"github.com/temirov/gitdirty/internal/repos/shared"
)

const (
	gitStatusSubcommandConstant           = "status"
	gitPorcelainFlagConstant              = "--porcelain"
	gitVersionFlagConstant                = "--version"
	gitOptionalLocksEnvironmentConstant   = "GIT_OPTIONAL_LOCKS"
	gitOptionalLocksDisabledConstant      = "0"
	statusLineSeparatorConstant           = "\n"
	executorNotConfiguredMessageConstant  = "git executor not configured"
	repositoryPathRequiredMessageConstant = "repository path required"
	worktreeStatusErrorTemplateConstant   = "unable to read worktree status for %s: %w"
	versionErrorTemplateConstant          = "unable to determine git version: %w"
)

var (
	// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrRepositoryPathRequired indicates an empty repository path was supplied.
	ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)
)

// RepositoryManager runs repository-level git queries through a GitExecutor.
type RepositoryManager struct {
	executor shared.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor shared.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// WorktreeStatus runs "git status --porcelain" inside repositoryPath. Any non-blank output, untracked
// files included, yields a dirty status.
func (manager *RepositoryManager) WorktreeStatus(executionContext context.Context, repositoryPath string) (shared.WorktreeStatus, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return shared.WorktreeStatus{}, ErrRepositoryPathRequired
	}

	// Status must not take the index lock while other tools work in the repository.
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory:     trimmedRepositoryPath,
		EnvironmentVariables: map[string]string{gitOptionalLocksEnvironmentConstant: gitOptionalLocksDisabledConstant},
	})
	if executionError != nil {
		return shared.WorktreeStatus{}, fmt.Errorf(worktreeStatusErrorTemplateConstant, trimmedRepositoryPath, executionError)
	}

	return parsePorcelainStatus(executionResult.StandardOutput), nil
}

// CheckCleanWorktree reports whether the working tree at repositoryPath has no pending changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	status, statusError := manager.WorktreeStatus(executionContext, repositoryPath)
	if statusError != nil {
		return false, statusError
	}
	return !status.Dirty(), nil
}

// Version returns the output of "git --version".
func (manager *RepositoryManager) Version(executionContext context.Context) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{gitVersionFlagConstant},
	})
	if executionError != nil {
		return "", fmt.Errorf(versionErrorTemplateConstant, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

func parsePorcelainStatus(standardOutput string) shared.WorktreeStatus {
	var entries []string
	for _, line := range strings.Split(standardOutput, statusLineSeparatorConstant) {
		trimmedLine := strings.TrimRight(line, "\r")
		if len(strings.TrimSpace(trimmedLine)) == 0 {
			continue
		}
		entries = append(entries, trimmedLine)
	}
	return shared.WorktreeStatus{Entries: entries}
}
