package shared

import (
	"context"
	"io/fs"

	"github.com/temirov/gitdirty/internal/execshell"
	pathutils "github.com/temirov/gitdirty/internal/utils/path"
)

// GitMetadataDirectoryNameConstant names the directory that marks a git working tree.
const GitMetadataDirectoryNameConstant = ".git"

// FileSystem exposes filesystem operations required by repository services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// WorktreeStatus describes the porcelain status of a working tree.
type WorktreeStatus struct {
	Entries []string
}

// Dirty reports whether the working tree has modified, staged, or untracked content.
func (status WorktreeStatus) Dirty() bool {
	return len(status.Entries) > 0
}

// GitRepositoryManager exposes repository-level git operations.
type GitRepositoryManager interface {
	WorktreeStatus(executionContext context.Context, repositoryPath string) (WorktreeStatus, error)
	Version(executionContext context.Context) (string, error)
}

// WalkHandlers receives discovery events in traversal order.
type WalkHandlers struct {
	// OnRepository is called for each directory that carries a .git directory. A returned error stops the walk.
	OnRepository func(repositoryPath string) error
	// OnTraversalError is called when a directory cannot be read. The walk continues past it.
	OnTraversalError func(path string, traversalError error)
}

// RepositoryDiscoverer enumerates repository directories below a root.
type RepositoryDiscoverer interface {
	WalkRepositories(executionContext context.Context, root string, ignoredPaths pathutils.PathSet, handlers WalkHandlers) error
}
