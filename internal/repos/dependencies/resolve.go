package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/gitdirty/internal/execshell"
	"github.com/temirov/gitdirty/internal/gitrepo"
	"github.com/temirov/gitdirty/internal/repos/discovery"
	"github.com/temirov/gitdirty/internal/repos/filesystem"
	"github.com/temirov/gitdirty/internal/repos/shared"
)

// GitExecutorOptions customizes the default shell-backed git executor.
type GitExecutorOptions struct {
	// GitExecutable overrides the git binary; blank means "git" from PATH.
	GitExecutable string
	// Observer receives command lifecycle events in place of structured log entries.
	Observer execshell.CommandEventObserver
}

// ResolveRepositoryDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveRepositoryDiscoverer(existing shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, options GitExecutorOptions) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	commandRunner := execshell.NewOSCommandRunnerWithExecutables(map[execshell.CommandName]string{
		execshell.CommandGit: options.GitExecutable,
	})
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, options.Observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGitRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveGitRepositoryManager(existing shared.GitRepositoryManager, executor shared.GitExecutor) (shared.GitRepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}
