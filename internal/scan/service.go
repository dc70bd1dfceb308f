package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/gitdirty/internal/repos/dependencies"
	"github.com/temirov/gitdirty/internal/repos/shared"
	pathutils "github.com/temirov/gitdirty/internal/utils/path"
)

const (
	gitManagerNotConfiguredMessageConstant = "git repository manager not configured"
	normalizeRootsErrorTemplateConstant    = "unable to resolve scan roots: %w"
	normalizeIgnoreErrorTemplateConstant   = "unable to resolve ignored paths: %w"
	walkErrorTemplateConstant              = "scan of %s interrupted: %w"
	gitVersionDetectedMessageConstant      = "Using git"
	gitVersionUnavailableMessageConstant   = "Unable to determine git version; status queries may fail"
	traversalErrorMessageConstant          = "Skipping unreadable directory"
	statusUnknownMessageConstant           = "Unable to determine repository status"
	repositoryInspectedMessageConstant     = "Repository inspected"
	scanStartedMessageConstant             = "Scanning for dirty repositories"
	scanCompletedMessageConstant           = "Scan completed"
	logFieldRootsConstant                  = "roots"
	logFieldIgnoredCountConstant           = "ignored_paths"
	logFieldWorkersConstant                = "workers"
	logFieldPathConstant                   = "path"
	logFieldStatusConstant                 = "status"
	logFieldVersionConstant                = "version"
	logFieldRepositoriesConstant           = "repositories"
	logFieldDirtyConstant                  = "dirty"
	logFieldCleanConstant                  = "clean"
	logFieldUnknownConstant                = "unknown"
	logFieldTraversalErrorsConstant        = "traversal_errors"
	logFieldElapsedConstant                = "elapsed"
	defaultScanRootConstant                = "."
)

// ErrGitManagerNotConfigured indicates the service was constructed without a git repository manager.
var ErrGitManagerNotConfigured = errors.New(gitManagerNotConfiguredMessageConstant)

// Service walks scan roots, queries the working tree status of every repository it finds and
// reports the dirty ones.
type Service struct {
	logger     *zap.Logger
	discoverer shared.RepositoryDiscoverer
	gitManager shared.GitRepositoryManager
	fileSystem shared.FileSystem
	reporter   shared.Reporter
}

// NewService constructs a Service. A nil discoverer or filesystem falls back to the OS-backed
// defaults, a nil reporter writes to standard output.
func NewService(logger *zap.Logger, discoverer shared.RepositoryDiscoverer, gitManager shared.GitRepositoryManager, fileSystem shared.FileSystem, reporter shared.Reporter) (*Service, error) {
	if gitManager == nil {
		return nil, ErrGitManagerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = shared.NewWriterReporter(nil)
	}

	return &Service{
		logger:     logger,
		discoverer: dependencies.ResolveRepositoryDiscoverer(discoverer),
		gitManager: gitManager,
		fileSystem: dependencies.ResolveFileSystem(fileSystem),
		reporter:   reporter,
	}, nil
}

// Run scans every root and reports dirty repositories in traversal order. Status query failures
// and unreadable directories are logged and skipped. Invalid roots fail before any traversal.
func (service *Service) Run(executionContext context.Context, options Options) (Summary, error) {
	roots, rootsError := service.resolveRoots(options.Roots)
	if rootsError != nil {
		return Summary{}, rootsError
	}

	ignoredPaths, ignoreError := service.resolveIgnoredPaths(options.Ignore)
	if ignoreError != nil {
		return Summary{}, ignoreError
	}

	workerCount := options.Workers
	if workerCount < 1 {
		workerCount = 1
	}

	service.logGitVersion(executionContext)
	service.logger.Info(
		scanStartedMessageConstant,
		zap.Strings(logFieldRootsConstant, roots),
		zap.Int(logFieldIgnoredCountConstant, ignoredPaths.Len()),
		zap.Int(logFieldWorkersConstant, workerCount),
	)

	startedAt := time.Now()
	summary := Summary{Roots: len(roots)}
	emitter := newOrderedEmitter(service.reporter)

	var workerGroup errgroup.Group
	workerGroup.SetLimit(workerCount)

	nextSequence := 0
	traversalErrors := 0
	handlers := shared.WalkHandlers{
		OnRepository: func(repositoryPath string) error {
			sequence := nextSequence
			nextSequence++
			if workerCount == 1 {
				emitter.emit(sequence, service.inspectRepository(executionContext, repositoryPath, options.StatusTimeout))
				return nil
			}
			workerGroup.Go(func() error {
				emitter.emit(sequence, service.inspectRepository(executionContext, repositoryPath, options.StatusTimeout))
				return nil
			})
			return nil
		},
		OnTraversalError: func(path string, traversalError error) {
			traversalErrors++
			service.logger.Warn(traversalErrorMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(traversalError))
		},
	}

	var runError error
	for _, root := range roots {
		walkError := service.discoverer.WalkRepositories(executionContext, root, ignoredPaths, handlers)
		if walkError != nil {
			runError = fmt.Errorf(walkErrorTemplateConstant, root, walkError)
			break
		}
	}

	_ = workerGroup.Wait()

	emitter.fill(&summary)
	summary.TraversalErrors = traversalErrors
	service.logSummary(summary, time.Since(startedAt))

	if runError != nil {
		return summary, runError
	}
	if options.FailOnDirty && summary.Dirty > 0 {
		return summary, ErrDirtyRepositoriesFound
	}
	return summary, nil
}

func (service *Service) resolveRoots(rawRoots []string) ([]string, error) {
	candidates := rawRoots
	if len(candidates) == 0 {
		candidates = []string{defaultScanRootConstant}
	}

	normalizer := pathutils.NewPathNormalizerWithDependencies(nil, service.fileSystem.Abs, pathutils.PathNormalizerConfiguration{PruneNestedPaths: true})
	roots, normalizeError := normalizer.Normalize(candidates)
	if normalizeError != nil {
		return nil, fmt.Errorf(normalizeRootsErrorTemplateConstant, normalizeError)
	}
	if len(roots) == 0 {
		roots, normalizeError = normalizer.Normalize([]string{defaultScanRootConstant})
		if normalizeError != nil {
			return nil, fmt.Errorf(normalizeRootsErrorTemplateConstant, normalizeError)
		}
	}

	for _, root := range roots {
		rootInfo, statError := service.fileSystem.Stat(root)
		if statError != nil {
			return nil, InvalidRootError{Root: root, Cause: statError}
		}
		if !rootInfo.IsDir() {
			return nil, InvalidRootError{Root: root, Cause: ErrRootNotDirectory}
		}
	}

	return roots, nil
}

func (service *Service) resolveIgnoredPaths(rawIgnored []string) (pathutils.PathSet, error) {
	normalizer := pathutils.NewPathNormalizerWithDependencies(nil, service.fileSystem.Abs, pathutils.PathNormalizerConfiguration{})
	ignoredPaths, normalizeError := normalizer.Normalize(rawIgnored)
	if normalizeError != nil {
		return pathutils.PathSet{}, fmt.Errorf(normalizeIgnoreErrorTemplateConstant, normalizeError)
	}
	return pathutils.NewPathSet(ignoredPaths), nil
}

func (service *Service) logGitVersion(executionContext context.Context) {
	version, versionError := service.gitManager.Version(executionContext)
	if versionError != nil {
		service.logger.Warn(gitVersionUnavailableMessageConstant, zap.Error(versionError))
		return
	}
	service.logger.Debug(gitVersionDetectedMessageConstant, zap.String(logFieldVersionConstant, version))
}

func (service *Service) inspectRepository(executionContext context.Context, repositoryPath string, statusTimeout time.Duration) RepositoryResult {
	queryContext := executionContext
	if statusTimeout > 0 {
		var cancel context.CancelFunc
		queryContext, cancel = context.WithTimeout(executionContext, statusTimeout)
		defer cancel()
	}

	worktreeStatus, statusError := service.gitManager.WorktreeStatus(queryContext, repositoryPath)
	if statusError != nil {
		service.logger.Warn(statusUnknownMessageConstant, zap.String(logFieldPathConstant, repositoryPath), zap.Error(statusError))
		return RepositoryResult{Path: repositoryPath, Status: RepositoryStatusUnknown, Error: statusError}
	}

	status := RepositoryStatusClean
	if worktreeStatus.Dirty() {
		status = RepositoryStatusDirty
	}
	service.logger.Debug(repositoryInspectedMessageConstant, zap.String(logFieldPathConstant, repositoryPath), zap.String(logFieldStatusConstant, string(status)))
	return RepositoryResult{Path: repositoryPath, Status: status}
}

func (service *Service) logSummary(summary Summary, elapsed time.Duration) {
	service.logger.Info(
		scanCompletedMessageConstant,
		zap.Int(logFieldRootsConstant, summary.Roots),
		zap.Int(logFieldRepositoriesConstant, summary.Repositories),
		zap.Int(logFieldDirtyConstant, summary.Dirty),
		zap.Int(logFieldCleanConstant, summary.Clean),
		zap.Int(logFieldUnknownConstant, summary.Unknown),
		zap.Int(logFieldTraversalErrorsConstant, summary.TraversalErrors),
		zap.Duration(logFieldElapsedConstant, elapsed),
	)
}

// orderedEmitter releases results in sequence order regardless of the order workers finish in.
type orderedEmitter struct {
	mutex        sync.Mutex
	reporter     shared.Reporter
	pending      map[int]RepositoryResult
	nextSequence int
	counts       Summary
}

func newOrderedEmitter(reporter shared.Reporter) *orderedEmitter {
	return &orderedEmitter{reporter: reporter, pending: map[int]RepositoryResult{}}
}

func (emitter *orderedEmitter) emit(sequence int, result RepositoryResult) {
	emitter.mutex.Lock()
	defer emitter.mutex.Unlock()

	emitter.pending[sequence] = result
	for {
		nextResult, ready := emitter.pending[emitter.nextSequence]
		if !ready {
			return
		}
		delete(emitter.pending, emitter.nextSequence)
		emitter.nextSequence++
		emitter.record(nextResult)
	}
}

func (emitter *orderedEmitter) record(result RepositoryResult) {
	emitter.counts.Repositories++
	switch result.Status {
	case RepositoryStatusDirty:
		emitter.counts.Dirty++
		shared.ReportDirtyRepository(emitter.reporter, result.Path)
	case RepositoryStatusClean:
		emitter.counts.Clean++
	default:
		emitter.counts.Unknown++
	}
}

func (emitter *orderedEmitter) fill(summary *Summary) {
	emitter.mutex.Lock()
	defer emitter.mutex.Unlock()

	summary.Repositories = emitter.counts.Repositories
	summary.Dirty = emitter.counts.Dirty
	summary.Clean = emitter.counts.Clean
	summary.Unknown = emitter.counts.Unknown
}
