package scan_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitdirty/internal/execshell"
	"github.com/temirov/gitdirty/internal/repos/shared"
	"github.com/temirov/gitdirty/internal/scan"
)

const (
	testReportLineTemplateConstant = "Uncommitted or unstaged changes found in %s\n"
	testModifiedEntryConstant      = " M README.md"
	testUntrackedEntryConstant     = "?? notes.txt"
	testGitVersionConstant         = "git version 2.43.0"
)

type stubGitRepositoryManager struct {
	mutex          sync.Mutex
	statuses       map[string]shared.WorktreeStatus
	failures       map[string]error
	delays         map[string]time.Duration
	blockUntilDone bool
	versionError   error
	queried        []string
	versionCalls   int
}

func (manager *stubGitRepositoryManager) WorktreeStatus(executionContext context.Context, repositoryPath string) (shared.WorktreeStatus, error) {
	manager.mutex.Lock()
	manager.queried = append(manager.queried, repositoryPath)
	delay := manager.delays[repositoryPath]
	failure := manager.failures[repositoryPath]
	status := manager.statuses[repositoryPath]
	manager.mutex.Unlock()

	if manager.blockUntilDone {
		<-executionContext.Done()
		return shared.WorktreeStatus{}, executionContext.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if failure != nil {
		return shared.WorktreeStatus{}, failure
	}
	return status, nil
}

func (manager *stubGitRepositoryManager) Version(executionContext context.Context) (string, error) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.versionCalls++
	if manager.versionError != nil {
		return "", manager.versionError
	}
	return testGitVersionConstant, nil
}

func (manager *stubGitRepositoryManager) queriedPaths() []string {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return append([]string{}, manager.queried...)
}

func createDirectories(testInstance *testing.T, root string, relativePaths ...string) {
	testInstance.Helper()
	for _, relativePath := range relativePaths {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(root, filepath.FromSlash(relativePath)), 0o755))
	}
}

func createRepositories(testInstance *testing.T, root string, relativePaths ...string) {
	testInstance.Helper()
	for _, relativePath := range relativePaths {
		createDirectories(testInstance, root, filepath.ToSlash(filepath.Join(relativePath, shared.GitMetadataDirectoryNameConstant)))
	}
}

func absolutePaths(root string, relativePaths []string) []string {
	resolved := make([]string, 0, len(relativePaths))
	for _, relativePath := range relativePaths {
		resolved = append(resolved, filepath.Join(root, filepath.FromSlash(relativePath)))
	}
	return resolved
}

func expectedReport(root string, relativePaths []string) string {
	var builder strings.Builder
	for _, repositoryPath := range absolutePaths(root, relativePaths) {
		builder.WriteString(fmt.Sprintf(testReportLineTemplateConstant, repositoryPath))
	}
	return builder.String()
}

func dirtyStatus(entries ...string) shared.WorktreeStatus {
	return shared.WorktreeStatus{Entries: entries}
}

func newTestService(testInstance *testing.T, logger *zap.Logger, manager shared.GitRepositoryManager, output *bytes.Buffer) *scan.Service {
	testInstance.Helper()
	service, serviceError := scan.NewService(logger, nil, manager, nil, shared.NewWriterReporter(output))
	require.NoError(testInstance, serviceError)
	return service
}

func TestServiceRunScenarios(testInstance *testing.T) {
	testCases := []struct {
		name             string
		repositories     []string
		directories      []string
		dirty            map[string]shared.WorktreeStatus
		failures         map[string]error
		ignore           []string
		expectedReported []string
		expectedQueried  []string
		expectedSummary  scan.Summary
	}{
		{
			name:             "clean_dirty_and_plain_directories",
			repositories:     []string{"A", "B"},
			directories:      []string{"C/docs"},
			dirty:            map[string]shared.WorktreeStatus{"B": dirtyStatus(testModifiedEntryConstant)},
			expectedReported: []string{"B"},
			expectedQueried:  []string{"A", "B"},
			expectedSummary:  scan.Summary{Roots: 1, Repositories: 2, Dirty: 1, Clean: 1},
		},
		{
			name:            "ignored_subtree_is_never_visited",
			repositories:    []string{"E/D", "E"},
			dirty:           map[string]shared.WorktreeStatus{"E/D": dirtyStatus(testModifiedEntryConstant), "E": dirtyStatus(testModifiedEntryConstant)},
			ignore:          []string{"E"},
			expectedSummary: scan.Summary{Roots: 1},
		},
		{
			name:         "status_failure_does_not_stop_siblings",
			repositories: []string{"F", "H"},
			dirty:        map[string]shared.WorktreeStatus{"H": dirtyStatus(testModifiedEntryConstant)},
			failures: map[string]error{"F": execshell.CommandExecutionError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Cause:   errors.New("executable file not found in $PATH"),
			}},
			expectedReported: []string{"H"},
			expectedQueried:  []string{"F", "H"},
			expectedSummary:  scan.Summary{Roots: 1, Repositories: 2, Dirty: 1, Unknown: 1},
		},
		{
			name:            "empty_root",
			expectedSummary: scan.Summary{Roots: 1},
		},
		{
			name:             "untracked_files_only",
			repositories:     []string{"G"},
			dirty:            map[string]shared.WorktreeStatus{"G": dirtyStatus(testUntrackedEntryConstant)},
			expectedReported: []string{"G"},
			expectedQueried:  []string{"G"},
			expectedSummary:  scan.Summary{Roots: 1, Repositories: 1, Dirty: 1},
		},
		{
			name:             "nested_repositories_are_reported",
			repositories:     []string{"outer", "outer/vendor/inner"},
			dirty:            map[string]shared.WorktreeStatus{"outer/vendor/inner": dirtyStatus(testModifiedEntryConstant)},
			expectedReported: []string{"outer/vendor/inner"},
			expectedQueried:  []string{"outer", "outer/vendor/inner"},
			expectedSummary:  scan.Summary{Roots: 1, Repositories: 2, Dirty: 1, Clean: 1},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			root := testInstance.TempDir()
			createRepositories(testInstance, root, testCase.repositories...)
			createDirectories(testInstance, root, testCase.directories...)

			manager := &stubGitRepositoryManager{
				statuses: map[string]shared.WorktreeStatus{},
				failures: map[string]error{},
			}
			for relativePath, status := range testCase.dirty {
				manager.statuses[filepath.Join(root, filepath.FromSlash(relativePath))] = status
			}
			for relativePath, failure := range testCase.failures {
				manager.failures[filepath.Join(root, filepath.FromSlash(relativePath))] = failure
			}

			output := &bytes.Buffer{}
			service := newTestService(testInstance, zap.NewNop(), manager, output)

			summary, runError := service.Run(context.Background(), scan.Options{
				Roots:  []string{root},
				Ignore: absolutePaths(root, testCase.ignore),
			})
			require.NoError(testInstance, runError)
			require.Equal(testInstance, expectedReport(root, testCase.expectedReported), output.String())
			require.Equal(testInstance, testCase.expectedSummary, summary)
			if len(testCase.expectedQueried) == 0 {
				require.Empty(testInstance, manager.queriedPaths())
			} else {
				require.Equal(testInstance, absolutePaths(root, testCase.expectedQueried), manager.queriedPaths())
			}
		})
	}
}

func TestServiceRunLogsStatusFailuresAsWarnings(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "broken")
	brokenPath := filepath.Join(root, "broken")

	manager := &stubGitRepositoryManager{failures: map[string]error{brokenPath: errors.New("status failed")}}
	observerCore, observedLogs := observer.New(zap.DebugLevel)
	output := &bytes.Buffer{}
	service := newTestService(testInstance, zap.New(observerCore), manager, output)

	summary, runError := service.Run(context.Background(), scan.Options{Roots: []string{root}})
	require.NoError(testInstance, runError)
	require.Empty(testInstance, output.String())
	require.Equal(testInstance, 1, summary.Unknown)

	warnings := observedLogs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(testInstance, warnings, 1)
	require.Equal(testInstance, brokenPath, warnings[0].ContextMap()["path"])

	completions := observedLogs.FilterMessage("Scan completed").All()
	require.Len(testInstance, completions, 1)
	require.Equal(testInstance, int64(1), completions[0].ContextMap()["unknown"])
}

func TestServiceRunPreservesTraversalOrderAcrossWorkerCounts(testInstance *testing.T) {
	root := testInstance.TempDir()
	manager := &stubGitRepositoryManager{
		statuses: map[string]shared.WorktreeStatus{},
		delays:   map[string]time.Duration{},
	}

	const repositoryCount = 16
	var dirtyRepositories []string
	for repositoryIndex := 0; repositoryIndex < repositoryCount; repositoryIndex++ {
		relativePath := fmt.Sprintf("repo%02d", repositoryIndex)
		createRepositories(testInstance, root, relativePath)
		repositoryPath := filepath.Join(root, relativePath)
		manager.delays[repositoryPath] = time.Duration(repositoryCount-repositoryIndex) * time.Millisecond
		if repositoryIndex%3 != 0 {
			manager.statuses[repositoryPath] = dirtyStatus(testModifiedEntryConstant)
			dirtyRepositories = append(dirtyRepositories, relativePath)
		}
	}

	for _, workerCount := range []int{1, 4, repositoryCount} {
		testInstance.Run(fmt.Sprintf("workers_%d", workerCount), func(testInstance *testing.T) {
			output := &bytes.Buffer{}
			service := newTestService(testInstance, zap.NewNop(), manager, output)

			summary, runError := service.Run(context.Background(), scan.Options{Roots: []string{root}, Workers: workerCount})
			require.NoError(testInstance, runError)
			require.Equal(testInstance, expectedReport(root, dirtyRepositories), output.String())
			require.Equal(testInstance, repositoryCount, summary.Repositories)
			require.Equal(testInstance, len(dirtyRepositories), summary.Dirty)
		})
	}
}

func TestServiceRunIsIdempotent(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "alpha", "beta/gamma", "delta")
	manager := &stubGitRepositoryManager{statuses: map[string]shared.WorktreeStatus{
		filepath.Join(root, "alpha"):      dirtyStatus(testModifiedEntryConstant),
		filepath.Join(root, "beta/gamma"): dirtyStatus(testUntrackedEntryConstant),
	}}

	firstOutput := &bytes.Buffer{}
	_, firstError := newTestService(testInstance, zap.NewNop(), manager, firstOutput).Run(context.Background(), scan.Options{Roots: []string{root}})
	require.NoError(testInstance, firstError)

	secondOutput := &bytes.Buffer{}
	_, secondError := newTestService(testInstance, zap.NewNop(), manager, secondOutput).Run(context.Background(), scan.Options{Roots: []string{root}})
	require.NoError(testInstance, secondError)

	require.NotEmpty(testInstance, firstOutput.String())
	require.Equal(testInstance, firstOutput.String(), secondOutput.String())
}

func TestServiceRunFailOnDirty(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dirty         bool
		failOnDirty   bool
		expectedError error
	}{
		{name: "dirty_with_policy", dirty: true, failOnDirty: true, expectedError: scan.ErrDirtyRepositoriesFound},
		{name: "dirty_without_policy", dirty: true},
		{name: "clean_with_policy", failOnDirty: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			root := testInstance.TempDir()
			createRepositories(testInstance, root, "project")
			manager := &stubGitRepositoryManager{statuses: map[string]shared.WorktreeStatus{}}
			if testCase.dirty {
				manager.statuses[filepath.Join(root, "project")] = dirtyStatus(testModifiedEntryConstant)
			}

			service := newTestService(testInstance, zap.NewNop(), manager, &bytes.Buffer{})
			_, runError := service.Run(context.Background(), scan.Options{Roots: []string{root}, FailOnDirty: testCase.failOnDirty})
			if testCase.expectedError == nil {
				require.NoError(testInstance, runError)
				return
			}
			require.ErrorIs(testInstance, runError, testCase.expectedError)
		})
	}
}

func TestServiceRunRejectsInvalidRoots(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	regularFile := filepath.Join(workspace, "notes.txt")
	require.NoError(testInstance, os.WriteFile(regularFile, []byte("notes"), 0o644))

	testCases := []struct {
		name          string
		roots         []string
		expectedCause error
	}{
		{name: "missing_root", roots: []string{filepath.Join(workspace, "missing")}, expectedCause: fs.ErrNotExist},
		{name: "file_root", roots: []string{regularFile}, expectedCause: scan.ErrRootNotDirectory},
		{name: "second_root_invalid", roots: []string{workspace, filepath.Join(filepath.Dir(workspace), "missing-sibling")}, expectedCause: fs.ErrNotExist},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			manager := &stubGitRepositoryManager{}
			output := &bytes.Buffer{}
			service := newTestService(testInstance, zap.NewNop(), manager, output)

			_, runError := service.Run(context.Background(), scan.Options{Roots: testCase.roots})
			require.Error(testInstance, runError)

			var invalidRootError scan.InvalidRootError
			require.ErrorAs(testInstance, runError, &invalidRootError)
			require.ErrorIs(testInstance, runError, testCase.expectedCause)
			require.Zero(testInstance, manager.versionCalls)
			require.Empty(testInstance, manager.queriedPaths())
			require.Empty(testInstance, output.String())
		})
	}
}

func TestServiceRunPrunesNestedRoots(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "workspace/project")
	projectPath := filepath.Join(root, "workspace", "project")
	manager := &stubGitRepositoryManager{statuses: map[string]shared.WorktreeStatus{projectPath: dirtyStatus(testModifiedEntryConstant)}}

	output := &bytes.Buffer{}
	service := newTestService(testInstance, zap.NewNop(), manager, output)

	summary, runError := service.Run(context.Background(), scan.Options{Roots: []string{root, filepath.Join(root, "workspace"), root}})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, summary.Roots)
	require.Equal(testInstance, fmt.Sprintf(testReportLineTemplateConstant, projectPath), output.String())
}

func TestServiceRunAppliesStatusTimeout(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "slow")
	manager := &stubGitRepositoryManager{blockUntilDone: true}

	output := &bytes.Buffer{}
	service := newTestService(testInstance, zap.NewNop(), manager, output)

	summary, runError := service.Run(context.Background(), scan.Options{Roots: []string{root}, StatusTimeout: 20 * time.Millisecond})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, summary.Unknown)
	require.Empty(testInstance, output.String())
}

func TestServiceRunStopsWhenContextIsCancelled(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "project")
	manager := &stubGitRepositoryManager{}

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	service := newTestService(testInstance, zap.NewNop(), manager, &bytes.Buffer{})
	_, runError := service.Run(cancelledContext, scan.Options{Roots: []string{root}})
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, manager.queriedPaths())
}

func TestServiceRunContinuesWhenGitVersionIsUnavailable(testInstance *testing.T) {
	root := testInstance.TempDir()
	createRepositories(testInstance, root, "project")
	manager := &stubGitRepositoryManager{versionError: errors.New("git not found")}

	observerCore, observedLogs := observer.New(zap.WarnLevel)
	service := newTestService(testInstance, zap.New(observerCore), manager, &bytes.Buffer{})

	summary, runError := service.Run(context.Background(), scan.Options{Roots: []string{root}})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, summary.Clean)
	require.Len(testInstance, observedLogs.All(), 1)
}

func TestNewServiceRequiresGitManager(testInstance *testing.T) {
	_, serviceError := scan.NewService(zap.NewNop(), nil, nil, nil, nil)
	require.ErrorIs(testInstance, serviceError, scan.ErrGitManagerNotConfigured)
}
