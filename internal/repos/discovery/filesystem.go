package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/gitdirty/internal/repos/shared"
	pathutils "github.com/temirov/gitdirty/internal/utils/path"
)

// StatFunction retrieves metadata for a path, following symbolic links.
type StatFunction func(path string) (fs.FileInfo, error)

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct {
	stat StatFunction
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return NewFilesystemRepositoryDiscovererWithStat(os.Stat)
}

// NewFilesystemRepositoryDiscovererWithStat constructs a discoverer that probes repository markers with stat.
func NewFilesystemRepositoryDiscovererWithStat(stat StatFunction) *FilesystemRepositoryDiscoverer {
	if stat == nil {
		stat = os.Stat
	}
	return &FilesystemRepositoryDiscoverer{stat: stat}
}

// WalkRepositories walks root in lexical order and reports every directory below it that holds a .git
// directory. The root itself is never reported. Ignored directories are neither reported nor entered,
// .git directories are not entered, and symbolic links below the root are not followed. Unreadable directories are
// passed to OnTraversalError and skipped.
func (discoverer *FilesystemRepositoryDiscoverer) WalkRepositories(executionContext context.Context, root string, ignoredPaths pathutils.PathSet, handlers shared.WalkHandlers) error {
	walkRoot := filepath.Clean(root)
	// A trailing separator makes WalkDir resolve a root that is itself a symbolic link.
	if rootInfo, lstatError := os.Lstat(walkRoot); lstatError == nil && rootInfo.Mode()&fs.ModeSymlink != 0 {
		walkRoot += string(os.PathSeparator)
	}

	return filepath.WalkDir(walkRoot, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == walkRoot && directoryEntry == nil {
				return walkError
			}
			if handlers.OnTraversalError != nil {
				handlers.OnTraversalError(path, walkError)
			}
			if directoryEntry != nil && directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		if !directoryEntry.IsDir() || path == walkRoot {
			return nil
		}
		if directoryEntry.Name() == shared.GitMetadataDirectoryNameConstant {
			return fs.SkipDir
		}
		if ignoredPaths.Contains(path) {
			return fs.SkipDir
		}

		if discoverer.hasRepositoryMarker(path) && handlers.OnRepository != nil {
			return handlers.OnRepository(path)
		}
		return nil
	})
}

// DiscoverRepositories walks the provided roots and returns repository directories in traversal order.
// A directory reachable from several roots is reported once.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(executionContext context.Context, roots []string, ignoredPaths pathutils.PathSet) ([]string, error) {
	seen := make(map[string]struct{})
	var repositories []string

	for _, root := range roots {
		walkError := discoverer.WalkRepositories(executionContext, root, ignoredPaths, shared.WalkHandlers{
			OnRepository: func(repositoryPath string) error {
				comparisonKey := pathutils.ComparisonKey(repositoryPath)
				if _, alreadySeen := seen[comparisonKey]; alreadySeen {
					return nil
				}
				seen[comparisonKey] = struct{}{}
				repositories = append(repositories, repositoryPath)
				return nil
			},
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	return repositories, nil
}

func (discoverer *FilesystemRepositoryDiscoverer) hasRepositoryMarker(directoryPath string) bool {
	markerInfo, statError := discoverer.stat(filepath.Join(directoryPath, shared.GitMetadataDirectoryNameConstant))
	if statError != nil {
		return false
	}
	return markerInfo.IsDir()
}
