package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	absolutePathErrorTemplateConstant = "unable to resolve absolute path for %s: %w"
	windowsOperatingSystemConstant    = "windows"
)

// AbsolutePathResolver converts a path to an absolute path.
type AbsolutePathResolver func(path string) (string, error)

// PathNormalizerConfiguration controls path normalization behavior.
type PathNormalizerConfiguration struct {
	// PruneNestedPaths drops paths located inside another provided path.
	PruneNestedPaths bool
}

// PathNormalizer turns user-supplied paths into absolute, cleaned paths.
type PathNormalizer struct {
	homeExpander     *HomeExpander
	absoluteResolver AbsolutePathResolver
	configuration    PathNormalizerConfiguration
}

// NewPathNormalizer constructs a PathNormalizer with the operating system home directory and working directory.
func NewPathNormalizer(configuration PathNormalizerConfiguration) *PathNormalizer {
	return NewPathNormalizerWithDependencies(nil, nil, configuration)
}

// NewPathNormalizerWithDependencies constructs a PathNormalizer with custom collaborators.
func NewPathNormalizerWithDependencies(homeExpander *HomeExpander, absoluteResolver AbsolutePathResolver, configuration PathNormalizerConfiguration) *PathNormalizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	if absoluteResolver == nil {
		absoluteResolver = filepath.Abs
	}
	return &PathNormalizer{
		homeExpander:     homeExpander,
		absoluteResolver: absoluteResolver,
		configuration:    configuration,
	}
}

// Normalize trims whitespace, expands the home directory, resolves relative paths against the
// working directory and cleans the result. Blank entries and duplicates are dropped; the order of
// first occurrence is preserved.
func (normalizer *PathNormalizer) Normalize(candidatePaths []string) ([]string, error) {
	normalizedPaths := make([]string, 0, len(candidatePaths))
	seenKeys := make(map[string]struct{}, len(candidatePaths))

	for _, candidatePath := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePath)
		if len(trimmedCandidate) == 0 {
			continue
		}

		expandedPath := normalizer.homeExpander.Expand(trimmedCandidate)
		absolutePath, absoluteError := normalizer.absoluteResolver(expandedPath)
		if absoluteError != nil {
			return nil, fmt.Errorf(absolutePathErrorTemplateConstant, trimmedCandidate, absoluteError)
		}
		cleanedPath := filepath.Clean(absolutePath)

		comparisonKey := ComparisonKey(cleanedPath)
		if _, duplicate := seenKeys[comparisonKey]; duplicate {
			continue
		}
		seenKeys[comparisonKey] = struct{}{}
		normalizedPaths = append(normalizedPaths, cleanedPath)
	}

	if len(normalizedPaths) == 0 {
		return nil, nil
	}
	if normalizer.configuration.PruneNestedPaths {
		return PruneNestedPaths(normalizedPaths), nil
	}
	return normalizedPaths, nil
}

// PruneNestedPaths removes every path that lies inside another path of the list, keeping the
// original order of the survivors.
func PruneNestedPaths(cleanedPaths []string) []string {
	pruned := make([]string, 0, len(cleanedPaths))
	for candidateIndex, candidatePath := range cleanedPaths {
		nested := false
		for otherIndex, otherPath := range cleanedPaths {
			if otherIndex == candidateIndex {
				continue
			}
			if IsWithin(otherPath, candidatePath) && ComparisonKey(otherPath) != ComparisonKey(candidatePath) {
				nested = true
				break
			}
		}
		if !nested {
			pruned = append(pruned, candidatePath)
		}
	}
	return pruned
}

// ComparisonKey returns the form of a cleaned path used for equality checks. Paths compare
// case-insensitively on Windows.
func ComparisonKey(cleanedPath string) string {
	if runtime.GOOS == windowsOperatingSystemConstant {
		return strings.ToLower(cleanedPath)
	}
	return cleanedPath
}

// IsWithin reports whether candidate equals parent or lies below it.
func IsWithin(parent string, candidate string) bool {
	parentKey := ComparisonKey(filepath.Clean(parent))
	candidateKey := ComparisonKey(filepath.Clean(candidate))

	if candidateKey == parentKey {
		return true
	}
	if len(candidateKey) <= len(parentKey) || !strings.HasPrefix(candidateKey, parentKey) {
		return false
	}
	if parentKey[len(parentKey)-1] == os.PathSeparator {
		return true
	}
	return candidateKey[len(parentKey)] == os.PathSeparator
}
