package pathutils

import "path/filepath"

// PathSet is an immutable set of cleaned absolute paths matched exactly.
type PathSet struct {
	members map[string]struct{}
}

// NewPathSet builds a set from already normalized paths.
func NewPathSet(normalizedPaths []string) PathSet {
	members := make(map[string]struct{}, len(normalizedPaths))
	for _, normalizedPath := range normalizedPaths {
		members[ComparisonKey(filepath.Clean(normalizedPath))] = struct{}{}
	}
	return PathSet{members: members}
}

// Contains reports whether the cleaned form of candidatePath is a member. Prefixes and globs never match.
func (set PathSet) Contains(candidatePath string) bool {
	if len(set.members) == 0 {
		return false
	}
	_, member := set.members[ComparisonKey(filepath.Clean(candidatePath))]
	return member
}

// Len returns the number of members.
func (set PathSet) Len() int {
	return len(set.members)
}
