package scan

import (
	"errors"
	"fmt"
	"time"
)

const (
	dirtyRepositoriesFoundMessageConstant = "dirty repositories found"
	rootNotDirectoryMessageConstant       = "not a directory"
	invalidRootErrorTemplateConstant      = "invalid scan root %s: %v"
)

// ErrDirtyRepositoriesFound is returned by Service.Run when FailOnDirty is set and at least one repository is dirty.
var ErrDirtyRepositoriesFound = errors.New(dirtyRepositoriesFoundMessageConstant)

// ErrRootNotDirectory reports a scan root that exists but is not a directory.
var ErrRootNotDirectory = errors.New(rootNotDirectoryMessageConstant)

// InvalidRootError describes a scan root rejected before traversal.
type InvalidRootError struct {
	Root  string
	Cause error
}

func (invalidRootError InvalidRootError) Error() string {
	return fmt.Sprintf(invalidRootErrorTemplateConstant, invalidRootError.Root, invalidRootError.Cause)
}

// Unwrap exposes the underlying cause.
func (invalidRootError InvalidRootError) Unwrap() error {
	return invalidRootError.Cause
}

// RepositoryStatus classifies the working tree of a discovered repository.
type RepositoryStatus string

// Repository status values.
const (
	RepositoryStatusClean   RepositoryStatus = "clean"
	RepositoryStatusDirty   RepositoryStatus = "dirty"
	RepositoryStatusUnknown RepositoryStatus = "unknown"
)

// RepositoryResult captures the status query outcome for one repository.
type RepositoryResult struct {
	Path   string
	Status RepositoryStatus
	Error  error
}

// Summary aggregates the outcome of a scan run.
type Summary struct {
	Roots           int
	Repositories    int
	Dirty           int
	Clean           int
	Unknown         int
	TraversalErrors int
}

// Options configure a single scan run.
type Options struct {
	Roots         []string
	Ignore        []string
	Workers       int
	StatusTimeout time.Duration
	FailOnDirty   bool
}
