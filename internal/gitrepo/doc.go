// Package gitrepo runs repository-level git queries.
//
// RepositoryManager asks git for the porcelain working tree status of a
// directory and for the installed git version. Process execution, logging, and
// error typing are delegated to the execshell package.
package gitrepo
