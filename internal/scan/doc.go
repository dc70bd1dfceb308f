// Package scan finds git repositories below one or more root directories and reports the ones
// whose working tree holds uncommitted, unstaged or untracked changes.
//
// Discovery is delegated to a shared.RepositoryDiscoverer and status queries to a
// shared.GitRepositoryManager. Results are reported in traversal order for any worker count.
package scan
