// Package discovery finds git working trees below scan roots.
package discovery
