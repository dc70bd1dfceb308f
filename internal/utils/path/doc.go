// Package pathutils normalizes user-supplied filesystem paths.
//
// Scan roots and ignore entries pass through the same pipeline: whitespace is
// trimmed, a leading "~" is expanded, relative paths are resolved against the
// working directory, and the result is cleaned. Membership checks on the
// normalized form are exact and case-insensitive only on Windows.
package pathutils
