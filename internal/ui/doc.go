// Package ui renders command lifecycle events as concise console messages.
//
// It is used when gitdirty logs in console format, so that status queries read
// as short sentences instead of structured field dumps.
package ui
