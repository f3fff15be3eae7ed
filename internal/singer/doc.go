// ABOUTME: Singer package documentation
// ABOUTME: Voicebank discovery, loading and debounced reloading
// Package singer discovers voicebanks on disk and keeps them current.
//
// Manager searches the configured paths with the classic loader, which
// treats every directory holding a character.txt as a voicebank. Watcher
// forwards file changes to ReloadScheduler, which coalesces bursts of
// edits into one reload per singer.
package singer
