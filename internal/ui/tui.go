// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the playback UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// New creates the TUI program
func New(opts Options) *tea.Program {
	return tea.NewProgram(NewModel(opts), tea.WithAltScreen())
}

// Run shows the TUI until the user quits
func Run(opts Options) error {
	_, err := New(opts).Run()
	return err
}
