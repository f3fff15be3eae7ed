//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Reports the backend as unavailable so the factory falls through
package output

import (
	"errors"

	"github.com/charmbracelet/log"
)

// NewPortAudio reports that PortAudio support was not compiled in
func NewPortAudio(logger *log.Logger) (Sink, error) {
	return nil, errors.New("PortAudio support not enabled (build with -tags portaudio)")
}
