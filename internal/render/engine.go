// ABOUTME: Render engine contract used by playback and export
// ABOUTME: Produces signal sources and per-track faders from a project
package render

import (
	"context"
	"errors"

	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/pkg/signal"
)

// ErrTrackOutOfRange is returned when Options.Track names no track
var ErrTrackOutOfRange = errors.New("track index out of range")

// Options selects what RenderProject produces
type Options struct {
	StartTick int

	// EndTick ends the stream; -1 plays to the end of the project
	EndTick int

	// Track renders a single track; -1 renders all
	Track int
}

// Engine renders projects into pull sources. Sources returned by the
// non-blocking methods become ready progressively.
type Engine interface {
	// RenderProject starts rendering for playback and returns the master
	// bus together with one fader per project track. Faders of tracks
	// outside the selection are present but silent.
	RenderProject(ctx context.Context, p *project.Project, opts Options) (signal.Source, []*signal.Fader, error)

	// RenderMixdown renders every unmuted track into one source. With wait
	// set it returns only after all audio is available, so the source is
	// ready for every range; export relies on this and fails otherwise.
	RenderMixdown(ctx context.Context, p *project.Project, wait bool) (signal.Source, error)

	// RenderTracks renders each track separately and waits for completion,
	// so every returned source is ready for every range.
	// Entries are nil for tracks without audio.
	RenderTracks(ctx context.Context, p *project.Project) ([]signal.Source, error)

	// PreRender warms the render cache for p
	PreRender(ctx context.Context, p *project.Project) error
}
