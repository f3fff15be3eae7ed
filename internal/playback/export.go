// ABOUTME: Mixdown and per-track WAV export
// ABOUTME: Blocking render, writability pre-check and per-target failure reporting
package playback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/encode"
	"github.com/Resonate-Protocol/utauplay/pkg/signal"
)

// TrackExportPath derives the file for one track from the export base path:
// "<dir>/<stem>-<NN>-<track name>.wav"
func TrackExportPath(base string, index int, track project.Track) string {
	dir := filepath.Dir(base)
	stem := strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
	name := sanitize(track.Name)
	if name == "" {
		return filepath.Join(dir, fmt.Sprintf("%s-%02d.wav", stem, index))
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%02d-%s.wav", stem, index, name))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

// RenderMixdown renders every unmuted track to completion and writes the
// mix to path as 16-bit mono WAV
func (m *Manager) RenderMixdown(ctx context.Context, p *project.Project, path string) error {
	if err := m.precheck(path); err != nil {
		return err
	}

	j := m.takeSlot(ctx)
	defer m.releaseSlot(j)

	source, err := m.engine.RenderMixdown(j.ctx, p, true)
	if err != nil {
		return m.renderFailed(err)
	}
	return m.writeTarget(path, source)
}

// RenderToFiles renders each unmuted track to its own 16-bit mono WAV next
// to path. A failing target is reported and skipped; an engine failure
// stops the batch.
func (m *Manager) RenderToFiles(ctx context.Context, p *project.Project, path string) error {
	targets := make(map[int]string, len(p.Tracks))
	var errs []error
	for i, track := range p.Tracks {
		if track.Muted {
			continue
		}
		target := TrackExportPath(path, i, track)
		if err := m.precheck(target); err != nil {
			errs = append(errs, err)
			continue
		}
		targets[i] = target
	}
	if len(targets) == 0 {
		return errors.Join(errs...)
	}

	j := m.takeSlot(ctx)
	defer m.releaseSlot(j)

	sources, err := m.engine.RenderTracks(j.ctx, p)
	if err != nil {
		return errors.Join(append(errs, m.renderFailed(err))...)
	}

	done := 0
	for i, source := range sources {
		target, ok := targets[i]
		if !ok || source == nil || i >= len(p.Tracks) {
			continue
		}
		if err := j.ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		m.events.Publish(notify.Progress{
			Percent: percent(done, len(targets)),
			Message: fmt.Sprintf("Exporting to %s", target),
		})
		if err := m.writeTarget(target, source); err != nil {
			errs = append(errs, err)
		}
		done++
	}
	return errors.Join(errs...)
}

func (m *Manager) precheck(path string) error {
	if err := encode.CheckWritable(path); err != nil {
		m.exportFailed(path, err)
		return err
	}
	return nil
}

func (m *Manager) writeTarget(path string, source signal.Source) error {
	m.events.Publish(notify.Progress{Message: fmt.Sprintf("Exporting to %s", path)})
	reader := &exportReader{BusAdapter: signal.NewBusAdapter(source)}
	err := encode.WriteWAV16Mono(path, reader, audio.SampleRate)
	if err == nil {
		err = reader.err
	}
	if err != nil {
		if !errors.Is(err, encode.ErrNotWritable) {
			os.Remove(path)
		}
		m.exportFailed(path, err)
		return err
	}
	m.logger.Info("exported", "path", path)
	m.events.Publish(notify.ExportSucceeded{Path: path})
	m.events.Publish(notify.Progress{Message: fmt.Sprintf("Exported to %s", path)})
	return nil
}

// ErrNotRendered is returned when an export source is not fully rendered
var ErrNotRendered = errors.New("export source not rendered")

// exportReader drains a fully rendered source. It ends the stream with
// an error instead of padding with silence when the source is not ready.
type exportReader struct {
	*signal.BusAdapter
	err error
}

func (r *exportReader) Read(buffer []float32, offset, count int) int {
	n := r.BusAdapter.Read(buffer, offset, count)
	if r.IsWaiting() {
		r.err = fmt.Errorf("%w at position %d", ErrNotRendered, r.Position())
		return 0
	}
	return n
}

func (m *Manager) exportFailed(path string, err error) {
	var pathErr *fs.PathError
	if errors.Is(err, encode.ErrNotWritable) || errors.As(err, &pathErr) {
		m.logger.Warn("export target not writable", "path", path, "err", err)
	} else {
		m.logger.Error("failed to export", "path", path, "err", err)
	}
	m.events.Publish(notify.ExportFailed{Path: path, Err: err})
	m.events.Publish(notify.Progress{Message: fmt.Sprintf("Failed to export %s", path)})
}

func (m *Manager) renderFailed(err error) error {
	if isCancelled(err) {
		m.logger.Debug("export cancelled")
		return err
	}
	m.logger.Error("failed to render for export", "err", err)
	m.events.Publish(notify.RenderFailed{Err: err})
	m.events.Publish(notify.Progress{Message: "Failed to render"})
	return err
}
