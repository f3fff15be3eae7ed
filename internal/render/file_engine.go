// ABOUTME: File-backed render engine
// ABOUTME: Places decoded clips on the bus and fills them in the background
package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/utauplay/pkg/signal"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is the number of clips decoded concurrently
const DefaultParallelism = 4

// Config configures a FileEngine
type Config struct {
	CacheDir    string
	Parallelism int
	Logger      *log.Logger
	Events      notify.Publisher
}

// FileEngine renders projects whose tracks reference pre-rendered audio clips
type FileEngine struct {
	logger      *log.Logger
	events      notify.Publisher
	cache       *Cache
	parallelism int

	// load converts a clip file to bus samples
	load func(path string) ([]float32, error)
}

// NewFileEngine creates an engine with an optional on-disk cache
func NewFileEngine(cfg Config) *FileEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("render")
	events := cfg.Events
	if events == nil {
		events = notify.Discard
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	e := &FileEngine{
		logger:      logger,
		events:      events,
		cache:       NewCache(cfg.CacheDir, logger),
		parallelism: parallelism,
	}
	e.load = e.loadClip
	return e
}

// Cache returns the engine's clip cache
func (e *FileEngine) Cache() *Cache {
	return e.cache
}

func (e *FileEngine) loadClip(path string) ([]float32, error) {
	key, err := Key(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat clip: %w", err)
	}
	if samples, ok := e.cache.Get(key); ok {
		return samples, nil
	}
	pcm, err := decode.File(path)
	if err != nil {
		return nil, err
	}
	samples := decode.ToBus(pcm)
	e.cache.Put(key, samples)
	return samples, nil
}

// clipJob fills one part from one file
type clipJob struct {
	part *signal.Part
	path string
}

// trackSource places every clip of a track on the bus timeline
func trackSource(p *project.Project, axis *project.TimeAxis, track project.Track) (*signal.Mixer, []clipJob) {
	parts := make([]signal.Source, 0, len(track.Clips))
	jobs := make([]clipJob, 0, len(track.Clips))
	for _, clip := range track.Clips {
		part := signal.NewPart(signal.MsToPosition(axis.TickToMs(clip.Tick)))
		parts = append(parts, part)
		jobs = append(jobs, clipJob{part: part, path: p.ClipPath(clip)})
	}
	return signal.NewMixer(parts...), jobs
}

func trackFader(source signal.Source, track project.Track) *signal.Fader {
	fader := signal.NewFader(source)
	volume := track.Volume
	if track.Muted {
		volume = -24
	}
	fader.SetScale(signal.DecibelToVolume(volume))
	fader.SetPan(float32(track.Pan))
	return fader
}

func (e *FileEngine) RenderProject(ctx context.Context, p *project.Project, opts Options) (signal.Source, []*signal.Fader, error) {
	if opts.Track >= len(p.Tracks) {
		return nil, nil, fmt.Errorf("%w: %d", ErrTrackOutOfRange, opts.Track)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	axis := p.TimeAxis()
	faders := make([]*signal.Fader, len(p.Tracks))
	sources := make([]signal.Source, len(p.Tracks))
	var jobs []clipJob
	for i, track := range p.Tracks {
		var mixer *signal.Mixer
		if opts.Track < 0 || opts.Track == i {
			var trackJobs []clipJob
			mixer, trackJobs = trackSource(p, axis, track)
			jobs = append(jobs, trackJobs...)
		} else {
			mixer = signal.NewMixer()
		}
		faders[i] = trackFader(mixer, track)
		sources[i] = faders[i]
	}

	var master signal.Source = signal.NewMixer(sources...)
	if opts.EndTick >= 0 {
		master = signal.NewLimit(master, signal.MsToPosition(axis.TickToMs(opts.EndTick)))
	}

	e.logger.Debug("render started", "project", p.Name, "clips", len(jobs), "start", opts.StartTick)
	e.start(ctx, jobs, false)
	return master, faders, nil
}

func (e *FileEngine) RenderMixdown(ctx context.Context, p *project.Project, wait bool) (signal.Source, error) {
	axis := p.TimeAxis()
	var sources []signal.Source
	var jobs []clipJob
	for _, track := range p.Tracks {
		if track.Muted {
			continue
		}
		mixer, trackJobs := trackSource(p, axis, track)
		sources = append(sources, trackFader(mixer, track))
		jobs = append(jobs, trackJobs...)
	}

	if err := e.start(ctx, jobs, wait); err != nil {
		return nil, err
	}
	return signal.NewMixer(sources...), nil
}

func (e *FileEngine) RenderTracks(ctx context.Context, p *project.Project) ([]signal.Source, error) {
	axis := p.TimeAxis()
	sources := make([]signal.Source, len(p.Tracks))
	var jobs []clipJob
	for i, track := range p.Tracks {
		if len(track.Clips) == 0 {
			continue
		}
		mixer, trackJobs := trackSource(p, axis, track)
		sources[i] = mixer
		jobs = append(jobs, trackJobs...)
	}

	if err := e.start(ctx, jobs, true); err != nil {
		return nil, err
	}
	return sources, nil
}

func (e *FileEngine) PreRender(ctx context.Context, p *project.Project) error {
	var jobs []clipJob
	for _, track := range p.Tracks {
		for _, clip := range track.Clips {
			jobs = append(jobs, clipJob{path: p.ClipPath(clip)})
		}
	}
	e.logger.Debug("pre-render started", "project", p.Name, "clips", len(jobs))
	return e.start(ctx, jobs, true)
}

// start fills parts in timeline order. With wait set it blocks and returns
// the first failure; otherwise failed clips are logged, reported and left
// silent so playback continues.
func (e *FileEngine) start(ctx context.Context, jobs []clipJob, wait bool) error {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].part == nil || jobs[j].part == nil {
			return false
		}
		return jobs[i].part.Offset() < jobs[j].part.Offset()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	total := len(jobs)
	var done atomic.Int64
	launch := func() {
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				samples, err := e.load(job.path)
				if err != nil {
					err = fmt.Errorf("clip %s: %w", job.path, err)
					if wait {
						return err
					}
					e.logger.Error("clip render failed", "err", err)
					e.events.Publish(notify.RenderFailed{Err: err})
					samples = nil
				}
				if job.part != nil {
					job.part.Publish(samples)
				}
				n := done.Add(1)
				e.events.Publish(notify.Progress{
					Percent: float64(n) * 100 / float64(total),
					Message: fmt.Sprintf("Rendering %d/%d", n, total),
				})
				return nil
			})
		}
	}

	finish := func() error {
		err := g.Wait()
		e.events.Publish(notify.Progress{})
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Debug("render stopped", "err", err)
		}
		return err
	}

	if wait {
		launch()
		return finish()
	}
	go func() {
		launch()
		_ = finish()
	}()
	return nil
}
