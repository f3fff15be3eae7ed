// ABOUTME: Application composition root
// ABOUTME: Constructs and wires the sink, render engine, playback, singers and UI
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/config"
	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/playback"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/internal/render"
	"github.com/Resonate-Protocol/utauplay/internal/singer"
	"github.com/Resonate-Protocol/utauplay/internal/ui"
	"github.com/Resonate-Protocol/utauplay/internal/version"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// statusInterval is how often headless mode logs the play position
const statusInterval = 500 * time.Millisecond

// Config holds the services the app is built from. Nil services are
// constructed from Prefs.
type Config struct {
	Prefs  *config.Preferences
	Logger *log.Logger
	Sink   output.Sink
	Engine render.Engine
}

// App owns every long-lived service
type App struct {
	prefs  *config.Preferences
	logger *log.Logger

	bus      *notify.Bus
	sink     output.Sink
	engine   render.Engine
	playback *playback.Manager
	singers  *singer.Manager
	reload   *singer.ReloadScheduler
	watcher  *singer.Watcher

	mu      sync.RWMutex
	project *project.Project

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// New constructs the app
func New(cfg Config) *App {
	prefs := cfg.Prefs
	if prefs == nil {
		prefs = config.Defaults()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		prefs:  prefs,
		logger: logger,
		bus:    notify.NewBus(notify.DefaultBufferSize),
		sink:   cfg.Sink,
		engine: cfg.Engine,
		ctx:    ctx,
		cancel: cancel,
	}

	if a.sink == nil {
		a.sink = output.New(output.Options{
			Backend:         prefs.Playback.Backend,
			PreferPortAudio: prefs.Playback.PreferPortAudio,
			MalgoBackend:    prefs.Playback.MalgoBackend,
			DeviceID:        prefs.DeviceID(),
			DeviceNumber:    prefs.Playback.DeviceNumber,
			Logger:          logger.WithPrefix("output"),
		})
	}
	if a.engine == nil {
		a.engine = render.NewFileEngine(render.Config{
			CacheDir:    prefs.Render.CacheDir,
			Parallelism: prefs.Render.Parallelism,
			Logger:      logger,
			Events:      a.bus,
		})
	}

	a.playback = playback.NewManager(playback.Config{
		Sink:      a.sink,
		Engine:    a.engine,
		Events:    a.bus,
		Logger:    logger,
		PreRender: prefs.Render.PreRender,
	})
	a.reload = singer.NewReloadScheduler(singer.ReloadOptions{
		Logger: logger,
		Events: a.bus,
	})
	a.singers = singer.NewManager(prefs.Singers.Paths, a.reload, logger)

	logger.Info("initialized", "version", version.String())
	return a
}

// Playback returns the playback orchestrator
func (a *App) Playback() *playback.Manager {
	return a.playback
}

// Singers returns the singer registry
func (a *App) Singers() *singer.Manager {
	return a.singers
}

// Events returns the notification stream; it has a single consumer
func (a *App) Events() <-chan notify.Event {
	return a.bus.Events()
}

// Project returns the loaded project
func (a *App) Project() *project.Project {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.project
}

// Start searches voicebanks and starts watching them for changes
func (a *App) Start() error {
	a.singers.SearchAll()
	if !a.prefs.Singers.Watch {
		return nil
	}

	w, err := singer.NewWatcher(a.singers, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start voicebank watcher: %w", err)
	}
	a.watcher = w
	for _, s := range a.singers.Singers() {
		if err := w.Add(s); err != nil {
			a.logger.Warn("failed to watch voicebank", "singer", s.ID(), "err", err)
		}
	}

	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		if err := w.Run(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("voicebank watcher stopped", "err", err)
		}
	}()
	return nil
}

// LoadProject reads the project at path and hands it to playback
func (a *App) LoadProject(path string) error {
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	a.SetProject(p)
	return nil
}

// SetProject installs p as the current project
func (a *App) SetProject(p *project.Project) {
	a.mu.Lock()
	a.project = p
	a.mu.Unlock()

	for name := range p.SingersInUse() {
		if a.singers.Get(name) == nil {
			a.logger.Warn("singer not found", "singer", name)
		}
	}
	a.singers.ReleaseNotInUse(p)
	a.playback.LoadProject(p)
	a.logger.Info("project loaded", "name", p.Name, "tracks", len(p.Tracks))
}

// ExportPath returns the default mixdown target for p
func ExportPath(p *project.Project) string {
	name := p.Name
	if name == "" {
		name = "export"
	}
	return filepath.Join(p.Dir, name+".wav")
}

// Export renders the current project to WAV next to the project file
func (a *App) Export(ctx context.Context, perTrack bool) error {
	p := a.Project()
	if p == nil {
		return playback.ErrNoProject
	}
	path := ExportPath(p)
	if perTrack {
		return a.playback.RenderToFiles(ctx, p, path)
	}
	return a.playback.RenderMixdown(ctx, p, path)
}

// SelectDevice switches the output device and persists the choice
func (a *App) SelectDevice(id uuid.UUID, number int) error {
	a.playback.SelectDevice(id, number)
	a.prefs.SetDevice(id, a.playback.DeviceNumber())
	if a.prefs.Path() == "" {
		return nil
	}
	return a.prefs.Save()
}

// deviceName returns the name of the selected output device
func (a *App) deviceName() string {
	number := a.playback.DeviceNumber()
	for _, d := range a.playback.Devices() {
		if d.DeviceNumber == number {
			return fmt.Sprintf("%s (%s)", d.Name, d.API)
		}
	}
	return "none"
}

// RunTUI shows the interactive UI until the user quits
func (a *App) RunTUI() error {
	return ui.Run(ui.Options{
		Controller:    a.playback,
		Project:       a.Project(),
		Events:        a.bus.Events(),
		Export:        a.Export,
		DeviceName:    a.deviceName(),
		LockStartTime: a.prefs.UI.LockStartTime,
	})
}

// RunHeadless plays the project from the start and logs notifications
// until ctx is done
func (a *App) RunHeadless(ctx context.Context) error {
	if p := a.Project(); p != nil {
		a.playback.Play(p, 0, -1, -1)
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	events := a.bus.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.playback.UpdatePlayPos()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			a.logEvent(e)
		}
	}
}

func (a *App) logEvent(e notify.Event) {
	switch e := e.(type) {
	case notify.RenderFailed, notify.ExportFailed:
		a.logger.Error("notification", "event", e)
	case notify.PlayPosChanged:
		a.logger.Debug("play position", "tick", e.Tick, "buffering", e.IsBuffering)
	default:
		a.logger.Info("notification", "event", e)
	}
}

// Close stops playback and releases every service
func (a *App) Close() error {
	a.cancel()
	a.playback.Close()
	a.reload.Close()

	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	a.tasks.Wait()
	a.bus.Close()
	errs = append(errs, a.sink.Close())
	return errors.Join(errs...)
}
