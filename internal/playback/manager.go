// ABOUTME: Playback orchestrator
// ABOUTME: Render job sequencing, transport control, play position and faders
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/internal/render"
	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/output"
	"github.com/Resonate-Protocol/utauplay/pkg/signal"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrNoProject is returned by transport commands before a project is loaded
var ErrNoProject = errors.New("no project loaded")

// Config configures a Manager
type Config struct {
	Sink      output.Sink
	Engine    render.Engine
	Events    notify.Publisher
	Logger    *log.Logger
	PreRender bool
}

// job is one occupant of the render slot
type job struct {
	id     uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
}

// session is the installed bus and the time mapping it was started with
type session struct {
	adapter *signal.BusAdapter
	axis    *project.TimeAxis
	startMs float64
}

// Manager sequences rendering and playback
type Manager struct {
	logger *log.Logger
	sink   output.Sink
	engine render.Engine
	events notify.Publisher

	// sinkMu orders transport commands against job installation
	sinkMu sync.Mutex

	job     atomic.Pointer[job]
	session atomic.Pointer[session]
	faders  atomic.Pointer[[]*signal.Fader]
	project atomic.Pointer[project.Project]

	// starting holds the play job until its bus is installed or it loses the slot
	starting    atomic.Pointer[job]
	prerender   atomic.Bool
	playPosTick atomic.Int64

	tasks sync.WaitGroup
}

// NewManager creates a manager; a nil sink selects the no-op sink
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = output.NewDummy()
	}
	events := cfg.Events
	if events == nil {
		events = notify.Discard
	}

	m := &Manager{
		logger: logger.WithPrefix("playback"),
		sink:   sink,
		engine: cfg.Engine,
		events: events,
	}
	m.prerender.Store(cfg.PreRender)
	return m
}

// State returns the sink's transport state
func (m *Manager) State() output.TransportState {
	return m.sink.State()
}

// Playing reports whether the sink is playing
func (m *Manager) Playing() bool {
	return m.sink.State() == output.Playing
}

// StartingToPlay reports whether a render for playback is in flight
func (m *Manager) StartingToPlay() bool {
	return m.starting.Load() != nil
}

// Project returns the loaded project
func (m *Manager) Project() *project.Project {
	return m.project.Load()
}

// PlayPosTick returns the last published play position
func (m *Manager) PlayPosTick() int {
	return int(m.playPosTick.Load())
}

// StartTick returns the tick the installed bus started at
func (m *Manager) StartTick() int {
	s := m.session.Load()
	if s == nil {
		return 0
	}
	return s.axis.MsToTick(s.startMs)
}

// SetPreRender toggles cache warming
func (m *Manager) SetPreRender(enabled bool) {
	m.prerender.Store(enabled)
}

// takeSlot installs a new job in the render slot and cancels the previous one
func (m *Manager) takeSlot(parent context.Context) *job {
	ctx, cancel := context.WithCancel(parent)
	j := &job{id: uuid.New(), ctx: ctx, cancel: cancel}
	if old := m.job.Swap(j); old != nil {
		old.cancel()
	}
	return j
}

// current reports whether j still owns the slot and was not cancelled
func (m *Manager) current(j *job) bool {
	return m.job.Load() == j && j.ctx.Err() == nil
}

// releaseSlot clears the slot if j still holds it
func (m *Manager) releaseSlot(j *job) {
	m.job.CompareAndSwap(j, nil)
	j.cancel()
}

// background runs fn on a worker and converts panics into notifications
func (m *Manager) background(fn func()) {
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				m.logger.Error("background task failed", "err", err)
				m.events.Publish(notify.RenderFailed{Err: err})
			}
		}()
		fn()
	}()
}

// Wait blocks until every background task has finished
func (m *Manager) Wait() {
	m.tasks.Wait()
}

// PlayOrPause pauses when playing, otherwise plays the loaded project
// from tick, or from the current play position when tick is -1
func (m *Manager) PlayOrPause(tick, endTick, track int) error {
	if m.Playing() {
		return m.Pause()
	}
	p := m.project.Load()
	if p == nil {
		return ErrNoProject
	}
	if tick == -1 {
		tick = m.PlayPosTick()
	}
	m.Play(p, tick, endTick, track)
	return nil
}

// Play resumes a paused sink, otherwise stops and starts a render job
// whose bus starts playing at tick once installed
func (m *Manager) Play(p *project.Project, tick, endTick, track int) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	if m.sink.State() == output.Paused {
		if err := m.sink.Play(); err != nil {
			m.logger.Error("failed to resume", "err", err)
		}
		return
	}

	m.stopSink()
	j := m.takeSlot(context.Background())
	m.starting.Store(j)

	logger := m.logger.With("job", j.id)
	logger.Debug("render for playback", "tick", tick, "end", endTick, "track", track)
	m.background(func() {
		m.renderForPlayback(j, logger, p, tick, endTick, track)
	})
}

func (m *Manager) renderForPlayback(j *job, logger *log.Logger, p *project.Project, tick, endTick, track int) {
	source, faders, err := m.engine.RenderProject(j.ctx, p, render.Options{
		StartTick: tick,
		EndTick:   endTick,
		Track:     track,
	})
	if err != nil {
		m.starting.CompareAndSwap(j, nil)
		if !m.current(j) {
			logger.Debug("render cancelled", "err", err)
			return
		}
		logger.Error("failed to render", "err", err)
		m.Stop()
		m.events.Publish(notify.RenderFailed{Err: err})
		return
	}

	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	m.starting.CompareAndSwap(j, nil)
	if !m.current(j) {
		logger.Debug("render superseded, discarding result")
		return
	}
	m.faders.Store(&faders)

	axis := p.TimeAxis()
	startMs := axis.TickToMs(tick)
	if err := m.startPlayback(axis, startMs, source); err != nil {
		logger.Error("failed to start playback", "err", err)
		m.stopSink()
		m.events.Publish(notify.RenderFailed{Err: err})
		return
	}
	logger.Info("playback started", "ms", startMs)
}

// startPlayback must be called with sinkMu held
func (m *Manager) startPlayback(axis *project.TimeAxis, startMs float64, source signal.Source) error {
	adapter := signal.NewBusAdapter(source)
	adapter.SetPosition(signal.MsToPosition(startMs))
	m.session.Store(&session{adapter: adapter, axis: axis, startMs: startMs})

	m.stopSink()
	if err := m.sink.Init(adapter); err != nil {
		return err
	}
	return m.sink.Play()
}

// stopSink must be called with sinkMu held
func (m *Manager) stopSink() {
	if err := m.sink.Stop(); err != nil {
		m.logger.Warn("failed to stop sink", "err", err)
	}
}

// Stop stops the sink; safe at any time
func (m *Manager) Stop() {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.stopSink()
}

// Pause pauses the sink; safe at any time
func (m *Manager) Pause() error {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	return m.sink.Pause()
}

// UpdatePlayPos publishes the play position derived from the sink,
// discounting the silence injected while the bus was not ready
func (m *Manager) UpdatePlayPos() {
	if m.sink.State() != output.Playing {
		return
	}
	s := m.session.Load()
	if s == nil {
		return
	}
	frames := m.sink.Position() - int64(s.adapter.Waited()/audio.Channels)
	ms := float64(frames) * 1000 / audio.SampleRate
	tick := s.axis.MsToTick(s.startMs + ms)
	m.playPosTick.Store(int64(tick))
	m.events.Publish(notify.PlayPosChanged{Tick: tick, IsBuffering: s.adapter.IsWaiting()})
}

// Seek stops playback and moves the play position
func (m *Manager) Seek(tick int, pause bool) {
	m.Stop()
	m.playPosTick.Store(int64(tick))
	m.events.Publish(notify.PlayPosChanged{Tick: tick, Pause: pause})
}

// LoadProject stops playback, rewinds and warms the render cache if enabled
func (m *Manager) LoadProject(p *project.Project) {
	m.project.Store(p)
	m.Seek(0, false)
	m.PreRender()
}

// PreRender warms the render cache for the loaded project in the
// background when pre-rendering is enabled. It shares the render slot,
// so a later Play supersedes it.
func (m *Manager) PreRender() {
	p := m.project.Load()
	if p == nil || m.engine == nil || !m.prerender.Load() {
		return
	}
	j := m.takeSlot(context.Background())
	logger := m.logger.With("job", j.id)
	logger.Info("pre-render scheduled", "project", p.Name)
	m.background(func() {
		defer m.releaseSlot(j)
		if err := m.engine.PreRender(j.ctx, p); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("pre-render failed", "err", err)
		}
	})
}

// SetTrackVolume applies a volume in dB to the playing track fader.
// Indices outside the installed fader list are ignored.
func (m *Manager) SetTrackVolume(track int, db float64) {
	if f := m.fader(track); f != nil {
		f.SetScale(signal.DecibelToVolume(db))
	}
}

// SetTrackPan applies a pan in [-100, 100] to the playing track fader
func (m *Manager) SetTrackPan(track int, pan float64) {
	if f := m.fader(track); f != nil {
		f.SetPan(float32(pan))
	}
}

func (m *Manager) fader(track int) *signal.Fader {
	faders := m.faders.Load()
	if faders == nil || track < 0 || track >= len(*faders) {
		return nil
	}
	return (*faders)[track]
}

// Faders returns the installed fader list
func (m *Manager) Faders() []*signal.Fader {
	if faders := m.faders.Load(); faders != nil {
		return *faders
	}
	return nil
}

// PlayTone replaces the bus with a sine tone until Stop
func (m *Manager) PlayTone(freq float64) *signal.SineGen {
	gen := signal.NewSineGen(freq, 0.2)
	m.playGenerator(gen)
	return gen
}

// PlayTestSound plays a one second tone on the selected device
func (m *Manager) PlayTestSound() {
	m.playGenerator(signal.NewTestSound())
}

func (m *Manager) playGenerator(provider output.SampleProvider) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	m.session.Store(nil)
	m.stopSink()
	if err := m.sink.Init(provider); err != nil {
		m.logger.Error("failed to init tone", "err", err)
		return
	}
	if err := m.sink.Play(); err != nil {
		m.logger.Error("failed to play tone", "err", err)
	}
}

// Devices lists the sink's output devices
func (m *Manager) Devices() []output.Device {
	return m.sink.Devices()
}

// SelectDevice stops playback and switches the output device
func (m *Manager) SelectDevice(id uuid.UUID, number int) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.stopSink()
	m.sink.SelectDevice(id, number)
}

// DeviceNumber returns the selected output device index
func (m *Manager) DeviceNumber() int {
	return m.sink.DeviceNumber()
}

// Close cancels the render slot, stops the sink and waits for workers
func (m *Manager) Close() {
	if j := m.job.Swap(nil); j != nil {
		j.cancel()
	}
	m.Stop()
	m.tasks.Wait()
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return math.Min(100, float64(done)*100/float64(total))
}
