// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Transport keys, track faders and notification display
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/output"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// muteDB silences a track fader
	muteDB = -24.0

	volumeStep = 1.0
	panStep    = 10.0
	minVolume  = -24.0
	maxVolume  = 12.0

	refreshInterval = 50 * time.Millisecond
)

// Controller is the playback surface the TUI drives
type Controller interface {
	PlayOrPause(tick, endTick, track int) error
	Stop()
	Seek(tick int, pause bool)
	UpdatePlayPos()
	SetTrackVolume(track int, db float64)
	SetTrackPan(track int, pan float64)
	PlayTestSound()
	PreRender()
	State() output.TransportState
	StartingToPlay() bool
}

// ExportFunc exports the project, per track when perTrack is set
type ExportFunc func(ctx context.Context, perTrack bool) error

// Options configures a Model
type Options struct {
	Controller    Controller
	Project       *project.Project
	Events        <-chan notify.Event
	Export        ExportFunc
	DeviceName    string
	LockStartTime bool
}

type trackView struct {
	name   string
	volume float64
	pan    float64
	muted  bool
}

// Model represents the TUI state
type Model struct {
	ctrl    Controller
	events  <-chan notify.Event
	export  ExportFunc
	project *project.Project

	// Transport
	state      output.TransportState
	starting   bool
	playTick   int
	startTick  int
	buffering  bool
	lockStart  bool
	deviceName string

	// Tracks
	tracks   []trackView
	selected int
	solo     bool

	// Status
	progress float64
	message  string
	lastErr  string
	singer   string

	// Debug
	showDebug bool
	received  int

	// Dimensions
	width  int
	height int
}

// EventMsg carries one notification into the update loop
type EventMsg struct {
	Event notify.Event
}

type tickMsg time.Time

type exportDoneMsg struct {
	err error
}

// NewModel creates a model for p
func NewModel(opts Options) Model {
	m := Model{
		ctrl:       opts.Controller,
		events:     opts.Events,
		export:     opts.Export,
		project:    opts.Project,
		lockStart:  opts.LockStartTime,
		deviceName: opts.DeviceName,
		state:      output.Stopped,
	}
	if opts.Project != nil {
		for _, t := range opts.Project.Tracks {
			m.tracks = append(m.tracks, trackView{
				name:   t.Name,
				volume: t.Volume,
				pan:    t.Pan,
				muted:  t.Muted,
			})
		}
	}
	return m
}

// Init starts the refresh tick and the notification pump
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickEvery(), waitForEvent(m.events))
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(events <-chan notify.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: e}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.ctrl != nil {
			m.ctrl.UpdatePlayPos()
			m.state = m.ctrl.State()
			m.starting = m.ctrl.StartingToPlay()
		}
		return m, tickEvery()
	case EventMsg:
		m.applyEvent(msg.Event)
		return m, waitForEvent(m.events)
	case exportDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
	}

	return m, nil
}

// applyEvent updates the model from a notification
func (m *Model) applyEvent(e notify.Event) {
	m.received++
	switch e := e.(type) {
	case notify.PlayPosChanged:
		m.playTick = e.Tick
		m.buffering = e.IsBuffering
	case notify.Progress:
		m.progress = e.Percent
		m.message = e.Message
	case notify.RenderFailed:
		m.lastErr = e.String()
		m.starting = false
	case notify.ExportFailed:
		m.lastErr = e.String()
	case notify.ExportSucceeded:
		m.message = e.String()
	case notify.SingerReloadProgress:
		m.singer = e.String()
	case notify.OtoChanged:
		m.singer = fmt.Sprintf("%s reloaded", e.Singer)
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			m.ctrl.Stop()
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.tracks)-1 {
			m.selected++
		}
	}

	if m.ctrl == nil {
		return m, nil
	}

	switch msg.String() {
	case " ":
		track := -1
		if m.solo {
			track = m.selected
		}
		if m.state != output.Playing {
			m.startTick = m.playTick
		}
		if err := m.ctrl.PlayOrPause(-1, -1, track); err != nil {
			m.lastErr = err.Error()
		}
	case "s":
		m.ctrl.Stop()
		if m.lockStart {
			m.ctrl.Seek(m.startTick, false)
		}
	case "home":
		m.ctrl.Seek(0, false)
	case "left", "h":
		m.ctrl.Seek(max(0, m.playTick-m.beat()), false)
	case "right", "l":
		m.ctrl.Seek(m.playTick+m.beat(), false)
	case "o":
		m.solo = !m.solo
	case "+", "=":
		m.adjustVolume(volumeStep)
	case "-":
		m.adjustVolume(-volumeStep)
	case "[":
		m.adjustPan(-panStep)
	case "]":
		m.adjustPan(panStep)
	case "m":
		m.toggleMute()
	case "t":
		m.ctrl.PlayTestSound()
	case "r":
		m.ctrl.PreRender()
	case "e":
		return m, m.runExport(false)
	case "E":
		return m, m.runExport(true)
	}

	return m, nil
}

func (m Model) beat() int {
	if m.project == nil {
		return project.DefaultResolution
	}
	return m.project.Resolution
}

func (m *Model) adjustVolume(delta float64) {
	if m.selected >= len(m.tracks) {
		return
	}
	t := &m.tracks[m.selected]
	t.volume = min(maxVolume, max(minVolume, t.volume+delta))
	if !t.muted {
		m.ctrl.SetTrackVolume(m.selected, t.volume)
	}
}

func (m *Model) adjustPan(delta float64) {
	if m.selected >= len(m.tracks) {
		return
	}
	t := &m.tracks[m.selected]
	t.pan = min(100, max(-100, t.pan+delta))
	m.ctrl.SetTrackPan(m.selected, t.pan)
}

func (m *Model) toggleMute() {
	if m.selected >= len(m.tracks) {
		return
	}
	t := &m.tracks[m.selected]
	t.muted = !t.muted
	if t.muted {
		m.ctrl.SetTrackVolume(m.selected, muteDB)
	} else {
		m.ctrl.SetTrackVolume(m.selected, t.volume)
	}
}

func (m Model) runExport(perTrack bool) tea.Cmd {
	if m.export == nil {
		return nil
	}
	export := m.export
	return func() tea.Msg {
		return exportDoneMsg{err: export(context.Background(), perTrack)}
	}
}

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTracks())
	b.WriteString(m.renderStatus())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	name := "(no project)"
	if m.project != nil {
		name = m.project.Name
	}

	state := m.state.String()
	switch {
	case m.starting:
		state = "rendering..."
	case m.buffering && m.state == output.Playing:
		state = "buffering"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("utauplay: " + name))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render("State:  "))
	b.WriteString(valueStyle.Render(state))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Tick:   "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d (%s)", m.playTick, m.clock())))
	b.WriteString("\n")
	if m.deviceName != "" {
		b.WriteString(headerStyle.Render("Device: "))
		b.WriteString(valueStyle.Render(m.deviceName))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// clock formats the play position as minutes, seconds and milliseconds
func (m Model) clock() string {
	if m.project == nil {
		return "0:00.000"
	}
	ms := int(m.project.TimeAxis().TickToMs(m.playTick))
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func (m Model) renderTracks() string {
	if len(m.tracks) == 0 {
		return valueStyle.Render("  No tracks") + "\n\n"
	}

	var b strings.Builder
	title := "Tracks"
	if m.solo {
		title += " (solo)"
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	for i, t := range m.tracks {
		line := fmt.Sprintf("%-16s [%s] %+5.1fdB  pan %+4.0f", truncate(t.name, 16), renderBar(t.volume-minVolume, maxVolume-minVolume, 10), t.volume, t.pan)
		if t.muted {
			line += "  muted"
		}
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(valueStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderStatus() string {
	var b strings.Builder
	if m.message != "" {
		b.WriteString(valueStyle.Render(m.message))
		if m.progress > 0 {
			b.WriteString(valueStyle.Render(fmt.Sprintf(" [%s] %.0f%%", renderBar(m.progress, 100, 10), m.progress)))
		}
		b.WriteString("\n")
	}
	if m.singer != "" {
		b.WriteString(valueStyle.Render(m.singer))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDebug() string {
	return fmt.Sprintf("\nDEBUG: events=%d start=%d lock=%v\n", m.received, m.startTick, m.lockStart)
}

func (m Model) renderHelp() string {
	return lipgloss.NewStyle().Faint(true).Render(
		"\nspace:Play/Pause  s:Stop  ←/→:Seek  ↑/↓:Track  +/-:Volume  [/]:Pan  m:Mute  o:Solo\n" +
			"t:Test sound  r:Pre-render  e/E:Export mix/tracks  d:Debug  q:Quit\n")
}

// Utility functions
func renderBar(value, total float64, width int) string {
	filled := int(value * float64(width) / total)
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteString("█")
		} else {
			b.WriteString("░")
		}
	}
	return b.String()
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
