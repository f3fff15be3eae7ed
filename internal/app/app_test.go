// ABOUTME: Tests for application wiring
// ABOUTME: Tests project loading, export, device persistence and lifecycle
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/utauplay/internal/config"
	"github.com/Resonate-Protocol/utauplay/internal/playback"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/encode"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	enc, err := encode.NewWAV(filepath.Join(dir, "lead.wav"), 44100, 2)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]float32, 4410*2)
	for i := range samples {
		samples[i] = 0.25
	}
	if err := enc.Encode(samples); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	p := project.New("demo")
	p.Tracks = []project.Track{
		{Name: "lead", Singer: "%VOICE%teto", Clips: []project.Clip{{File: "lead.wav", Tick: 0}}},
	}
	path := filepath.Join(dir, "demo.yaml")
	if err := p.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestApp(t *testing.T) (*App, *config.Preferences) {
	t.Helper()
	prefs, err := config.Load(filepath.Join(t.TempDir(), "prefs.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	prefs.Render.CacheDir = t.TempDir()
	prefs.Render.PreRender = false
	prefs.Singers.Watch = false

	a := New(Config{
		Prefs:  prefs,
		Logger: log.New(os.Stderr),
		Sink:   output.NewDummy(),
	})
	t.Cleanup(func() { a.Close() })
	return a, prefs
}

func TestNewApp(t *testing.T) {
	a, _ := newTestApp(t)

	if a.Playback() == nil {
		t.Fatal("expected playback to be constructed")
	}
	if a.Singers() == nil {
		t.Fatal("expected singers to be constructed")
	}
	if a.Project() != nil {
		t.Error("expected no project initially")
	}
	if a.deviceName() != "none" {
		t.Errorf("expected no device on the dummy sink, got %q", a.deviceName())
	}
}

func TestLoadProjectAndExport(t *testing.T) {
	a, _ := newTestApp(t)
	path := writeProject(t)

	if err := a.LoadProject(path); err != nil {
		t.Fatal(err)
	}
	p := a.Project()
	if p == nil || p.Name != "demo" {
		t.Fatalf("expected project demo, got %+v", p)
	}

	if err := a.Export(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(ExportPath(p))
	if err != nil {
		t.Fatalf("expected mixdown at %s: %v", ExportPath(p), err)
	}
	// 4410 mono 16-bit frames plus the header
	if info.Size() < 4410*2 {
		t.Errorf("expected at least %d bytes, got %d", 4410*2, info.Size())
	}

	if err := a.Export(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(p.Dir, "demo-00-lead.wav")); err != nil {
		t.Errorf("expected per-track export: %v", err)
	}
}

func TestExportWithoutProject(t *testing.T) {
	a, _ := newTestApp(t)

	if err := a.Export(context.Background(), false); !errors.Is(err, playback.ErrNoProject) {
		t.Errorf("expected ErrNoProject, got %v", err)
	}
}

func TestLoadProjectMissingFile(t *testing.T) {
	a, _ := newTestApp(t)

	if err := a.LoadProject(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing project")
	}
}

func TestSelectDevicePersists(t *testing.T) {
	a, prefs := newTestApp(t)
	id := uuid.New()

	if err := a.SelectDevice(id, 3); err != nil {
		t.Fatal(err)
	}

	reloaded, err := config.Load(prefs.Path())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.DeviceID() != id {
		t.Errorf("expected device %s, got %s", id, reloaded.DeviceID())
	}
	// the dummy sink always reports device 0
	if reloaded.Playback.DeviceNumber != 0 {
		t.Errorf("expected device number 0, got %d", reloaded.Playback.DeviceNumber)
	}
}

func TestStartFindsSingers(t *testing.T) {
	root := t.TempDir()
	bank := filepath.Join(root, "teto")
	if err := os.MkdirAll(bank, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bank, "character.txt"), []byte("name=teto\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prefs := config.Defaults()
	prefs.Singers.Paths = []string{root}
	prefs.Singers.Watch = true
	prefs.Render.PreRender = false
	a := New(Config{Prefs: prefs, Sink: output.NewDummy()})

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	if a.Singers().Get("%VOICE%teto") == nil {
		t.Error("expected singer teto to be found")
	}
	if err := a.Close(); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
}

func TestRunHeadlessStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.RunHeadless(ctx); err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
}
