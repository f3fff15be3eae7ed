// ABOUTME: Tests for the reload scheduler and voicebank watcher
// ABOUTME: Covers debounce coalescing, bounded retries and file events
package singer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/charmbracelet/log"
)

type fakeSinger struct {
	id   string
	dir  string
	fail bool

	mu      sync.Mutex
	reloads int
}

func (s *fakeSinger) ID() string   { return s.id }
func (s *fakeSinger) Name() string { return s.id }
func (s *fakeSinger) Type() Type   { return Classic }
func (s *fakeSinger) Dir() string  { return s.dir }
func (s *fakeSinger) Found() bool  { return true }
func (s *fakeSinger) Loaded() bool { return true }
func (s *fakeSinger) FreeMemory()  {}

func (s *fakeSinger) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	if s.fail {
		return errors.New("file locked")
	}
	return nil
}

func (s *fakeSinger) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func otoChanged(events []notify.Event) []notify.OtoChanged {
	var out []notify.OtoChanged
	for _, e := range events {
		if oc, ok := e.(notify.OtoChanged); ok {
			out = append(out, oc)
		}
	}
	return out
}

func TestScheduleReloadCoalesces(t *testing.T) {
	events := &notify.Recorder{}
	s := NewReloadScheduler(ReloadOptions{Debounce: 30 * time.Millisecond, Events: events})
	defer s.Close()

	a := &fakeSinger{id: "a"}
	b := &fakeSinger{id: "b"}
	for i := 0; i < 5; i++ {
		s.ScheduleReload(a)
	}
	s.ScheduleReload(b)

	waitFor(t, "two reloads", func() bool { return len(otoChanged(events.Events())) == 2 })
	time.Sleep(100 * time.Millisecond)

	if a.count() != 1 {
		t.Errorf("Expected a to reload once, got %d", a.count())
	}
	if b.count() != 1 {
		t.Errorf("Expected b to reload once, got %d", b.count())
	}
	for _, oc := range otoChanged(events.Events()) {
		if !oc.External {
			t.Errorf("Expected an external change, got %+v", oc)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("Expected an empty queue, got %d", s.Pending())
	}
}

func TestReloadProgressBracketsReload(t *testing.T) {
	events := &notify.Recorder{}
	s := NewReloadScheduler(ReloadOptions{Debounce: time.Millisecond, Events: events})
	defer s.Close()

	s.ScheduleReload(&fakeSinger{id: "a"})
	waitFor(t, "reload", func() bool { return len(otoChanged(events.Events())) == 1 })

	got := events.Events()
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %v", got)
	}
	if p, ok := got[0].(notify.SingerReloadProgress); !ok || p.Done {
		t.Errorf("Expected reload started first, got %v", got[0])
	}
	if p, ok := got[1].(notify.SingerReloadProgress); !ok || !p.Done {
		t.Errorf("Expected reload done second, got %v", got[1])
	}
}

func TestReloadGivesUpAfterAttempts(t *testing.T) {
	events := &notify.Recorder{}
	s := NewReloadScheduler(ReloadOptions{
		Debounce:   time.Millisecond,
		RetryDelay: time.Millisecond,
		Events:     events,
	})
	defer s.Close()

	broken := &fakeSinger{id: "broken", fail: true}
	s.ScheduleReload(broken)

	waitFor(t, "reload to give up", func() bool { return len(otoChanged(events.Events())) == 1 })
	if broken.count() != DefaultAttempts {
		t.Errorf("Expected %d attempts, got %d", DefaultAttempts, broken.count())
	}
}

// lockedBuffer collects log output written from scheduler goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReloadLogsSuccessOnly(t *testing.T) {
	tests := []struct {
		name string
		fail bool
		want bool
	}{
		{"success", false, true},
		{"gave up", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &lockedBuffer{}
			events := &notify.Recorder{}
			s := NewReloadScheduler(ReloadOptions{
				Debounce:   time.Millisecond,
				RetryDelay: time.Millisecond,
				Logger:     log.New(out),
				Events:     events,
			})
			defer s.Close()

			s.ScheduleReload(&fakeSinger{id: "teto", fail: tt.fail})
			waitFor(t, "reload to finish", func() bool { return len(otoChanged(events.Events())) == 1 })

			if got := strings.Contains(out.String(), "reloaded"); got != tt.want {
				t.Errorf("Expected reloaded logged %v, got %v in %q", tt.want, got, out.String())
			}
		})
	}
}

func TestCloseCancelsPendingReload(t *testing.T) {
	s := NewReloadScheduler(ReloadOptions{Debounce: time.Hour})

	a := &fakeSinger{id: "a"}
	s.ScheduleReload(a)
	s.Close()

	if a.count() != 0 {
		t.Errorf("Expected no reload, got %d", a.count())
	}
	if s.Pending() != 1 {
		t.Errorf("Expected the request to stay queued, got %d", s.Pending())
	}
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []Singer
}

func (r *recordingScheduler) ScheduleReload(s Singer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingScheduler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestWatcherSchedulesReloadOnOtoChange(t *testing.T) {
	dir := t.TempDir()
	makeVoicebank(t, dir, "tester")
	if err := os.Mkdir(filepath.Join(dir, "high"), 0o755); err != nil {
		t.Fatal(err)
	}

	scheduler := &recordingScheduler{}
	w, err := NewWatcher(scheduler, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	singer := &fakeSinger{id: "tester", dir: dir}
	if err := w.Add(singer); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 2 {
		t.Errorf("Expected 2 watched directories, got %d", w.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// unrelated files are ignored
	writeFile(t, filepath.Join(dir, "readme.txt"), []byte("hello"))
	writeFile(t, filepath.Join(dir, "high", "oto.ini"), []byte("a.wav=a,1,2,3,4,5\n"))

	waitFor(t, "reload request", func() bool { return scheduler.count() > 0 })

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	for _, s := range scheduler.calls {
		if s != Singer(singer) {
			t.Errorf("Expected reloads for tester only, got %v", s.ID())
		}
	}
}
