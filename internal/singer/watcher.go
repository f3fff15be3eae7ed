// ABOUTME: Voicebank file watcher
// ABOUTME: Maps fsnotify events in voicebank directories to singer reloads
package singer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Scheduler receives reload requests
type Scheduler interface {
	ScheduleReload(s Singer)
}

// watchedFiles are the voicebank files whose changes trigger a reload
var watchedFiles = map[string]bool{
	"oto.ini":        true,
	"character.txt":  true,
	"character.yaml": true,
	"prefix.map":     true,
}

// Watcher watches voicebank directories and schedules reloads on change
type Watcher struct {
	logger    *log.Logger
	scheduler Scheduler
	watcher   *fsnotify.Watcher

	mu   sync.RWMutex
	dirs map[string]Singer
}

// NewWatcher creates a watcher that reports to scheduler
func NewWatcher(scheduler Scheduler, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		logger:    logger.WithPrefix("watcher"),
		scheduler: scheduler,
		watcher:   fw,
		dirs:      make(map[string]Singer),
	}, nil
}

// Add watches the voicebank directory of s and its subdirectories
func (w *Watcher) Add(s Singer) error {
	return filepath.WalkDir(s.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.addDir(path, s)
	})
}

func (w *Watcher) addDir(dir string, s Singer) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[filepath.Clean(dir)] = s
	w.mu.Unlock()
	return nil
}

// Len returns the number of watched directories
func (w *Watcher) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.dirs)
}

func (w *Watcher) owner(path string) Singer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dirs[filepath.Dir(filepath.Clean(path))]
}

// Run forwards events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	s := w.owner(event.Name)
	if s == nil {
		return
	}
	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.addDir(event.Name, s); err != nil {
				w.logger.Warn("failed to watch directory", "dir", event.Name, "err", err)
			}
			return
		}
	}
	if !watchedFiles[strings.ToLower(filepath.Base(event.Name))] {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.logger.Debug("voicebank changed", "singer", s.ID(), "file", event.Name, "op", event.Op)
	w.scheduler.ScheduleReload(s)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
