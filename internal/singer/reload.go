// ABOUTME: Debounced singer reload scheduler
// ABOUTME: Coalesces reload requests and retries transient failures
package singer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/charmbracelet/log"
)

const (
	DefaultDebounce   = 200 * time.Millisecond
	DefaultAttempts   = 5
	DefaultRetryDelay = 200 * time.Millisecond
)

// ReloadOptions tunes the scheduler; zero values select the defaults
type ReloadOptions struct {
	Debounce   time.Duration
	Attempts   int
	RetryDelay time.Duration
	Logger     *log.Logger
	Events     notify.Publisher
}

type reloadToken struct {
	cancel context.CancelFunc
}

// ReloadScheduler reloads singers after a quiet period. Requests made
// within the window collapse into one reload per singer.
type ReloadScheduler struct {
	logger     *log.Logger
	events     notify.Publisher
	debounce   time.Duration
	attempts   int
	retryDelay time.Duration

	mu    sync.Mutex
	queue []Singer

	token atomic.Pointer[reloadToken]

	// refreshMu keeps drains from overlapping
	refreshMu sync.Mutex
	tasks     sync.WaitGroup
}

// NewReloadScheduler creates a scheduler
func NewReloadScheduler(opts ReloadOptions) *ReloadScheduler {
	s := &ReloadScheduler{
		logger:     opts.Logger,
		events:     opts.Events,
		debounce:   opts.Debounce,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithPrefix("reload")
	if s.events == nil {
		s.events = notify.Discard
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.attempts <= 0 {
		s.attempts = DefaultAttempts
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	return s
}

// ScheduleReload queues singer and restarts the quiet period
func (s *ReloadScheduler) ScheduleReload(singer Singer) {
	s.mu.Lock()
	s.queue = append(s.queue, singer)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	if old := s.token.Swap(&reloadToken{cancel: cancel}); old != nil {
		old.cancel()
	}

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer cancel()

		timer := time.NewTimer(s.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.refresh()
	}()
}

// Pending returns the number of queued requests
func (s *ReloadScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *ReloadScheduler) drain() []Singer {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[Singer]bool, len(s.queue))
	var unique []Singer
	for _, singer := range s.queue {
		if !seen[singer] {
			seen[singer] = true
			unique = append(unique, singer)
		}
	}
	s.queue = nil
	return unique
}

func (s *ReloadScheduler) refresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	for _, singer := range s.drain() {
		s.reload(singer)
	}
}

func (s *ReloadScheduler) reload(singer Singer) {
	id := singer.ID()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reload panicked", "singer", id, "panic", r)
		}
	}()

	s.logger.Info("reloading", "singer", id)
	s.events.Publish(notify.SingerReloadProgress{Singer: id})

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := singer.Reload()
		if err == nil {
			s.logger.Info("reloaded", "singer", id, "attempts", attempt)
			break
		}
		if attempt == s.attempts {
			s.logger.Error("failed to reload", "singer", id, "attempts", attempt, "err", err)
			break
		}
		s.logger.Warn("retrying reload", "singer", id, "attempt", attempt, "err", err)
		time.Sleep(s.retryDelay)
	}

	s.events.Publish(notify.SingerReloadProgress{Singer: id, Done: true})
	s.events.Publish(notify.OtoChanged{Singer: id, External: true})
}

// Close cancels a pending reload and waits for running ones
func (s *ReloadScheduler) Close() {
	if old := s.token.Swap(nil); old != nil {
		old.cancel()
	}
	s.tasks.Wait()
}
