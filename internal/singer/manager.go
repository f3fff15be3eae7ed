// ABOUTME: Singer registry
// ABOUTME: Searches voicebank paths, groups singers and frees unused ones
package singer

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/charmbracelet/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// voiceMacro is the placeholder some projects prefix singer names with
const voiceMacro = "%VOICE%"

// Manager holds the singers found on the search paths
type Manager struct {
	logger    *log.Logger
	paths     []string
	scheduler *ReloadScheduler

	// searchMu guards collator and serializes rescans
	searchMu sync.Mutex
	collator *collate.Collator

	mu      sync.RWMutex
	singers map[string]Singer
	groups  map[Type][]Singer
	used    map[Singer]bool
}

// NewManager creates a registry over paths. Reloads go through scheduler.
func NewManager(paths []string, scheduler *ReloadScheduler, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		logger:    logger.WithPrefix("singers"),
		paths:     paths,
		scheduler: scheduler,
		collator:  collate.New(language.Und, collate.IgnoreCase),
		singers:   make(map[string]Singer),
		groups:    make(map[Type][]Singer),
		used:      make(map[Singer]bool),
	}
}

// SearchAll rescans every search path. The first singer found for an id wins.
func (m *Manager) SearchAll() {
	m.searchMu.Lock()
	defer m.searchMu.Unlock()

	m.logger.Info("searching singers", "paths", m.paths)
	start := time.Now()

	singers := make(map[string]Singer)
	groups := make(map[Type][]Singer)
	for _, path := range m.paths {
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("skipping singer path", "path", path, "err", err)
			continue
		}
		found, err := SearchClassic(path)
		if err != nil {
			m.logger.Warn("some voicebanks failed to load", "path", path, "err", err)
		}
		for _, s := range found {
			if _, dup := singers[s.ID()]; dup {
				m.logger.Debug("duplicate singer", "id", s.ID(), "dir", s.Dir())
				continue
			}
			singers[s.ID()] = s
			groups[s.Type()] = append(groups[s.Type()], s)
		}
	}
	for _, group := range groups {
		m.sort(group)
	}

	m.mu.Lock()
	m.singers = singers
	m.groups = groups
	m.mu.Unlock()

	m.logger.Info("search complete", "singers", len(singers), "elapsed", time.Since(start))
}

func (m *Manager) sort(singers []Singer) {
	sort.SliceStable(singers, func(i, j int) bool {
		return m.collator.CompareString(singers[i].Name(), singers[j].Name()) < 0
	})
}

// Get returns the singer with name, ignoring the %VOICE% macro, or nil
func (m *Manager) Get(name string) Singer {
	name = strings.ReplaceAll(name, voiceMacro, "")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.singers[name]
}

// Singers returns every singer by id
func (m *Manager) Singers() map[string]Singer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Singer, len(m.singers))
	for id, s := range m.singers {
		out[id] = s
	}
	return out
}

// Groups returns the singers of each type ordered by name
func (m *Manager) Groups() map[Type][]Singer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Type][]Singer, len(m.groups))
	for t, group := range m.groups {
		out[t] = append([]Singer(nil), group...)
	}
	return out
}

// ScheduleReload forwards to the reload scheduler
func (m *Manager) ScheduleReload(s Singer) {
	if m.scheduler == nil {
		return
	}
	m.scheduler.ScheduleReload(s)
}

// ReleaseNotInUse frees the phoneme data of singers that were in use by
// an earlier call but are no longer used by any track of p
func (m *Manager) ReleaseNotInUse(p *project.Project) {
	inUse := make(map[Singer]bool)
	for name := range p.SingersInUse() {
		if s := m.Get(name); s != nil && s.Found() {
			inUse[s] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.used {
		if !inUse[s] {
			m.logger.Debug("releasing singer", "id", s.ID())
			s.FreeMemory()
		}
	}
	m.used = inUse
}
