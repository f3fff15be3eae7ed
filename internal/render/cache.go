// ABOUTME: Two-level cache of clips converted to the bus format
// ABOUTME: Memory map in front of raw float32 files in the cache directory
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("utauplay:render-cache"))

// Cache stores rendered clips keyed by source file identity
type Cache struct {
	dir    string
	logger *log.Logger

	mu      sync.Mutex
	entries map[uuid.UUID][]float32
}

// NewCache creates a cache; an empty dir keeps entries in memory only
func NewCache(dir string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		dir:     dir,
		logger:  logger,
		entries: make(map[uuid.UUID][]float32),
	}
}

// Key identifies a file by path, size and modification time
func Key(path string) (uuid.UUID, error) {
	info, err := os.Stat(path)
	if err != nil {
		return uuid.Nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	return uuid.NewSHA1(cacheNamespace, []byte(name)), nil
}

// Get returns cached samples from memory or disk
func (c *Cache) Get(key uuid.UUID) ([]float32, bool) {
	c.mu.Lock()
	samples, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return samples, true
	}
	if c.dir == "" {
		return nil, false
	}

	b, err := os.ReadFile(c.file(key))
	if err != nil || len(b)%audio.SampleSize != 0 {
		return nil, false
	}
	samples = make([]float32, len(b)/audio.SampleSize)
	audio.ReadFloat32LE(samples, b)

	c.mu.Lock()
	c.entries[key] = samples
	c.mu.Unlock()
	return samples, true
}

// Put stores samples in memory and, best effort, on disk
func (c *Cache) Put(key uuid.UUID, samples []float32) {
	c.mu.Lock()
	c.entries[key] = samples
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("render cache unavailable", "dir", c.dir, "err", err)
		return
	}
	b := make([]byte, len(samples)*audio.SampleSize)
	audio.PutFloat32LE(b, samples)
	tmp := c.file(key) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		c.logger.Warn("failed to write render cache", "err", err)
		return
	}
	if err := os.Rename(tmp, c.file(key)); err != nil {
		c.logger.Warn("failed to commit render cache", "err", err)
	}
}

// Len returns the number of entries held in memory
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops the memory layer
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID][]float32)
}

func (c *Cache) file(key uuid.UUID) string {
	return filepath.Join(c.dir, key.String()+".f32")
}
