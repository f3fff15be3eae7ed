// ABOUTME: Classic UTAU voicebank loader
// ABOUTME: Discovers voicebank directories and parses oto.ini phoneme tables
package singer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// OtoEntry is one line of an oto.ini table. Times are in milliseconds.
type OtoEntry struct {
	File      string
	Alias     string
	Offset    float64
	Consonant float64
	Cutoff    float64
	Preutter  float64
	Overlap   float64
}

// ClassicSinger is a voicebank directory with character.txt and oto.ini files
type ClassicSinger struct {
	id  string
	dir string

	mu     sync.RWMutex
	info   Info
	oto    []OtoEntry
	loaded bool
}

// LoadClassic reads the metadata of the voicebank in dir. Phoneme data is
// loaded on first use.
func LoadClassic(dir string) (*ClassicSinger, error) {
	info, err := ReadInfo(dir)
	if err != nil {
		return nil, err
	}
	return &ClassicSinger{id: info.Name, dir: dir, info: info}, nil
}

func (s *ClassicSinger) ID() string  { return s.id }
func (s *ClassicSinger) Dir() string { return s.dir }

func (s *ClassicSinger) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Name
}

func (s *ClassicSinger) Type() Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Type
}

// Info returns the voicebank metadata
func (s *ClassicSinger) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *ClassicSinger) Found() bool {
	_, err := os.Stat(filepath.Join(s.dir, "character.txt"))
	return err == nil
}

func (s *ClassicSinger) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Oto returns the phoneme table, loading it if needed
func (s *ClassicSinger) Oto() ([]OtoEntry, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.oto, nil
	}
	s.mu.RUnlock()

	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oto, nil
}

func (s *ClassicSinger) Reload() error {
	info, err := ReadInfo(s.dir)
	if err != nil {
		return err
	}
	entries, err := ReadOto(s.dir, info.Encoding)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
	s.oto = entries
	s.loaded = true
	return nil
}

func (s *ClassicSinger) FreeMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oto = nil
	s.loaded = false
}

// ReadOto parses every oto.ini below dir. File names in the result are
// relative to dir.
func ReadOto(dir, encodingName string) ([]OtoEntry, error) {
	var entries []OtoEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), "oto.ini") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, err := decodeText(raw, encodingName)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil {
			return err
		}
		entries = append(entries, parseOto(text, rel)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func parseOto(text []byte, rel string) []OtoEntry {
	var entries []OtoEntry
	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		entry, err := parseOtoLine(scanner.Text())
		if err != nil {
			continue
		}
		if rel != "." {
			entry.File = filepath.Join(rel, entry.File)
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseOtoLine parses "file.wav=alias,offset,consonant,cutoff,preutter,overlap".
// Missing or empty numbers are zero; an empty alias is the file stem.
func parseOtoLine(line string) (OtoEntry, error) {
	file, rest, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || file == "" {
		return OtoEntry{}, fmt.Errorf("malformed oto line: %q", line)
	}
	fields := strings.Split(rest, ",")
	entry := OtoEntry{File: file, Alias: strings.TrimSpace(fields[0])}
	if entry.Alias == "" {
		entry.Alias = strings.TrimSuffix(file, filepath.Ext(file))
	}

	values := []*float64{&entry.Offset, &entry.Consonant, &entry.Cutoff, &entry.Preutter, &entry.Overlap}
	for i, dst := range values {
		if i+1 >= len(fields) {
			break
		}
		field := strings.TrimSpace(fields[i+1])
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return OtoEntry{}, fmt.Errorf("malformed oto value %q: %w", field, err)
		}
		*dst = v
	}
	return entry, nil
}

// SearchClassic finds every voicebank below root. Voicebanks that fail to
// load are reported in the joined error and skipped.
func SearchClassic(root string) ([]*ClassicSinger, error) {
	var singers []*ClassicSinger
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), "character.txt") {
			return nil
		}
		s, err := LoadClassic(filepath.Dir(path))
		if err != nil {
			if errors.Is(err, ErrNotVoicebank) {
				return nil
			}
			errs = append(errs, fmt.Errorf("failed to load %s: %w", filepath.Dir(path), err))
			return nil
		}
		singers = append(singers, s)
		return nil
	})
	return singers, errors.Join(append(errs, err)...)
}
