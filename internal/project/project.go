// ABOUTME: Minimal project model consumed by rendering and playback
// ABOUTME: Tracks with gain and pan, tempo map and YAML persistence
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultResolution is the number of ticks per quarter note
const DefaultResolution = 480

// DefaultBPM is used when a project has no tempo entries
const DefaultBPM = 120

var (
	ErrInvalidResolution = errors.New("resolution must be positive")
	ErrInvalidTempo      = errors.New("invalid tempo")
)

// Tempo sets the beats per minute from Tick onwards
type Tempo struct {
	Tick int     `yaml:"tick"`
	BPM  float64 `yaml:"bpm"`
}

// Clip is a rendered audio file placed on a track at Tick
type Clip struct {
	File string `yaml:"file"`
	Tick int    `yaml:"tick"`
}

// Track is one voice or audio lane of the project
type Track struct {
	Name   string  `yaml:"name"`
	Singer string  `yaml:"singer,omitempty"`
	Muted  bool    `yaml:"muted,omitempty"`
	Volume float64 `yaml:"volume,omitempty"`
	Pan    float64 `yaml:"pan,omitempty"`
	Clips  []Clip  `yaml:"clips"`
}

// Project is the document being played
type Project struct {
	Name       string  `yaml:"name"`
	Resolution int     `yaml:"resolution,omitempty"`
	Tempos     []Tempo `yaml:"tempos,flow"`
	Tracks     []Track `yaml:"tracks"`
	EndTick    int     `yaml:"end_tick,omitempty"`

	// Dir resolves relative clip paths; set by Load
	Dir string `yaml:"-"`
}

// New creates an empty project with default resolution and tempo
func New(name string) *Project {
	p := &Project{Name: name}
	p.applyDefaults()
	return p
}

func (p *Project) applyDefaults() {
	if p.Resolution == 0 {
		p.Resolution = DefaultResolution
	}
	if len(p.Tempos) == 0 {
		p.Tempos = []Tempo{{Tick: 0, BPM: DefaultBPM}}
	}
	sort.SliceStable(p.Tempos, func(i, j int) bool {
		return p.Tempos[i].Tick < p.Tempos[j].Tick
	})
}

// Validate checks the tempo map and resolution
func (p *Project) Validate() error {
	if p.Resolution <= 0 {
		return ErrInvalidResolution
	}
	if len(p.Tempos) == 0 || p.Tempos[0].Tick != 0 {
		return fmt.Errorf("%w: first tempo must start at tick 0", ErrInvalidTempo)
	}
	for _, t := range p.Tempos {
		if t.BPM <= 0 {
			return fmt.Errorf("%w: bpm %.2f at tick %d", ErrInvalidTempo, t.BPM, t.Tick)
		}
	}
	return nil
}

// TimeAxis returns the tick/time converter for the current tempo map
func (p *Project) TimeAxis() *TimeAxis {
	return NewTimeAxis(p.Resolution, p.Tempos)
}

// ClipPath resolves a clip file against the project directory
func (p *Project) ClipPath(c Clip) string {
	if filepath.IsAbs(c.File) || p.Dir == "" {
		return c.File
	}
	return filepath.Join(p.Dir, c.File)
}

// SingersInUse returns the names of singers referenced by any track
func (p *Project) SingersInUse() map[string]bool {
	used := make(map[string]bool)
	for _, t := range p.Tracks {
		if t.Singer != "" {
			used[t.Singer] = true
		}
	}
	return used
}

// Load reads a project from a YAML file
func Load(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	p.Dir = filepath.Dir(path)
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Parse decodes a YAML project document
func Parse(b []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the project as YAML
func (p *Project) Save(path string) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}
