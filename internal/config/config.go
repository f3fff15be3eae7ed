// ABOUTME: Persisted user preferences backed by viper
// ABOUTME: Defaults, loading from YAML, typed access and saving
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// FileName is the default preferences file name inside the config directory
const FileName = "prefs.yaml"

type Playback struct {
	Device          string `mapstructure:"device"`
	DeviceNumber    int    `mapstructure:"device_number"`
	PreferPortAudio bool   `mapstructure:"prefer_portaudio"`
	Backend         string `mapstructure:"backend"`
	MalgoBackend    string `mapstructure:"malgo_backend"`
}

type Render struct {
	PreRender   bool   `mapstructure:"prerender"`
	CacheDir    string `mapstructure:"cache_dir"`
	Parallelism int    `mapstructure:"parallelism"`
}

type Singers struct {
	Paths []string `mapstructure:"paths"`
	Watch bool     `mapstructure:"watch"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type UI struct {
	LockStartTime bool `mapstructure:"lock_start_time"`
}

// Preferences is the typed view of the preferences file
type Preferences struct {
	Playback Playback `mapstructure:"playback"`
	Render   Render   `mapstructure:"render"`
	Singers  Singers  `mapstructure:"singers"`
	Log      Log      `mapstructure:"log"`
	UI       UI       `mapstructure:"ui"`

	path string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("playback.device", "")
	v.SetDefault("playback.device_number", 0)
	v.SetDefault("playback.prefer_portaudio", false)
	v.SetDefault("playback.backend", "auto")
	v.SetDefault("playback.malgo_backend", "")
	v.SetDefault("render.prerender", true)
	v.SetDefault("render.cache_dir", filepath.Join(os.TempDir(), "utauplay-cache"))
	v.SetDefault("render.parallelism", 4)
	v.SetDefault("singers.paths", []string{})
	v.SetDefault("singers.watch", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "utauplay.log")
	v.SetDefault("ui.lock_start_time", false)
}

// DefaultPath returns the preferences file in the user config directory
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, "utauplay", FileName)
}

// Defaults returns preferences with every default applied
func Defaults() *Preferences {
	v := viper.New()
	setDefaults(v)
	p := &Preferences{}
	_ = v.Unmarshal(p)
	return p
}

// Load reads preferences from path. A missing file yields defaults.
func Load(path string) (*Preferences, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read preferences: %w", err)
		}
	}

	p := &Preferences{path: path}
	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return p, nil
}

// Path returns the file the preferences were loaded from
func (p *Preferences) Path() string {
	return p.path
}

// DeviceID returns the selected output device, or uuid.Nil
func (p *Preferences) DeviceID() uuid.UUID {
	id, err := uuid.Parse(p.Playback.Device)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// SetDevice records the selected output device
func (p *Preferences) SetDevice(id uuid.UUID, number int) {
	p.Playback.Device = id.String()
	p.Playback.DeviceNumber = number
}

// Save writes the preferences back to the file they were loaded from
func (p *Preferences) Save() error {
	if p.path == "" {
		return errors.New("preferences have no file path")
	}
	return p.SaveAs(p.path)
}

// SaveAs writes the preferences to path as YAML
func (p *Preferences) SaveAs(path string) error {
	v := viper.New()
	v.Set("playback.device", p.Playback.Device)
	v.Set("playback.device_number", p.Playback.DeviceNumber)
	v.Set("playback.prefer_portaudio", p.Playback.PreferPortAudio)
	v.Set("playback.backend", p.Playback.Backend)
	v.Set("playback.malgo_backend", p.Playback.MalgoBackend)
	v.Set("render.prerender", p.Render.PreRender)
	v.Set("render.cache_dir", p.Render.CacheDir)
	v.Set("render.parallelism", p.Render.Parallelism)
	v.Set("singers.paths", p.Singers.Paths)
	v.Set("singers.watch", p.Singers.Watch)
	v.Set("log.level", p.Log.Level)
	v.Set("log.file", p.Log.File)
	v.Set("ui.lock_start_time", p.UI.LockStartTime)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	p.path = path
	return nil
}
