// ABOUTME: Singer contract and voicebank metadata
// ABOUTME: Character file parsing with legacy text encodings
package singer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v3"
)

// DefaultEncoding is used for voicebank text files that do not declare one
const DefaultEncoding = "shift_jis"

var (
	// ErrNotVoicebank is returned for directories without a character.txt
	ErrNotVoicebank = errors.New("not a voicebank")

	// ErrUnknownEncoding is returned for unsupported text_file_encoding values
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// Type groups singers by synthesis backend
type Type string

const (
	Classic    Type = "classic"
	Enunu      Type = "enunu"
	DiffSinger Type = "diffsinger"
	Voicevox   Type = "voicevox"
)

func parseType(s string) Type {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Enunu, DiffSinger, Voicevox:
		return t
	default:
		return Classic
	}
}

// Singer is a loaded voicebank
type Singer interface {
	ID() string
	Name() string
	Type() Type
	Dir() string

	// Found reports whether the voicebank still exists on disk
	Found() bool

	// Loaded reports whether phoneme data is held in memory
	Loaded() bool

	// Reload re-reads metadata and phoneme data from disk
	Reload() error

	// FreeMemory drops phoneme data until the next load
	FreeMemory()
}

// Info is the voicebank metadata from character.txt and character.yaml
type Info struct {
	Name     string
	Author   string
	Image    string
	Web      string
	Type     Type
	Encoding string
}

// characterConfig is the optional character.yaml
type characterConfig struct {
	Name             string `yaml:"name"`
	Author           string `yaml:"author"`
	Image            string `yaml:"image"`
	Web              string `yaml:"web"`
	SingerType       string `yaml:"singer_type"`
	TextFileEncoding string `yaml:"text_file_encoding"`
}

// ReadInfo reads the metadata of the voicebank in dir
func ReadInfo(dir string) (Info, error) {
	info := Info{Type: Classic, Encoding: DefaultEncoding}

	cfg, err := readCharacterConfig(dir)
	if err != nil {
		return info, err
	}
	if cfg.TextFileEncoding != "" {
		info.Encoding = cfg.TextFileEncoding
	}
	info.Type = parseType(cfg.SingerType)

	raw, err := os.ReadFile(filepath.Join(dir, "character.txt"))
	if errors.Is(err, os.ErrNotExist) {
		return info, fmt.Errorf("%w: %s", ErrNotVoicebank, dir)
	}
	if err != nil {
		return info, err
	}
	text, err := decodeText(raw, info.Encoding)
	if err != nil {
		return info, fmt.Errorf("failed to decode character.txt: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			info.Name = value
		case "author":
			info.Author = value
		case "image":
			info.Image = value
		case "web":
			info.Web = value
		}
	}
	if err := scanner.Err(); err != nil {
		return info, err
	}

	// character.yaml overrides character.txt
	if cfg.Name != "" {
		info.Name = cfg.Name
	}
	if cfg.Author != "" {
		info.Author = cfg.Author
	}
	if cfg.Image != "" {
		info.Image = cfg.Image
	}
	if cfg.Web != "" {
		info.Web = cfg.Web
	}
	if info.Name == "" {
		info.Name = filepath.Base(dir)
	}
	return info, nil
}

func readCharacterConfig(dir string) (characterConfig, error) {
	var cfg characterConfig
	b, err := os.ReadFile(filepath.Join(dir, "character.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse character.yaml: %w", err)
	}
	return cfg, nil
}

// lookupEncoding resolves a WHATWG encoding label
func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// decodeText converts raw voicebank text to UTF-8. A UTF-8 byte order
// mark overrides the declared encoding.
func decodeText(raw []byte, name string) ([]byte, error) {
	if bytes.HasPrefix(raw, []byte("\xef\xbb\xbf")) {
		return unicode.UTF8BOM.NewDecoder().Bytes(raw)
	}
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Bytes(raw)
}
