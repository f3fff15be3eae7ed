// ABOUTME: Decoder interface definition
// ABOUTME: Common interface, format registry and bus conversion for decoders
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/resample"
)

// ErrUnsupportedFormat is returned for files without a registered decoder
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is a decoded clip of interleaved float32 samples
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of interleaved frames in the clip
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Decoder decodes a complete audio stream
type Decoder interface {
	Decode(r io.Reader) (*PCM, error)
}

var decoders = map[string]Decoder{
	".wav":  WAV{},
	".mp3":  MP3{},
	".flac": FLAC{},
}

// ForPath returns the decoder registered for a file extension
func ForPath(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return d, nil
}

// File decodes the audio file at path
func File(path string) (*PCM, error) {
	d, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	pcm, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return pcm, nil
}

// ToBus converts a clip to the bus format. Mono is duplicated to both
// channels and extra channels beyond the first two are dropped.
func ToBus(p *PCM) []float32 {
	frames := p.Frames()
	stereo := make([]float32, frames*audio.Channels)
	for i := 0; i < frames; i++ {
		left := p.Samples[i*p.Channels]
		right := left
		if p.Channels > 1 {
			right = p.Samples[i*p.Channels+1]
		}
		stereo[i*2] = left
		stereo[i*2+1] = right
	}
	if p.SampleRate == audio.SampleRate {
		return stereo
	}
	return resample.New(p.SampleRate, audio.SampleRate, audio.Channels).Resample(stereo)
}
