// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 streams to float32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 decodes MPEG-1/2 layer III streams
type MP3 struct{}

// Decode reads a complete MP3 stream. go-mp3 always yields 16-bit stereo.
func (MP3) Decode(r io.Reader) (*PCM, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	var samples []float32
	if length := decoder.Length(); length > 0 {
		samples = make([]float32, 0, length/2)
	}

	buf := make([]byte, 8192)
	for {
		n, err := decoder.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			sample := int16(binary.LittleEndian.Uint16(buf[i:]))
			samples = append(samples, audio.Int16ToFloat(sample))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3 decode error: %w", err)
		}
	}

	return &PCM{
		Samples:    samples,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}
