// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE files to float32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/go-audio/wav"
)

// WAV decodes PCM WAVE files
type WAV struct{}

// Decode reads a complete WAVE stream; r must also be an io.ReadSeeker
func (WAV) Decode(r io.Reader) (*PCM, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, errors.New("wav decoder requires a seekable reader")
	}

	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %v", decoder.Err())
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = audio.IntToFloat(s, bitDepth)
	}

	return &PCM{
		Samples:    samples,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
	}, nil
}
