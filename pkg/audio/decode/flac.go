// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC streams frame by frame to float32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLAC decodes FLAC streams
type FLAC struct{}

// Decode reads a complete FLAC stream
func (FLAC) Decode(r io.Reader) (*PCM, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	var samples []float32
	if info.NSamples > 0 {
		samples = make([]float32, 0, int(info.NSamples)*channels)
	}

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				sample := frame.Subframes[ch].Samples[i]
				samples = append(samples, audio.IntToFloat(int(sample), bitDepth))
			}
		}
	}

	return &PCM{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
	}, nil
}
