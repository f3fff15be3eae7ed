// ABOUTME: Shared pull stream between a sample provider and a backend callback
// ABOUTME: Counts delivered frames and converts samples to device byte layouts
package output

import (
	"io"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
)

// stream adapts a SampleProvider for device callbacks
type stream struct {
	provider SampleProvider
	frames   atomic.Int64
	ended    atomic.Bool
	scratch  []float32
}

func newStream(provider SampleProvider) *stream {
	return &stream{provider: provider}
}

// fill writes samples into dst, padding with silence after the provider ends.
// It returns the samples taken from the provider.
func (s *stream) fill(dst []float32) int {
	n := 0
	for n < len(dst) && !s.ended.Load() {
		read := s.provider.Read(dst, n, len(dst)-n)
		if read <= 0 {
			s.ended.Store(true)
			break
		}
		n += read
	}
	clear(dst[n:])
	s.frames.Add(int64(n / audio.Channels))
	return n
}

// fillBytes fills a float32 little-endian byte buffer
func (s *stream) fillBytes(dst []byte) int {
	count := len(dst) / audio.SampleSize
	if cap(s.scratch) < count {
		s.scratch = make([]float32, count)
	}
	samples := s.scratch[:count]
	n := s.fill(samples)
	audio.PutFloat32LE(dst, samples)
	return n
}

// Read implements io.Reader over FormatFloat32LE bytes for pull players.
// It returns io.EOF once the provider has ended.
func (s *stream) Read(p []byte) (int, error) {
	if s.ended.Load() {
		return 0, io.EOF
	}
	usable := len(p) - len(p)%audio.BusFormat.FrameBytes()
	if usable == 0 {
		return 0, nil
	}
	n := s.fillBytes(p[:usable])
	if n == 0 {
		return 0, io.EOF
	}
	return n * audio.SampleSize, nil
}
