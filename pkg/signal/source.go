// ABOUTME: Source interface definition
// ABOUTME: Capability contract for lazily produced, position-addressable audio
package signal

import "github.com/Resonate-Protocol/utauplay/pkg/audio"

// Source is a lazily produced audio stream addressed by sample position
type Source interface {
	// IsReady reports whether count samples from position can be mixed
	// without stalling. It must not block or perform I/O.
	IsReady(position, count int) bool

	// Mix adds up to count samples starting at position into
	// buffer[index:index+count] and returns the cursor after the last
	// sample written. A return value below position+count means the
	// stream ended.
	Mix(position int, buffer []float32, index, count int) int
}

// MsToPosition converts a time in milliseconds to an interleaved sample position
func MsToPosition(ms float64) int {
	return int(ms*audio.SampleRate/1000) * audio.Channels
}

// PositionToMs converts an interleaved sample position to milliseconds
func PositionToMs(position int) float64 {
	return float64(position/audio.Channels) * 1000 / audio.SampleRate
}

// Reader is a pull stream of interleaved samples. Read fills
// buffer[offset:offset+count] and returns how many samples it produced;
// zero means end of stream.
type Reader interface {
	Read(buffer []float32, offset, count int) int
}
