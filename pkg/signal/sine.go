// ABOUTME: Sine tone generators used for previews and test sounds
// ABOUTME: Implements the sink sample provider contract directly
package signal

import (
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
)

// SineGen is an endless stereo sine tone that fades out after Stop
type SineGen struct {
	freq     atomic.Uint64
	gain     float64
	phase    float64
	fade     float64
	stopping atomic.Bool
}

// NewSineGen creates a tone at freq Hz with the given linear gain
func NewSineGen(freq, gain float64) *SineGen {
	g := &SineGen{gain: gain, fade: 1}
	g.SetFreq(freq)
	return g
}

// SetFreq changes the tone frequency
func (g *SineGen) SetFreq(freq float64) {
	g.freq.Store(math.Float64bits(freq))
}

// Freq returns the tone frequency
func (g *SineGen) Freq() float64 {
	return math.Float64frombits(g.freq.Load())
}

// Stop starts a short fade-out after which Read reports end of stream
func (g *SineGen) Stop() {
	g.stopping.Store(true)
}

// Read fills buffer[offset:offset+count] with interleaved stereo samples
func (g *SineGen) Read(buffer []float32, offset, count int) int {
	step := 2 * math.Pi * g.Freq() / audio.SampleRate
	fadeStep := 1.0 / (audio.SampleRate * 0.05)
	stopping := g.stopping.Load()
	n := 0
	for n+audio.Channels <= count {
		if stopping {
			g.fade -= fadeStep
			if g.fade <= 0 {
				g.fade = 0
				break
			}
		}
		v := float32(math.Sin(g.phase) * g.gain * g.fade)
		for c := 0; c < audio.Channels; c++ {
			buffer[offset+n+c] = v
		}
		g.phase = math.Mod(g.phase+step, 2*math.Pi)
		n += audio.Channels
	}
	return n
}

// Take limits a sample provider to a fixed number of samples
type Take struct {
	reader    Reader
	remaining int
}

// NewTake wraps reader so it ends after ms milliseconds of audio
func NewTake(reader Reader, ms float64) *Take {
	return &Take{reader: reader, remaining: MsToPosition(ms)}
}

func (t *Take) Read(buffer []float32, offset, count int) int {
	if t.remaining <= 0 {
		return 0
	}
	n := t.reader.Read(buffer, offset, min(count, t.remaining))
	t.remaining -= n
	return n
}

// NewTestSound returns a one second 440 Hz tone
func NewTestSound() *Take {
	return NewTake(NewSineGen(440, 0.5), 1000)
}
