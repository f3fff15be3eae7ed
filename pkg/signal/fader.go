// ABOUTME: Per-track gain and pan stage
// ABOUTME: Scales a wrapped Source with atomically adjustable volume and pan
package signal

import (
	"math"
	"sync/atomic"
)

// Fader applies volume and pan to a wrapped Source.
// Scale and Pan may be set from any goroutine while Mix runs on the audio thread.
type Fader struct {
	source  Source
	scale   atomic.Uint32
	pan     atomic.Uint32
	scratch []float32
}

// NewFader wraps source at unity gain and center pan
func NewFader(source Source) *Fader {
	f := &Fader{source: source}
	f.SetScale(1)
	return f
}

// Scale returns the linear gain
func (f *Fader) Scale() float32 {
	return math.Float32frombits(f.scale.Load())
}

// SetScale sets the linear gain
func (f *Fader) SetScale(scale float32) {
	f.scale.Store(math.Float32bits(scale))
}

// Pan returns the pan position in [-100, 100]
func (f *Fader) Pan() float32 {
	return math.Float32frombits(f.pan.Load())
}

// SetPan sets the pan position, clamped to [-100, 100]
func (f *Fader) SetPan(pan float32) {
	pan = min(100, max(-100, pan))
	f.pan.Store(math.Float32bits(pan))
}

// IsReady reports whether the wrapped source is ready
func (f *Fader) IsReady(position, count int) bool {
	return f.source.IsReady(position, count)
}

// Mix adds the scaled and panned output of the wrapped source into buffer
func (f *Fader) Mix(position int, buffer []float32, index, count int) int {
	if cap(f.scratch) < count {
		f.scratch = make([]float32, count)
	}
	scratch := f.scratch[:count]
	clear(scratch)

	newPosition := f.source.Mix(position, scratch, 0, count)

	left, right := PanGains(f.Pan())
	scale := f.Scale()
	left *= scale
	right *= scale
	for i := 0; i < count; i++ {
		// Channel parity follows the absolute position.
		if (position+i)%2 == 0 {
			buffer[index+i] += scratch[i] * left
		} else {
			buffer[index+i] += scratch[i] * right
		}
	}
	return newPosition
}

// PanGains returns the left and right gains for a pan position in [-100, 100]
func PanGains(pan float32) (left, right float32) {
	left, right = 1, 1
	if pan > 0 {
		left = 1 - pan/100
	} else if pan < 0 {
		right = 1 + pan/100
	}
	return left, right
}

// DecibelToVolume converts a track volume in dB to a linear gain.
// At or below -24 dB the track is silent; below -16 dB the curve steepens
// so the fader reaches silence smoothly.
func DecibelToVolume(db float64) float32 {
	switch {
	case db <= -24:
		return 0
	case db < -16:
		return float32(math.Pow(10, (db*2+16)/20))
	default:
		return float32(math.Pow(10, db/20))
	}
}
