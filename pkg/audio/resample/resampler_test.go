// ABOUTME: Tests for the whole-buffer resampler
// ABOUTME: Checks output length and channel separation
package resample

import (
	"math"
	"testing"
)

func TestResampleSameRateCopies(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := New(44100, 44100, 2).Resample(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	out[0] = 1
	if in[0] != 0.1 {
		t.Error("expected a copy, input was modified")
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	frames := 22050
	in := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / 22050))
		in[i*2] = v
		in[i*2+1] = -v
	}

	out := New(22050, 44100, 2).Resample(in)
	want := frames * 2 * 2
	if len(out)%2 != 0 {
		t.Fatalf("expected interleaved stereo output, got %d samples", len(out))
	}
	if diff := want - len(out); diff < 0 || diff > 2048 {
		t.Errorf("expected about %d samples, got %d", want, len(out))
	}

	for i := 0; i+1 < len(out); i += 2 {
		if math.Abs(float64(out[i]+out[i+1])) > 1e-3 {
			t.Fatalf("expected mirrored channels at frame %d, got %f %f", i/2, out[i], out[i+1])
		}
	}
}

func TestOutputSamplesNeeded(t *testing.T) {
	r := New(48000, 44100, 2)
	if got := r.OutputSamplesNeeded(96000); got != 88200 {
		t.Errorf("expected 88200, got %d", got)
	}
}
