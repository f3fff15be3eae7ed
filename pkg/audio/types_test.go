// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion functions
package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, math.MaxInt16},
		{"full negative", -1, -math.MaxInt16},
		{"half", 0.5, 16383},
		{"clip positive", 2, math.MaxInt16},
		{"clip negative", -2, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FloatToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt16ToFloat(t *testing.T) {
	if got := Int16ToFloat(0); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := Int16ToFloat(math.MaxInt16); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
}

func TestIntToFloat(t *testing.T) {
	if got := IntToFloat(1<<15, 16); got != 1 {
		t.Errorf("expected 1 for 16-bit full scale, got %f", got)
	}
	if got := IntToFloat(1<<22, 24); got != 0.5 {
		t.Errorf("expected 0.5 for 24-bit half scale, got %f", got)
	}
	if got := IntToFloat(100, 0); got != 0 {
		t.Errorf("expected 0 for invalid bit depth, got %f", got)
	}
}

func TestPutFloat32LE(t *testing.T) {
	samples := []float32{0.25, -0.5}
	buf := make([]byte, len(samples)*SampleSize)
	PutFloat32LE(buf, samples)

	for i, want := range samples {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*SampleSize:]))
		if got != want {
			t.Errorf("sample %d: expected %f, got %f", i, want, got)
		}
	}
}

func TestPutInt16LE(t *testing.T) {
	samples := []float32{1, -1}
	buf := make([]byte, len(samples)*2)
	PutInt16LE(buf, samples)

	if got := int16(binary.LittleEndian.Uint16(buf[0:])); got != math.MaxInt16 {
		t.Errorf("expected %d, got %d", math.MaxInt16, got)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got != -math.MaxInt16 {
		t.Errorf("expected %d, got %d", -math.MaxInt16, got)
	}
}

func TestBusFormatFrameBytes(t *testing.T) {
	if got := BusFormat.FrameBytes(); got != 8 {
		t.Errorf("expected 8 bytes per stereo float frame, got %d", got)
	}
}

func TestReadFloat32LE(t *testing.T) {
	in := []float32{0.5, -0.25, 1}
	b := make([]byte, len(in)*SampleSize)
	PutFloat32LE(b, in)

	out := make([]float32, len(in))
	ReadFloat32LE(out, b)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: expected %f, got %f", i, in[i], out[i])
		}
	}
}
