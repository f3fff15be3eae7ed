// ABOUTME: Audio type definitions for the playback bus
// ABOUTME: Defines the fixed bus format and float32 sample conversions
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// SampleRate is the rate of every bus handed to an output device.
	SampleRate = 44100

	// Channels is the interleaved channel count of the bus.
	Channels = 2

	// SampleSize is the byte width of one float32 sample.
	SampleSize = 4
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// BusFormat is the format every SignalSource mixes into
var BusFormat = Format{
	SampleRate: SampleRate,
	Channels:   Channels,
	BitDepth:   32,
}

// FrameBytes returns the size of one interleaved frame in bytes
func (f Format) FrameBytes() int {
	return f.Channels * f.BitDepth / 8
}

// FloatToInt16 converts a [-1, 1] float sample to int16 with clipping
func FloatToInt16(sample float32) int16 {
	scaled := float64(sample) * math.MaxInt16
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// Int16ToFloat converts an int16 sample to the [-1, 1] float range
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / math.MaxInt16
}

// IntToFloat converts a signed integer sample of the given bit depth to float
func IntToFloat(sample int, bitDepth int) float32 {
	if bitDepth <= 0 {
		return 0
	}
	max := float64(int64(1) << uint(bitDepth-1))
	return float32(float64(sample) / max)
}

// PutFloat32LE writes samples into dst as little-endian float32 bytes.
// dst must hold at least len(samples)*SampleSize bytes.
func PutFloat32LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*SampleSize:], math.Float32bits(s))
	}
}

// PutInt16LE writes samples into dst as little-endian int16 bytes.
func PutInt16LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(FloatToInt16(s)))
	}
}

// ReadFloat32LE decodes little-endian float32 bytes into dst.
// src must hold at least len(dst)*SampleSize bytes.
func ReadFloat32LE(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*SampleSize:]))
	}
}
