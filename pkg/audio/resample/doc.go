// ABOUTME: Audio resampling package
// ABOUTME: Converts decoded clips to the bus sample rate
// Package resample provides audio sample rate conversion.
//
// Conversion is delegated to a windowed-sinc resampler and operates on
// whole interleaved float32 buffers.
//
// Example:
//
//	r := resample.New(22050, 44100, 2)
//	out := r.Resample(in)
package resample
