// ABOUTME: Audio fundamentals package providing the bus format
// ABOUTME: Defines Format and sample conversion helpers
// Package audio provides the fixed playback bus format and sample helpers.
//
// Every signal source in the playback chain mixes interleaved float32
// samples at 44100 Hz stereo. Output backends convert to their native
// formats with the helpers in this package:
//   - float32 <-> int16 conversions with clipping
//   - little-endian byte packing for pull-based output players
//
// Example:
//
//	buf := make([]byte, len(samples)*audio.SampleSize)
//	audio.PutFloat32LE(buf, samples)
package audio
