// ABOUTME: Audio encoder package for exporting rendered audio
// ABOUTME: Provides Encoder interface, a 16-bit WAV writer and a writability check
// Package encode writes rendered audio to files.
//
// Example:
//
//	if err := encode.CheckWritable(path); err != nil {
//		return err
//	}
//	err := encode.WriteWAV16Mono(path, source, audio.SampleRate)
package encode
