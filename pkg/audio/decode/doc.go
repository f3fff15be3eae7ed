// ABOUTME: Audio decoder package for rendered and imported clips
// ABOUTME: Provides Decoder interface and WAV, MP3 and FLAC implementations
// Package decode provides whole-file audio decoders.
//
// Supports: WAV, MP3, FLAC
//
// All decoders return interleaved float32 samples in [-1, 1]. ToBus converts
// a decoded clip to the playback bus format.
//
// Example:
//
//	pcm, err := decode.File("vocals.wav")
//	samples := decode.ToBus(pcm)
package decode
