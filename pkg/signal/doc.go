// ABOUTME: Signal chain package for lazily produced audio streams
// ABOUTME: Provides Source, BusAdapter, Fader, Mixer and tone generators
// Package signal provides the pull-based signal chain of the playback bus.
//
// A Source is a position-addressable audio stream that may not be fully
// produced yet. Sources compose (Mixer, Fader, Part) into a single bus,
// and a BusAdapter turns that bus into a fixed-format stream that an
// output device can pull from without ever blocking:
//   - IsReady reports whether a range can be mixed without stalling
//   - Mix adds samples into a caller-owned buffer and returns the new cursor
//
// Positions and counts are interleaved float32 samples of audio.BusFormat.
//
// Example:
//
//	adapter := signal.NewBusAdapter(bus)
//	adapter.SetPosition(signal.MsToPosition(startMs))
//	sink.Init(adapter)
package signal
