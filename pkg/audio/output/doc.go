// ABOUTME: Audio output package for playing the bus
// ABOUTME: Provides the Sink contract and Dummy, Oto, Malgo and PortAudio sinks
// Package output provides audio sinks that pull from a SampleProvider.
//
// Sinks call the provider from their audio thread; the provider must not
// block. New probes the available backends at runtime and always returns a
// usable sink, falling back to Dummy.
//
// Example:
//
//	sink := output.New(output.Options{Logger: logger})
//	defer sink.Close()
//	if err := sink.Init(adapter); err != nil {
//		return err
//	}
//	err := sink.Play()
package output
