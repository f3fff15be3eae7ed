// ABOUTME: Playback orchestration package
// ABOUTME: Sequences stop, render and play, and runs exports
// Package playback coordinates the render engine and the audio sink.
//
// Manager owns the single render slot: starting playback, pre-rendering or
// exporting cancels whatever job held the slot before, and a job whose slot
// was taken never installs its result. Transport state is always read from
// the sink.
//
// Example:
//
//	m := playback.NewManager(playback.Config{Sink: sink, Engine: engine, Events: bus})
//	m.LoadProject(p)
//	m.Play(p, 0, -1, -1)
//	// on a UI tick:
//	m.UpdatePlayPos()
package playback
