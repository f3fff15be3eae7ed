// ABOUTME: Notification types published by the playback core
// ABOUTME: Closed set of events consumed by the presentation layer
package notify

import "fmt"

// Event is a notification from the core to the presentation layer
type Event interface {
	event()
}

// RenderFailed reports that rendering for playback or export failed
type RenderFailed struct {
	Err error
}

// ExportFailed reports that writing one export target failed
type ExportFailed struct {
	Path string
	Err  error
}

// ExportSucceeded reports a completed export target
type ExportSucceeded struct {
	Path string
}

// Progress reports a long-running operation; Percent is in [0, 100]
type Progress struct {
	Percent float64
	Message string
}

// PlayPosChanged reports the playhead
type PlayPosChanged struct {
	Tick        int
	IsBuffering bool
	Pause       bool
}

// SingerReloadProgress is published before and after a singer reload
type SingerReloadProgress struct {
	Singer string
	Done   bool
}

// OtoChanged reports that a singer's phoneme table changed on disk
type OtoChanged struct {
	Singer   string
	External bool
}

func (RenderFailed) event()         {}
func (ExportFailed) event()         {}
func (ExportSucceeded) event()      {}
func (Progress) event()             {}
func (PlayPosChanged) event()       {}
func (SingerReloadProgress) event() {}
func (OtoChanged) event()           {}

func (e RenderFailed) String() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e ExportFailed) String() string {
	return fmt.Sprintf("failed to export %s: %v", e.Path, e.Err)
}

func (e ExportSucceeded) String() string {
	return fmt.Sprintf("exported %s", e.Path)
}

func (e Progress) String() string {
	return fmt.Sprintf("%.0f%% %s", e.Percent, e.Message)
}

func (e SingerReloadProgress) String() string {
	if e.Done {
		return fmt.Sprintf("reloaded %s", e.Singer)
	}
	return fmt.Sprintf("reloading %s", e.Singer)
}
