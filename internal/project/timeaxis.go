// ABOUTME: Tick and millisecond conversion across tempo changes
// ABOUTME: Precomputes segment start times for each tempo entry
package project

import "sort"

type tempoSegment struct {
	tick    int
	ms      float64
	msPerTk float64
}

// TimeAxis converts between ticks and milliseconds for a tempo map
type TimeAxis struct {
	segments []tempoSegment
}

// NewTimeAxis builds a converter; tempos must be sorted by tick
func NewTimeAxis(resolution int, tempos []Tempo) *TimeAxis {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if len(tempos) == 0 {
		tempos = []Tempo{{Tick: 0, BPM: DefaultBPM}}
	}

	axis := &TimeAxis{}
	ms := 0.0
	for i, t := range tempos {
		seg := tempoSegment{
			tick:    t.Tick,
			msPerTk: 60000 / (t.BPM * float64(resolution)),
		}
		if i > 0 {
			prev := axis.segments[i-1]
			ms += float64(t.Tick-prev.tick) * prev.msPerTk
		} else {
			ms = float64(t.Tick) * seg.msPerTk
		}
		seg.ms = ms
		axis.segments = append(axis.segments, seg)
	}
	return axis
}

// TickToMs returns the time of tick in milliseconds
func (a *TimeAxis) TickToMs(tick int) float64 {
	i := sort.Search(len(a.segments), func(i int) bool {
		return a.segments[i].tick > tick
	}) - 1
	i = max(i, 0)
	seg := a.segments[i]
	return seg.ms + float64(tick-seg.tick)*seg.msPerTk
}

// MsToTick returns the tick at ms, rounded down
func (a *TimeAxis) MsToTick(ms float64) int {
	i := sort.Search(len(a.segments), func(i int) bool {
		return a.segments[i].ms > ms
	}) - 1
	i = max(i, 0)
	seg := a.segments[i]
	return seg.tick + int((ms-seg.ms)/seg.msPerTk+1e-9)
}
