// ABOUTME: Bus adapter between a signal Source and an output device
// ABOUTME: Injects silence while the source is not ready and tracks waiting time
package signal

import "sync/atomic"

// BusAdapter adapts one Source into a fixed-format pull stream.
//
// Read is called from the audio callback thread; Waited and IsWaiting may
// be read concurrently from other goroutines.
type BusAdapter struct {
	source    Source
	position  atomic.Int64
	waited    atomic.Int64
	isWaiting atomic.Bool
}

// NewBusAdapter creates an adapter over source starting at position 0
func NewBusAdapter(source Source) *BusAdapter {
	return &BusAdapter{source: source}
}

// Read fills buffer[offset:offset+count] and returns the number of samples
// the stream advanced. Silence is returned while the source is not ready.
func (a *BusAdapter) Read(buffer []float32, offset, count int) int {
	clear(buffer[offset : offset+count])

	position := int(a.position.Load())
	if !a.source.IsReady(position, count) {
		a.waited.Add(int64(count))
		a.isWaiting.Store(true)
		return count
	}

	newPosition := a.source.Mix(position, buffer, offset, count)
	advanced := max(0, newPosition-position)
	a.position.Store(int64(newPosition))
	a.isWaiting.Store(false)
	return advanced
}

// SetPosition seeks the cursor and resets the waited counter
func (a *BusAdapter) SetPosition(position int) {
	a.position.Store(int64(position))
	a.waited.Store(0)
}

// Position returns the current stream cursor
func (a *BusAdapter) Position() int {
	return int(a.position.Load())
}

// Waited returns the samples of silence injected since the last seek
func (a *BusAdapter) Waited() int {
	return int(a.waited.Load())
}

// IsWaiting reports whether the last Read found the source not ready
func (a *BusAdapter) IsWaiting() bool {
	return a.isWaiting.Load()
}
