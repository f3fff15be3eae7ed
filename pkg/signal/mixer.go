// ABOUTME: Additive mixer over several sources
// ABOUTME: Ready only when every input is ready; cursor is the furthest input
package signal

// Mixer sums a fixed set of sources
type Mixer struct {
	sources []Source
}

// NewMixer creates a mixer over sources
func NewMixer(sources ...Source) *Mixer {
	return &Mixer{sources: sources}
}

// Sources returns the mixer inputs
func (m *Mixer) Sources() []Source {
	return m.sources
}

func (m *Mixer) IsReady(position, count int) bool {
	for _, s := range m.sources {
		if !s.IsReady(position, count) {
			return false
		}
	}
	return true
}

func (m *Mixer) Mix(position int, buffer []float32, index, count int) int {
	newPosition := position
	for _, s := range m.sources {
		newPosition = max(newPosition, s.Mix(position, buffer, index, count))
	}
	return newPosition
}
