// ABOUTME: Progressively rendered block of audio placed on the bus timeline
// ABOUTME: Becomes ready once its producer publishes the samples
package signal

import "sync/atomic"

// Part is a block of interleaved samples at a fixed bus offset whose
// contents are produced asynchronously. Until published its length is
// unknown, so every range reaching past the offset is not ready.
type Part struct {
	offset  int
	samples atomic.Pointer[[]float32]
}

// NewPart creates an unpublished part starting at offset
func NewPart(offset int) *Part {
	return &Part{offset: offset}
}

// Offset returns the first sample position covered by the part
func (p *Part) Offset() int { return p.offset }

// Publish installs rendered samples
func (p *Part) Publish(samples []float32) {
	p.samples.Store(&samples)
}

// Published reports whether the part has been rendered
func (p *Part) Published() bool {
	return p.samples.Load() != nil
}

// End returns the position after the last sample, or -1 before publish
func (p *Part) End() int {
	loaded := p.samples.Load()
	if loaded == nil {
		return -1
	}
	return p.offset + len(*loaded)
}

func (p *Part) IsReady(position, count int) bool {
	if position+count <= p.offset {
		return true
	}
	return p.Published()
}

func (p *Part) Mix(position int, buffer []float32, index, count int) int {
	loaded := p.samples.Load()
	if loaded == nil {
		// Only reached for ranges before the offset.
		return position + count
	}
	data := *loaded
	end := p.offset + len(data)
	start := max(position, p.offset)
	stop := min(position+count, end)
	for i := start; i < stop; i++ {
		buffer[index+i-position] += data[i-p.offset]
	}
	return max(position, min(position+count, end))
}
