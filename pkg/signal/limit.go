// ABOUTME: End-position limiter for a source
// ABOUTME: Ends the stream at a fixed sample position
package signal

// Limit ends a source at a fixed position
type Limit struct {
	source Source
	end    int
}

// NewLimit wraps source so that the stream ends at end
func NewLimit(source Source, end int) *Limit {
	return &Limit{source: source, end: end}
}

func (l *Limit) IsReady(position, count int) bool {
	if position >= l.end {
		return true
	}
	return l.source.IsReady(position, min(count, l.end-position))
}

func (l *Limit) Mix(position int, buffer []float32, index, count int) int {
	if position >= l.end {
		return position
	}
	return min(l.source.Mix(position, buffer, index, min(count, l.end-position)), l.end)
}
