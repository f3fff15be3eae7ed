// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for audio file writers
package encode

// Encoder writes interleaved float32 samples to a destination
type Encoder interface {
	// Encode appends samples to the output
	Encode(samples []float32) error

	// Close flushes headers and releases resources
	Close() error
}

// SampleReader is pulled by the export functions until it returns 0
type SampleReader interface {
	Read(buffer []float32, offset, count int) int
}
