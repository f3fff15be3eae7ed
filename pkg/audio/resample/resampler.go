// ABOUTME: Whole-buffer resampler for decoded clips
// ABOUTME: Deinterleaves, resamples each channel and interleaves again
package resample

import "github.com/oov/audio/resampler"

// Quality is the resampler quality passed to the sinc filter (0-10)
const Quality = 10

// Resampler converts interleaved float32 audio between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
	}
}

// OutputSamplesNeeded estimates the output size for a given input size
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(int64(inputFrames) * int64(r.outputRate) / int64(r.inputRate))
	return outputFrames * r.channels
}

// Resample converts a whole interleaved buffer. Equal rates return a copy.
func (r *Resampler) Resample(input []float32) []float32 {
	if r.inputRate == r.outputRate || len(input) == 0 {
		return append([]float32(nil), input...)
	}

	frames := len(input) / r.channels
	capacity := r.OutputSamplesNeeded(len(input))/r.channels + 64
	rs := resampler.New(r.channels, r.inputRate, r.outputRate, Quality)

	planarIn := make([]float32, frames)
	planarOut := make([][]float32, r.channels)
	written := -1
	for ch := 0; ch < r.channels; ch++ {
		for i := 0; i < frames; i++ {
			planarIn[i] = input[i*r.channels+ch]
		}
		out := make([]float32, capacity)
		consumed, total := 0, 0
		for consumed < frames {
			if total == len(out) {
				out = append(out, make([]float32, capacity/2+64)...)
			}
			read, wrote := rs.ProcessFloat32(ch, planarIn[consumed:], out[total:])
			if read == 0 && wrote == 0 {
				break
			}
			consumed += read
			total += wrote
		}
		planarOut[ch] = out
		if written < 0 || total < written {
			written = total
		}
	}

	output := make([]float32, written*r.channels)
	for i := 0; i < written; i++ {
		for ch := 0; ch < r.channels; ch++ {
			output[i*r.channels+ch] = planarOut[ch][i]
		}
	}
	return output
}
