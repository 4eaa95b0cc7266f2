// ABOUTME: Linear resampler for converting decoder output to the device rate
// ABOUTME: Carries the last input frame across chunks so interpolation stays continuous
package decode

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastSample []int32 // one sample per channel
	primed     bool
}

// NewResampler creates a new resampler
func NewResampler(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]int32, channels),
	}
}

// Resample converts interleaved input at inputRate into output at outputRate
// and returns the number of samples written. Output must be sized with
// OutputCapacity or input will be lost.
func (r *Resampler) Resample(input []int32, output []int32) int {
	ch := r.channels
	inputFrames := len(input) / ch
	if inputFrames == 0 {
		return 0
	}
	outputFrames := len(output) / ch

	// Virtual frame 0 is the carried frame from the previous chunk when primed.
	base := 0
	if r.primed {
		base = -1
	}
	at := func(frame, c int) float64 {
		if frame < 0 {
			return float64(r.lastSample[c])
		}
		return float64(input[frame*ch+c])
	}

	if r.position < 0 {
		r.position = 0
	}

	outIdx := 0
	for outIdx < outputFrames {
		whole := math.Floor(r.position)
		idx := int(whole) + base
		if idx+1 >= inputFrames {
			break
		}
		frac := r.position - whole
		for c := 0; c < ch; c++ {
			a := at(idx, c)
			b := at(idx+1, c)
			output[outIdx*ch+c] = int32(a + (b-a)*frac)
		}
		outIdx++
		r.position += r.ratio
	}

	r.position -= float64(inputFrames - 1 - base)
	copy(r.lastSample, input[(inputFrames-1)*ch:inputFrames*ch])
	r.primed = true

	return outIdx * ch
}

// Reset drops interpolation state, used after a seek
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// OutputCapacity returns the output sample count that always suffices for
// inputSamples of input.
func (r *Resampler) OutputCapacity(inputSamples int) int {
	inputFrames := inputSamples/r.channels + 1
	return (int(math.Ceil(float64(inputFrames)/r.ratio)) + 1) * r.channels
}
