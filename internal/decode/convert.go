// ABOUTME: Converter from native decoder output to the negotiated device format
// ABOUTME: Remix, resample and encode into a reusable byte buffer
package decode

import (
	"github.com/harperreed/termvid/internal/media"
)

// Converter turns interleaved 24-bit range samples at one layout into bytes
// of the target AudioFormat. Buffers are reused across calls.
type Converter struct {
	srcRate     int
	srcChannels int
	target      media.AudioFormat
	resampler   *Resampler
	mixed       []int32
	resampled   []int32
	out         []byte
}

// NewConverter creates a converter for the given source layout.
func NewConverter(srcRate, srcChannels int, target media.AudioFormat) *Converter {
	c := &Converter{
		srcRate:     srcRate,
		srcChannels: srcChannels,
		target:      target,
	}
	if srcRate != target.SampleRate {
		c.resampler = NewResampler(srcRate, target.SampleRate, target.Channels)
	}
	return c
}

// Convert returns target-format bytes for in. The returned slice is valid
// until the next call.
func (c *Converter) Convert(in []int32) []byte {
	frames := len(in) / c.srcChannels
	need := frames * c.target.Channels
	if cap(c.mixed) < need {
		c.mixed = make([]int32, need)
	}
	mixed := c.mixed[:Remix(c.mixed[:need], in, c.srcChannels, c.target.Channels)]

	samples := mixed
	if c.resampler != nil {
		capacity := c.resampler.OutputCapacity(len(mixed))
		if cap(c.resampled) < capacity {
			c.resampled = make([]int32, capacity)
		}
		n := c.resampler.Resample(mixed, c.resampled[:capacity])
		samples = c.resampled[:n]
	}

	size := len(samples) * c.target.Encoding.BytesPerSample()
	if cap(c.out) < size {
		c.out = make([]byte, size)
	}
	n := EncodeSamples(c.out[:size], samples, c.target.Encoding)
	return c.out[:n]
}

// Reset clears resampler state after a discontinuity.
func (c *Converter) Reset() {
	if c.resampler != nil {
		c.resampler.Reset()
	}
}
