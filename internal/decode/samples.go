// ABOUTME: Sample conversion between decoder output and device encodings
// ABOUTME: int32 samples are held in 24-bit range and packed to s16le or f32le
package decode

import (
	"encoding/binary"
	"math"

	"github.com/harperreed/termvid/internal/media"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleToInt16 converts a 24-bit range sample to int16
func SampleToInt16(sample int32) int16 {
	return int16(clamp24(sample) >> 8)
}

// SampleToFloat32 converts a 24-bit range sample to [-1, 1)
func SampleToFloat32(sample int32) float32 {
	return float32(clamp24(sample)) / 8388608.0
}

// scaleTo24 shifts a sample of the given bit depth into 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}

func clamp24(s int32) int32 {
	if s > Max24Bit {
		return Max24Bit
	}
	if s < Min24Bit {
		return Min24Bit
	}
	return s
}

// EncodeSamples packs samples into dst using enc and returns the bytes written.
// dst must hold len(samples)*enc.BytesPerSample() bytes.
func EncodeSamples(dst []byte, samples []int32, enc media.Encoding) int {
	switch enc {
	case media.EncodingF32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(SampleToFloat32(s)))
		}
		return len(samples) * 4
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(SampleToInt16(s)))
		}
		return len(samples) * 2
	}
}

// Remix converts interleaved samples between channel layouts and returns the
// number of samples written to dst. Mono is duplicated to every output
// channel; downmix to mono averages; other layouts keep the shared channels
// and zero the rest.
func Remix(dst, src []int32, srcCh, dstCh int) int {
	if srcCh == dstCh {
		return copy(dst, src)
	}
	frames := len(src) / srcCh
	if limit := len(dst) / dstCh; frames > limit {
		frames = limit
	}

	for f := 0; f < frames; f++ {
		in := src[f*srcCh : (f+1)*srcCh]
		out := dst[f*dstCh : (f+1)*dstCh]
		switch {
		case srcCh == 1:
			for c := range out {
				out[c] = in[0]
			}
		case dstCh == 1:
			var sum int64
			for _, s := range in {
				sum += int64(s)
			}
			out[0] = int32(sum / int64(srcCh))
		default:
			for c := range out {
				if c < srcCh {
					out[c] = in[c]
				} else {
					out[c] = 0
				}
			}
		}
	}
	return frames * dstCh
}
