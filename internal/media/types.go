// ABOUTME: Core media types shared by decoders, the clock, and renderers
// ABOUTME: Timestamps, frames, and the negotiated video/audio output formats
package media

import (
	"fmt"
	"time"
)

// Timestamp is a position on the media timeline measured from media start.
// It is never negative.
type Timestamp = time.Duration

// Sub returns a-b, saturating at zero.
func Sub(a, b Timestamp) Timestamp {
	if b >= a {
		return 0
	}
	return a - b
}

// Clamp restricts t to [0, limit]. A non-positive limit means unknown
// duration and only the lower bound applies.
func Clamp(t, limit Timestamp) Timestamp {
	if t < 0 {
		return 0
	}
	if limit > 0 && t > limit {
		return limit
	}
	return t
}

// FormatClock renders a timestamp as MM:SS.
func FormatClock(t Timestamp) string {
	secs := int(t / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Frame is one decoded unit: a video picture or a run of audio samples.
type Frame struct {
	Data []byte
	PTS  Timestamp
}

// Len returns the payload size in bytes.
func (f Frame) Len() int {
	return len(f.Data)
}

// VideoFormat is the pixel layout produced by the video pipeline.
// Pixels are packed RGB triples, row-major.
type VideoFormat struct {
	Width     int
	Height    int
	FrameRate float64
}

// FrameSize returns the byte size of one frame.
func (f VideoFormat) FrameSize() int {
	return f.Width * f.Height * 3
}

// FrameDuration returns the presentation interval of one frame.
func (f VideoFormat) FrameDuration() time.Duration {
	if f.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / f.FrameRate)
}

// Encoding identifies the sample representation of an audio stream.
type Encoding int

const (
	EncodingS16 Encoding = iota
	EncodingF32
)

// ParseEncoding maps a config string to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "s16", "S16", "":
		return EncodingS16, nil
	case "f32", "F32":
		return EncodingF32, nil
	default:
		return 0, fmt.Errorf("unknown sample encoding %q", s)
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingS16:
		return "s16"
	case EncodingF32:
		return "f32"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the size of one sample of one channel.
func (e Encoding) BytesPerSample() int {
	if e == EncodingF32 {
		return 4
	}
	return 2
}

// AudioFormat is the sample layout negotiated with the output device.
type AudioFormat struct {
	SampleRate int
	Channels   int
	Encoding   Encoding
}

// BytesPerFrame returns the size of one sample frame across all channels.
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * f.Encoding.BytesPerSample()
}

// DurationOf returns the playback duration of n bytes in this format.
func (f AudioFormat) DurationOf(n int) time.Duration {
	bpf := f.BytesPerFrame()
	if bpf == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := n / bpf
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%dHz %dch %s", f.SampleRate, f.Channels, f.Encoding)
}
