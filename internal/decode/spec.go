// ABOUTME: Output specifications for the generic decode pipeline
// ABOUTME: VideoSpec emits packed RGB pictures, AudioSpec emits device-format PCM chunks
package decode

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/termvid/internal/media"
)

// Spec describes the frames a Pipeline produces. Each instantiation of
// Pipeline is parameterised by one Spec type.
type Spec interface {
	// Stream names the track for errors and logs
	Stream() string
	// OutputArgs are the ffmpeg arguments placed between the input and "-"
	OutputArgs() []string
	// FrameSize is the byte size of one full frame
	FrameSize() int
	// FrameDuration is the presentation interval of one full frame
	FrameDuration() time.Duration
	// Granule is the smallest usable unit; a trailing partial frame is kept
	// if it holds at least one granule
	Granule() int
}

// VideoSpec scales the picture to Width x Height at a constant FrameRate.
type VideoSpec struct {
	media.VideoFormat
}

func (VideoSpec) Stream() string { return "video" }

func (s VideoSpec) OutputArgs() []string {
	return []string{
		"-an", "-sn",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=fast_bilinear", s.Width, s.Height),
		"-r", strconv.FormatFloat(s.FrameRate, 'f', -1, 64),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
	}
}

func (s VideoSpec) Granule() int { return s.FrameSize() }

// AudioSpec converts audio to the device format in chunks of FrameSamples
// sample frames.
type AudioSpec struct {
	Format       media.AudioFormat
	FrameSamples int
}

func (AudioSpec) Stream() string { return "audio" }

func (s AudioSpec) OutputArgs() []string {
	codec := "s16le"
	if s.Format.Encoding == media.EncodingF32 {
		codec = "f32le"
	}
	return []string{
		"-vn", "-sn",
		"-ac", strconv.Itoa(s.Format.Channels),
		"-ar", strconv.Itoa(s.Format.SampleRate),
		"-f", codec,
	}
}

func (s AudioSpec) FrameSize() int {
	return s.FrameSamples * s.Format.BytesPerFrame()
}

func (s AudioSpec) FrameDuration() time.Duration {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(s.FrameSamples) * time.Second / time.Duration(s.Format.SampleRate)
}

func (s AudioSpec) Granule() int { return s.Format.BytesPerFrame() }
