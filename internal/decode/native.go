// ABOUTME: In-process audio track built on a native PCM reader
// ABOUTME: Converts decoder output to the device format and timestamps each chunk
package decode

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/harperreed/termvid/internal/media"
)

// pcmReader yields interleaved samples in 24-bit range
type pcmReader interface {
	// Read fills samples and returns the count read; io.EOF at end
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// SeekFrame positions the reader at an absolute sample frame
	SeekFrame(frame int64) error
	// Length returns total sample frames, 0 when unknown
	Length() int64
	Close() error
}

// NativeAudio is an audio track decoded in-process. Returned frames share
// one buffer and are only valid until the next NextFrame call.
type NativeAudio struct {
	name      string
	src       pcmReader
	conv      *Converter
	format    media.AudioFormat
	chunk     []int32
	duration  media.Timestamp
	base      media.Timestamp
	outFrames int64
	eos       bool
}

func newNativeAudio(name string, src pcmReader, format media.AudioFormat, frameSamples int, fallback media.Timestamp) *NativeAudio {
	duration := fallback
	if n := src.Length(); n > 0 && src.SampleRate() > 0 {
		duration = time.Duration(n) * time.Second / time.Duration(src.SampleRate())
	}
	return &NativeAudio{
		name:     name,
		src:      src,
		conv:     NewConverter(src.SampleRate(), src.Channels(), format),
		format:   format,
		chunk:    make([]int32, frameSamples*src.Channels()),
		duration: duration,
	}
}

// Decoder names the in-process decoder in use
func (a *NativeAudio) Decoder() string {
	return a.name
}

// Duration returns the track length, zero if unknown
func (a *NativeAudio) Duration() media.Timestamp {
	return a.duration
}

// NextFrame decodes and converts the next chunk
func (a *NativeAudio) NextFrame() (media.Frame, error) {
	ch := a.src.Channels()
	for !a.eos {
		n, err := a.src.Read(a.chunk)
		n -= n % ch
		if n > 0 {
			data := a.conv.Convert(a.chunk[:n])
			if len(data) == 0 {
				continue
			}
			frame := media.Frame{Data: data, PTS: a.position()}
			a.outFrames += int64(len(data) / a.format.BytesPerFrame())
			return frame, nil
		}
		if err == nil || errors.Is(err, io.EOF) {
			a.eos = true
			break
		}
		return media.Frame{}, &media.DecodeError{Stream: "audio", Err: err}
	}
	return media.Frame{}, media.ErrEndOfStream
}

func (a *NativeAudio) position() media.Timestamp {
	return a.base + time.Duration(a.outFrames)*time.Second/time.Duration(a.format.SampleRate)
}

// Seek repositions the reader at target
func (a *NativeAudio) Seek(target media.Timestamp) error {
	if target < 0 || (a.duration > 0 && target > a.duration) {
		return &media.SeekError{Target: target, Err: fmt.Errorf("outside [0, %s]", media.FormatClock(a.duration))}
	}
	frame := int64(target.Seconds() * float64(a.src.SampleRate()))
	if err := a.src.SeekFrame(frame); err != nil {
		return &media.SeekError{Target: target, Err: err}
	}
	a.base = target
	a.outFrames = 0
	a.eos = false
	a.conv.Reset()
	return nil
}

// Flush drops interpolation state carried from before a discontinuity
func (a *NativeAudio) Flush() {
	a.conv.Reset()
}

// Close releases the reader
func (a *NativeAudio) Close() error {
	return a.src.Close()
}
