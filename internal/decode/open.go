// ABOUTME: Track selection for a media file
// ABOUTME: Picks native or ffmpeg decoding for audio and builds the scaled video pipeline
package decode

import (
	"path/filepath"
	"strings"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/media"
)

// AudioTrack is a decoded audio stream in the device format
type AudioTrack interface {
	NextFrame() (media.Frame, error)
	Seek(target media.Timestamp) error
	Flush()
	Duration() media.Timestamp
	Close() error
}

// AudioOptions selects how an audio track is decoded
type AudioOptions struct {
	FFmpeg       string
	Format       media.AudioFormat
	FrameSamples int
	Native       bool
}

// OpenAudio opens the audio track of path. Without an audio stream it
// returns an OpenError wrapping media.ErrUnsupported.
func OpenAudio(path string, info Info, opts AudioOptions) (AudioTrack, error) {
	if info.Audio == nil {
		return nil, &media.OpenError{Path: path, Err: media.ErrUnsupported}
	}
	if opts.FrameSamples <= 0 {
		opts.FrameSamples = 1024
	}

	if opts.Native {
		track, err := openNative(path, opts, info.Duration)
		if err == nil && track != nil {
			log.Infof("Decoding audio in-process with %s", track.Decoder())
			return track, nil
		}
		if err != nil {
			log.Warnf("Native audio decode unavailable, using ffmpeg: %v", err)
		}
	}

	spec := AudioSpec{Format: opts.Format, FrameSamples: opts.FrameSamples}
	return NewPipeline(opts.FFmpeg, path, spec, info.Duration, true), nil
}

// openNative returns nil without error when the extension has no native decoder
func openNative(path string, opts AudioOptions, duration media.Timestamp) (*NativeAudio, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".flac" && ext != ".opus" {
		return nil, nil
	}

	f, err := filesystem.API().Open(path)
	if err != nil {
		return nil, err
	}

	var src pcmReader
	switch ext {
	case ".mp3":
		src, err = newMP3Reader(f)
	case ".flac":
		src, err = newFLACReader(f)
	case ".opus":
		src, err = newOpusReader(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return newNativeAudio(ext[1:], src, opts.Format, opts.FrameSamples, duration), nil
}

// Video is the scaled video track of a file
type Video struct {
	*Pipeline[VideoSpec]
	stream VideoStream
}

// OpenVideo opens the video track scaled to width x height cells.
func OpenVideo(ffmpeg, path string, info Info, width, height int) (*Video, error) {
	if info.Video == nil {
		return nil, &media.OpenError{Path: path, Err: media.ErrUnsupported}
	}
	spec := VideoSpec{media.VideoFormat{
		Width:     max(width, 1),
		Height:    max(height, 1),
		FrameRate: info.Video.FrameRate,
	}}
	return &Video{
		Pipeline: NewPipeline(ffmpeg, path, spec, info.Duration, false),
		stream:   *info.Video,
	}, nil
}

// SetOutputSize rescales future frames. Zero or unchanged sizes are ignored.
func (v *Video) SetOutputSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	spec := v.Spec()
	if spec.Width == width && spec.Height == height {
		return
	}
	spec.Width = width
	spec.Height = height
	v.Configure(spec)
}

// FrameRate returns the source frame rate
func (v *Video) FrameRate() float64 {
	return v.stream.FrameRate
}

// Dimensions returns the source picture size
func (v *Video) Dimensions() (int, int) {
	return v.stream.Width, v.stream.Height
}
