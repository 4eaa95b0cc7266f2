// ABOUTME: Audio output using oto library
// ABOUTME: Opens the device in the negotiated format and lets it pull from the renderer
package player

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/media"
)

// Output owns the device context and the player pulling from a reader
type Output struct {
	otoCtx *oto.Context
	player *oto.Player
	format media.AudioFormat
}

// otoFormat maps a sample encoding onto oto's formats
func otoFormat(enc media.Encoding) oto.Format {
	if enc == media.EncodingF32 {
		return oto.FormatFloat32LE
	}
	return oto.FormatSignedInt16LE
}

// OpenOutput opens the default device and starts pulling from source.
// Any failure is returned as a *media.DeviceError.
func OpenOutput(format media.AudioFormat, buffer time.Duration, source io.Reader) (*Output, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, &media.DeviceError{Err: fmt.Errorf("invalid format %s", format)}
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       otoFormat(format.Encoding),
		BufferSize:   buffer,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, &media.DeviceError{Err: fmt.Errorf("failed to create oto context: %w", err)}
	}
	<-readyChan
	if err := ctx.Err(); err != nil {
		return nil, &media.DeviceError{Err: err}
	}

	player := ctx.NewPlayer(source)
	player.Play()

	log.Infof("Audio output initialized: %s", format)

	return &Output{
		otoCtx: ctx,
		player: player,
		format: format,
	}, nil
}

// Format returns the negotiated device format
func (o *Output) Format() media.AudioFormat {
	return o.format
}

// Close stops the player, after which the source is no longer read
func (o *Output) Close() error {
	var errs []error
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close player: %w", err))
		}
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			errs = append(errs, fmt.Errorf("suspend device: %w", err))
		}
	}
	return errors.Join(errs...)
}
