// ABOUTME: Error taxonomy for opening, decoding, seeking and audio devices
// ABOUTME: Sentinels plus typed errors usable with errors.Is and errors.As
package media

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream is returned by NextFrame when the stream is exhausted.
	ErrEndOfStream = errors.New("end of stream")
	// ErrNotFound means the media path does not exist.
	ErrNotFound = errors.New("media not found")
	// ErrUnsupported means no decodable stream of the requested kind exists.
	ErrUnsupported = errors.New("unsupported media")
)

// OpenError is fatal at startup.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// DecodeError is a transient failure of one decode step. The controller
// pauses on it and the audio renderer mutes.
type DecodeError struct {
	Stream string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stream, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SeekError means the decoder rejected a seek. The seek becomes a no-op.
type SeekError struct {
	Target Timestamp
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("seek to %s: %v", FormatClock(e.Target), e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// DeviceError means the audio output could not be opened. Playback
// continues without audio.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// TerminalError is a fatal failure to draw ("render") or read ("input").
type TerminalError struct {
	Op  string
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal %s: %v", e.Op, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }
