// ABOUTME: Generic decode pipeline producing timestamped frames from an ffmpeg subprocess
// ABOUTME: Supports reconfigure, seek by restarting at an offset, and flush
package decode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/harperreed/termvid/internal/media"
)

// stderrLimit caps how much ffmpeg diagnostic output is retained
const stderrLimit = 4096

// Pipeline decodes one track of a media file into frames described by S.
// Frames carry pts = start + n*FrameDuration where start is the last seek
// target. A Pipeline is owned by a single goroutine.
type Pipeline[S Spec] struct {
	ffmpeg   string
	path     string
	spec     S
	duration media.Timestamp
	recycle  bool

	start media.Timestamp
	index int64
	proc  *process
	eos   bool
	buf   []byte
}

// process is one running ffmpeg instance
type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	reader *bufio.Reader
	stderr *limitedBuffer
}

// NewPipeline creates a pipeline. The ffmpeg process starts lazily on the
// first NextFrame. When recycle is set, returned frames share one buffer and
// are only valid until the next NextFrame call.
func NewPipeline[S Spec](ffmpeg, path string, spec S, duration media.Timestamp, recycle bool) *Pipeline[S] {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Pipeline[S]{
		ffmpeg:   ffmpeg,
		path:     path,
		spec:     spec,
		duration: duration,
		recycle:  recycle,
	}
}

// Spec returns the current output specification.
func (p *Pipeline[S]) Spec() S {
	return p.spec
}

// Duration returns the probed media duration, zero if unknown.
func (p *Pipeline[S]) Duration() media.Timestamp {
	return p.duration
}

// Position returns the pts of the next frame to be produced.
func (p *Pipeline[S]) Position() media.Timestamp {
	return p.start + media.Timestamp(p.index)*p.spec.FrameDuration()
}

// Configure switches the output format. Decoding continues from the
// current position.
func (p *Pipeline[S]) Configure(spec S) {
	p.restartAt(p.Position())
	p.spec = spec
}

// NextFrame returns the next decoded frame, media.ErrEndOfStream when the
// track is exhausted, or a *media.DecodeError.
func (p *Pipeline[S]) NextFrame() (media.Frame, error) {
	if p.eos {
		return media.Frame{}, media.ErrEndOfStream
	}
	if p.proc == nil {
		at := p.Position()
		proc, err := p.spawn(at)
		if err != nil {
			return media.Frame{}, &media.DecodeError{Stream: p.spec.Stream(), Err: err}
		}
		p.start = at
		p.index = 0
		p.proc = proc
	}

	size := p.spec.FrameSize()
	var data []byte
	if p.recycle {
		if cap(p.buf) < size {
			p.buf = make([]byte, size)
		}
		data = p.buf[:size]
	} else {
		data = make([]byte, size)
	}

	n, err := io.ReadFull(p.proc.reader, data)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) && n >= p.spec.Granule():
		data = data[:n-n%p.spec.Granule()]
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return media.Frame{}, p.finish()
	default:
		return media.Frame{}, &media.DecodeError{Stream: p.spec.Stream(), Err: err}
	}

	frame := media.Frame{Data: data, PTS: p.Position()}
	p.index++
	return frame, nil
}

// finish reaps the exhausted process and classifies the exit.
func (p *Pipeline[S]) finish() error {
	proc := p.proc
	p.proc = nil
	werr := proc.cmd.Wait()
	proc.cancel()
	p.eos = true

	msg := strings.TrimSpace(proc.stderr.String())
	if werr != nil && msg != "" {
		return &media.DecodeError{Stream: p.spec.Stream(), Err: fmt.Errorf("%w: %s", werr, msg)}
	}
	if p.index == 0 && msg != "" {
		return &media.DecodeError{Stream: p.spec.Stream(), Err: errors.New(msg)}
	}
	return media.ErrEndOfStream
}

// Seek repositions the pipeline at target. On failure the pipeline keeps
// its previous position and a *media.SeekError is returned.
func (p *Pipeline[S]) Seek(target media.Timestamp) error {
	if target < 0 || (p.duration > 0 && target > p.duration) {
		return &media.SeekError{Target: target, Err: fmt.Errorf("outside [0, %s]", media.FormatClock(p.duration))}
	}

	proc, err := p.spawn(target)
	if err != nil {
		return &media.SeekError{Target: target, Err: err}
	}
	p.stop()
	p.proc = proc
	p.start = target
	p.index = 0
	p.eos = false
	return nil
}

// Flush drops decoded data buffered beyond the current position. A pipeline
// that has not produced anything since its last seek has nothing to drop.
func (p *Pipeline[S]) Flush() {
	p.eos = false
	if p.index == 0 {
		return
	}
	p.restartAt(p.Position())
}

// Close stops any running ffmpeg process.
func (p *Pipeline[S]) Close() error {
	p.stop()
	return nil
}

func (p *Pipeline[S]) restartAt(position media.Timestamp) {
	p.stop()
	p.start = position
	p.index = 0
	p.eos = false
}

func (p *Pipeline[S]) stop() {
	if p.proc == nil {
		return
	}
	p.proc.cancel()
	_ = p.proc.cmd.Wait()
	p.proc = nil
}

func (p *Pipeline[S]) spawn(at media.Timestamp) (*process, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if at > 0 {
		args = append(args, "-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64))
	}
	args = append(args, "-i", p.path)
	args = append(args, p.spec.OutputArgs()...)
	args = append(args, "-")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, p.ffmpeg, args...)
	stderr := &limitedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &process{
		cmd:    cmd,
		cancel: cancel,
		reader: bufio.NewReaderSize(stdout, 1<<16),
		stderr: stderr,
	}, nil
}

// limitedBuffer keeps the first limit bytes written to it
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
