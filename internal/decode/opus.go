// ABOUTME: Ogg Opus reader using hraban/opus
// ABOUTME: Output is always 48kHz; the channel count comes from the OpusHead packet
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/hraban/opus.v2"
)

const (
	opusSampleRate = 48000
	// 120ms at 48kHz, the largest Opus packet
	opusMaxFrame = 5760
)

var opusHeadMagic = []byte("OpusHead")

type opusReader struct {
	file     afero.File
	stream   *opus.Stream
	channels int
	pcm      []int16
	pending  []int32
	block    []int32
	skip     int64
}

func newOpusReader(f afero.File) (*opusReader, error) {
	channels, err := readOpusChannels(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind opus file: %w", err)
	}
	stream, err := opus.NewStream(nopCloser{f})
	if err != nil {
		return nil, fmt.Errorf("failed to decode Opus: %w", err)
	}
	return &opusReader{
		file:     f,
		stream:   stream,
		channels: channels,
		pcm:      make([]int16, opusMaxFrame*channels),
	}, nil
}

// readOpusChannels finds the OpusHead identification header in the first
// Ogg page and returns its channel count field.
func readOpusChannels(r io.Reader) (int, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read opus header: %w", err)
	}
	head = head[:n]

	idx := bytes.Index(head, opusHeadMagic)
	if idx < 0 || idx+9 >= len(head) {
		return 0, errors.New("missing OpusHead packet")
	}
	channels := int(head[idx+9])
	if channels == 0 {
		return 0, errors.New("opus header reports zero channels")
	}
	return channels, nil
}

func (r *opusReader) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(r.pending) == 0 {
			if err := r.decodePacket(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
			continue
		}
		c := copy(samples[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	return n, nil
}

func (r *opusReader) decodePacket() error {
	perChannel, err := r.stream.Read(r.pcm)
	if err != nil {
		return err
	}
	if perChannel == 0 {
		return io.EOF
	}

	size := perChannel * r.channels
	if cap(r.block) < size {
		r.block = make([]int32, size)
	}
	block := r.block[:size]
	for i := range block {
		block[i] = SampleFromInt16(r.pcm[i])
	}

	if r.skip > 0 {
		drop := int(r.skip) * r.channels
		if drop > len(block) {
			drop = len(block)
		}
		block = block[drop:]
		r.skip -= int64(drop / r.channels)
	}
	r.pending = block
	return nil
}

func (r *opusReader) SampleRate() int { return opusSampleRate }
func (r *opusReader) Channels() int   { return r.channels }

// SeekFrame reopens the stream and discards frames up to the target
func (r *opusReader) SeekFrame(frame int64) error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	stream, err := opus.NewStream(nopCloser{r.file})
	if err != nil {
		return err
	}
	_ = r.stream.Close()
	r.stream = stream
	r.pending = nil
	r.skip = frame
	return nil
}

func (r *opusReader) Length() int64 { return 0 }

func (r *opusReader) Close() error {
	_ = r.stream.Close()
	return r.file.Close()
}

// nopCloser keeps opus.Stream.Close from closing the shared file
type nopCloser struct {
	io.Reader
}
