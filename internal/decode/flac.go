// ABOUTME: FLAC reader using mewkiz/flac
// ABOUTME: Interleaves subframes and carries partial blocks across reads
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/spf13/afero"
)

type flacReader struct {
	file     afero.File
	stream   *flac.Stream
	channels int
	bitDepth int
	pending  []int32
	block    []int32
	skip     int64
}

func newFLACReader(f afero.File) (*flacReader, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	return &flacReader{
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		bitDepth: int(stream.Info.BitsPerSample),
	}, nil
}

func (r *flacReader) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(r.pending) == 0 {
			if err := r.parseBlock(); err != nil {
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

// parseBlock decodes the next FLAC frame into pending, honoring skip
func (r *flacReader) parseBlock() error {
	frame, err := r.stream.ParseNext()
	if err != nil {
		return err
	}

	size := int(frame.BlockSize) * r.channels
	if cap(r.block) < size {
		r.block = make([]int32, size)
	}
	block := r.block[:size]
	for i := 0; i < int(frame.BlockSize); i++ {
		for ch := 0; ch < r.channels; ch++ {
			block[i*r.channels+ch] = scaleTo24(frame.Subframes[ch].Samples[i], r.bitDepth)
		}
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

func (r *flacReader) SampleRate() int { return int(r.stream.Info.SampleRate) }
func (r *flacReader) Channels() int   { return r.channels }

func (r *flacReader) SeekFrame(frame int64) error {
	start, err := r.stream.Seek(uint64(frame))
	if err != nil {
		return err
	}
	r.pending = nil
	r.skip = frame - int64(start)
	if r.skip < 0 {
		r.skip = 0
	}
	return nil
}

func (r *flacReader) Length() int64 {
	return int64(r.stream.Info.NSamples)
}

func (r *flacReader) Close() error {
	r.stream.Close()
	return r.file.Close()
}
