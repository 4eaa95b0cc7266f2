// ABOUTME: MP3 reader using go-mp3
// ABOUTME: go-mp3 always emits 16-bit stereo and seeks in decoded byte offsets
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"
)

// mp3BytesPerFrame is 2 channels of int16
const mp3BytesPerFrame = 4

type mp3Reader struct {
	file    afero.File
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Reader(f afero.File) (*mp3Reader, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Reader{file: f, decoder: decoder}, nil
}

func (r *mp3Reader) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(r.buf) < numBytes {
		r.buf = make([]byte, numBytes)
	}
	buf := r.buf[:numBytes]

	n, err := io.ReadFull(r.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	n -= n % mp3BytesPerFrame

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return numSamples, err
}

func (r *mp3Reader) SampleRate() int { return r.decoder.SampleRate() }
func (r *mp3Reader) Channels() int   { return 2 }

func (r *mp3Reader) SeekFrame(frame int64) error {
	_, err := r.decoder.Seek(frame*mp3BytesPerFrame, io.SeekStart)
	return err
}

func (r *mp3Reader) Length() int64 {
	if n := r.decoder.Length(); n > 0 {
		return n / mp3BytesPerFrame
	}
	return 0
}

func (r *mp3Reader) Close() error {
	return r.file.Close()
}
