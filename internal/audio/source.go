// Package audio reads normalized 16 kHz mono WAV sources as fixed-size
// float32 windows for the transcription pipelines.
package audio

import (
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source is an open, decoded mono PCM waveform. It is owned by the
// pipeline that opened it and must be closed exactly once.
type Source struct {
	f   *os.File
	dec *wav.Decoder
	buf *gaudio.IntBuffer

	sampleRate  int
	totalFrames int
}

// Open opens a WAV file and validates it is mono PCM.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek pcm data: %w", err)
	}
	if dec.NumChans != 1 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %d channels; the normalizer must produce mono", path, dec.NumChans)
	}
	bytesPerFrame := int(dec.BitDepth) / 8 * int(dec.NumChans)
	if bytesPerFrame == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: invalid bit depth %d", path, dec.BitDepth)
	}
	return &Source{
		f:           f,
		dec:         dec,
		sampleRate:  int(dec.SampleRate),
		totalFrames: int(dec.PCMLen()) / bytesPerFrame,
	}, nil
}

// SampleRate returns the source sample rate in Hz.
func (s *Source) SampleRate() int { return s.sampleRate }

// TotalFrames returns the number of PCM frames in the source.
func (s *Source) TotalFrames() int { return s.totalFrames }

// ReadChunk reads up to frames samples, converted to [-1,1] float32.
// A zero-length read reports io.EOF; the last chunk may be shorter
// than requested.
func (s *Source) ReadChunk(frames int) ([]float32, error) {
	if s.buf == nil || len(s.buf.Data) != frames {
		s.buf = &gaudio.IntBuffer{
			Data:           make([]int, frames),
			Format:         &gaudio.Format{NumChannels: 1, SampleRate: s.sampleRate},
			SourceBitDepth: int(s.dec.BitDepth),
		}
	}
	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return nil, fmt.Errorf("read chunk: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}
	scale := float32(int(1) << (s.dec.BitDepth - 1))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(s.buf.Data[i]) / scale
	}
	return out, nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}

// NumChunks returns ceil(totalFrames/chunkFrames).
func NumChunks(totalFrames, chunkFrames int) int {
	if chunkFrames <= 0 {
		return 0
	}
	return (totalFrames + chunkFrames - 1) / chunkFrames
}
