package mfcc

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/naglis/aeneas-sub000/errs"
)

// LoadPCM decodes a 16-bit mono WAV stream and normalizes each sample
// to a float64 in [-1, 1]. It is the only place in the module that
// touches a concrete audio container; everything downstream operates on
// the returned sample slice and sample rate.
func LoadPCM(r io.Reader) (samples []float64, sampleRate int, err error) {
	ra, ok := r.(readerAtSeeker)
	if !ok {
		return nil, 0, fmt.Errorf("%w: WAV decoding requires a ReadSeeker", errs.ErrFormat)
	}
	dec := wav.NewDecoder(ra)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid WAV file", errs.ErrFormat)
	}

	buf, decErr := dec.FullPCMBuffer()
	if decErr != nil {
		return nil, 0, fmt.Errorf("%w: decoding WAV PCM buffer: %v", errs.ErrFormat, decErr)
	}
	if buf.Format.NumChannels != 1 {
		return nil, 0, fmt.Errorf("%w: expected mono audio, got %d channels", errs.ErrFormat, buf.Format.NumChannels)
	}

	fullScale := float64(int(1) << uint(buf.SourceBitDepth-1))
	samples = make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float64(s) / fullScale
	}
	return samples, buf.Format.SampleRate, nil
}

// readerAtSeeker is what wav.NewDecoder actually requires
// (io.ReadSeeker); named locally so callers can pass an *os.File
// directly without importing go-audio's package aliases.
type readerAtSeeker interface {
	io.Reader
	io.Seeker
}
