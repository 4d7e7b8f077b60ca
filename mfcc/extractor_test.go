package mfcc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/logging"
)

func sineWave(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestExtractProducesExpectedFrameCount(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	e, err := NewExtractor(cfg, logging.Nop)
	require.NoError(t, err)

	samples := sineWave(440, cfg.SampleRate, cfg.SampleRate) // 1 second
	m, err := e.Extract(samples)
	require.NoError(t, err)

	winSamples := e.windowSamples()
	shiftSamples := e.shiftSamples()
	want := (len(samples)-winSamples)/shiftSamples + 1
	assert.Equal(t, want, m.AllLength())
	assert.Equal(t, cfg.MFCCSize, m.NumCoeffs())
}

func TestExtractRejectsTooShortAudio(t *testing.T) {
	cfg := config.Default()
	e, err := NewExtractor(cfg, logging.Nop)
	require.NoError(t, err)

	_, err = e.Extract(make([]float64, 10))
	assert.Error(t, err)
}

func TestMatrixReversedRoundTrips(t *testing.T) {
	cfg := config.Default()
	e, err := NewExtractor(cfg, logging.Nop)
	require.NoError(t, err)
	samples := sineWave(220, cfg.SampleRate, cfg.SampleRate)
	m, err := e.Extract(samples)
	require.NoError(t, err)

	back := m.Reversed().Reversed()
	for f := 0; f < m.AllLength(); f++ {
		assert.Equal(t, m.Column(f), back.Column(f))
	}
}
