package sd

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
	"github.com/naglis/aeneas-sub000/tts"
)

// writeToneWAV writes a mono 16-bit WAV of the given duration: silence
// for silenceBefore seconds, then a sine tone for the remainder.
func writeToneWAV(t *testing.T, sampleRate int, silenceBefore, total float64) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "sd-test-*.wav")
	require.NoError(t, err)
	defer tmp.Close()

	n := int(total * float64(sampleRate))
	silenceSamples := int(silenceBefore * float64(sampleRate))
	data := make([]int, n)
	for i := silenceSamples; i < n; i++ {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return tmp.Name()
}

func loadMatrix(t *testing.T, cfg config.RuntimeConfiguration, path string) *mfcc.Matrix {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	samples, _, err := mfcc.LoadPCM(f)
	require.NoError(t, err)
	e, err := mfcc.NewExtractor(cfg, logging.Nop)
	require.NoError(t, err)
	m, err := e.Extract(samples)
	require.NoError(t, err)
	return m
}

func TestDetectHeadReturnsZeroWhenNoSpeech(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000

	// build a silent (all-zero) 2 second real wave: no speech anywhere.
	silentPath := writeToneWAV(t, cfg.SampleRate, 999, 2.0)
	real := loadMatrix(t, cfg, silentPath)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	d, err := NewDetector(cfg, logging.Nop, synth)
	require.NoError(t, err)

	fragments := []*textmodel.TextFragment{{Identifier: "f1", Lines: []string{"hello world"}}}
	head, err := d.DetectHead(context.Background(), real, fragments, nil, nil)
	require.NoError(t, err)
	assert.True(t, head.IsZero())
}

func TestDetectIntervalDegenerateReturnsZeroZero(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	silentPath := writeToneWAV(t, cfg.SampleRate, 999, 1.0)
	real := loadMatrix(t, cfg, silentPath)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	d, err := NewDetector(cfg, logging.Nop, synth)
	require.NoError(t, err)

	fragments := []*textmodel.TextFragment{{Identifier: "f1", Lines: []string{"hello"}}}
	// silence yields head = tail = 0, so a zero audio length leaves
	// end = 0 - 0, which is not after begin.
	iv, err := d.DetectInterval(context.Background(), real, timeval.Zero, fragments, Options{})
	require.NoError(t, err)
	assert.True(t, iv.Begin.IsZero())
	assert.True(t, iv.End.IsZero())
}
