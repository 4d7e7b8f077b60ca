package vad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/timeval"
)

func matrixFromEnergy(t *testing.T, energy []float64) *mfcc.Matrix {
	t.Helper()
	const nCoeffs = 3
	data := mat.NewDense(nCoeffs, len(energy), nil)
	for i, e := range energy {
		data.Set(0, i, e)
	}
	m := mfcc.NewMatrix(data)
	m.SetHeadMiddleTail(0, len(energy), 0)
	return m
}

func TestRunClassifiesHighEnergyAsSpeech(t *testing.T) {
	cfg := config.Default()
	cfg.VADLogEnergyThreshold = 0.5
	cfg.VADMinNonspeechLength = "0.000"
	cfg.VADExtendSpeechBefore = "0.000"
	cfg.VADExtendSpeechAfter = "0.000"
	d := NewDetector(cfg)

	energy := []float64{0, 0, 10, 10, 10, 0, 0}
	speech := d.Run(matrixFromEnergy(t, energy))
	require.Len(t, speech, len(energy))
	assert.Equal(t, []bool{false, false, true, true, true, false, false}, speech)
}

func TestMergeShortNonspeechRunsReclassifiesMicroPauses(t *testing.T) {
	speech := []bool{true, true, false, true, true, true, false, false, false, true}
	mergeShortNonspeechRuns(speech, 2)
	// the lone false at index 2 is shorter than 2 frames, so it is
	// absorbed into speech; the 3-long false run at 6..8 survives.
	assert.Equal(t, []bool{true, true, true, true, true, true, false, false, false, true}, speech)
}

func TestPadSpeechRunsExtendsAndClips(t *testing.T) {
	speech := []bool{false, false, true, false, false}
	padSpeechRuns(speech, 2, 1)
	assert.Equal(t, []bool{true, true, true, true, false}, speech)
}

func TestIntervalsAndNonspeechIntervalsPartitionTheSequence(t *testing.T) {
	speech := []bool{true, true, false, false, true, false}
	runs := Intervals(speech)
	require.Equal(t, []FrameInterval{{0, 2}, {4, 5}}, runs)

	nonspeech := NonspeechIntervals(speech)
	require.Equal(t, []FrameInterval{{2, 4}, {5, 6}}, nonspeech)
}

func TestToTimeIntervalsScalesByWindowShift(t *testing.T) {
	shift := timeval.MustFromString("0.040")
	frames := []FrameInterval{{Begin: 0, End: 3}, {Begin: 5, End: 7}}
	out := ToTimeIntervals(frames, shift)
	require.Len(t, out, 2)
	assert.Equal(t, "0.000", out[0].Begin.String())
	assert.Equal(t, "0.120", out[0].End.String())
	assert.Equal(t, "0.200", out[1].Begin.String())
	assert.Equal(t, "0.280", out[1].End.String())
}

func TestRunReturnsNilForEmptyMiddleRegion(t *testing.T) {
	cfg := config.Default()
	d := NewDetector(cfg)
	m := mfcc.NewMatrix(&mat.Dense{})
	assert.Nil(t, d.Run(m))
}
