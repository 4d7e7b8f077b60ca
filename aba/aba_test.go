package aba

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/syncmap"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
)

// matrixFromEnergy builds a real-wave matrix whose middle region's
// coefficient-0 row is the given energies, with the given head/tail
// padding.
func matrixFromEnergy(head int, energy []float64, tail int) *mfcc.Matrix {
	total := head + len(energy) + tail
	data := mat.NewDense(3, total, nil)
	for i, e := range energy {
		data.Set(0, head+i, e)
	}
	m := mfcc.NewMatrix(data)
	m.SetHeadMiddleTail(head, len(energy), tail)
	return m
}

func frag(id string, chars int) *textmodel.TextFragment {
	return &textmodel.TextFragment{Identifier: id, Lines: []string{stringOfLen(chars)}}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestAdjustBuildsHeadRegularTailWithAutoAlgorithm(t *testing.T) {
	cfg := config.Default()
	real := matrixFromEnergy(5, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 5)
	a := NewAdjuster(cfg, logging.Nop)

	fragments := []*textmodel.TextFragment{frag("f1", 10), frag("f2", 10)}
	boundaryIndices := []int{5, 10, 15}
	audioLength := cfg.WindowShift().MulInt(20)

	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{Algorithm: Auto})
	require.NoError(t, err)

	require.Equal(t, 4, list.Len())
	assert.Equal(t, syncmap.Head, list.At(0).Type)
	assert.Equal(t, syncmap.Regular, list.At(1).Type)
	assert.Equal(t, syncmap.Regular, list.At(2).Type)
	assert.Equal(t, syncmap.Tail, list.At(3).Type)
	assert.True(t, list.At(0).Interval.Begin.IsZero())
	assert.True(t, list.At(list.Len()-1).Interval.End.Eq(audioLength))
}

func TestAdjustRejectsMismatchedBoundaryCount(t *testing.T) {
	cfg := config.Default()
	real := matrixFromEnergy(0, []float64{1, 1, 1, 1}, 0)
	a := NewAdjuster(cfg, logging.Nop)

	fragments := []*textmodel.TextFragment{frag("f1", 5)}
	_, err := a.Adjust([]int{0, 1, 2}, real, timeval.Zero, cfg.WindowShift().MulInt(4), fragments, Parameters{Algorithm: Auto})
	assert.Error(t, err)
}

func TestAdjustOffsetShiftsEveryFragment(t *testing.T) {
	cfg := config.Default()
	real := matrixFromEnergy(0, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 0)
	a := NewAdjuster(cfg, logging.Nop)

	fragments := []*textmodel.TextFragment{frag("f1", 10)}
	boundaryIndices := []int{2, 8}
	audioLength := cfg.WindowShift().MulInt(10)

	offset := timeval.MustFromString("0.040")
	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{
		Algorithm: Offset,
		Value:     offset,
	})
	require.NoError(t, err)
	assert.True(t, list.At(1).Interval.Begin.Eq(timeval.MustFromString("0.120")), "the REGULAR fragment's begin shifts from 0.080 by offset; smoothing re-pins only HEAD's begin to 0")
}

func TestAdjustFixesZeroLengthRegularFragment(t *testing.T) {
	cfg := config.Default()
	// boundary indices 4 and 4 collapse the single regular fragment to
	// zero length.
	real := matrixFromEnergy(0, []float64{1, 1, 1, 1, 1, 1, 1, 1}, 0)
	a := NewAdjuster(cfg, logging.Nop)

	fragments := []*textmodel.TextFragment{frag("f1", 5)}
	boundaryIndices := []int{4, 4}
	audioLength := cfg.WindowShift().MulInt(8)

	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{
		Algorithm:     Auto,
		FixZeroLength: true,
	})
	require.NoError(t, err)
	assert.False(t, list.At(1).Interval.HasZeroLength())
}

func TestAdjustRateBringsFastFragmentUnderCeiling(t *testing.T) {
	cfg := config.Default()
	energy := make([]float64, 40)
	for i := range energy {
		energy[i] = 1
	}
	real := matrixFromEnergy(0, energy, 0)
	a := NewAdjuster(cfg, logging.Nop)

	// f1 is short (4 frames) and reads too fast; f2 is long and carries
	// no characters, so it has ample slack to donate when the rate
	// fixer is allowed to reach past its immediate predecessor.
	fragments := []*textmodel.TextFragment{frag("f1", 4), frag("f2", 0)}
	boundaryIndices := []int{4, 8, 40}
	audioLength := cfg.WindowShift().MulInt(40)
	maxRate := timeval.MustFromString("20")

	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{
		Algorithm: RateAggressive,
		Value:     maxRate,
	})
	require.NoError(t, err)

	for i, f := range list.Fragments() {
		if rate, ok := f.Rate(); ok {
			assert.Truef(t, rate.Lte(maxRate.Add(rateEpsilon)), "fragment %d rate %s exceeds ceiling", i, rate)
		}
	}
}

func TestAdjustPercentMovesTransitionIntoNonspeechInterval(t *testing.T) {
	cfg := config.Default()
	// a run of low energy in the middle simulates a pause that VAD will
	// classify as nonspeech; with no minimum nonspeech length it is not
	// merged back into speech.
	cfg.VADMinNonspeechLength = "0.000"
	energy := []float64{10, 10, 10, 10, 0, 0, 0, 0, 0, 0, 10, 10, 10, 10}
	real := matrixFromEnergy(0, energy, 0)
	a := NewAdjuster(cfg, logging.Nop)

	// f1 ends at frame 8 (0.320s), inside the nonspeech run [0.160s,
	// 0.400s); 50% into that run is 0.280s.
	fragments := []*textmodel.TextFragment{frag("f1", 10), frag("f2", 10)}
	boundaryIndices := []int{0, 8, 14}
	audioLength := cfg.WindowShift().MulInt(14)

	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{
		Algorithm: Percent,
		Percent:   50,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, list.Len())
	assert.Equal(t, "0.280", list.At(1).Interval.End.String())
}

func TestAdjustInjectsLongNonspeechFragment(t *testing.T) {
	cfg := config.Default()
	energy := make([]float64, 25)
	for i := 0; i < 5; i++ {
		energy[i] = 10
	}
	for i := 20; i < 25; i++ {
		energy[i] = 10
	}
	real := matrixFromEnergy(0, energy, 0)
	a := NewAdjuster(cfg, logging.Nop)

	// the boundary between f1 and f2 lands inside the 15-frame (0.6s)
	// nonspeech stretch in the middle of the recording.
	fragments := []*textmodel.TextFragment{frag("f1", 10), frag("f2", 10)}
	boundaryIndices := []int{2, 12, 25}
	audioLength := cfg.WindowShift().MulInt(25)

	minNonspeech := timeval.MustFromString("0.080")
	list, err := a.Adjust(boundaryIndices, real, timeval.Zero, audioLength, fragments, Parameters{
		Algorithm:            Auto,
		MinNonspeechLength:   &minNonspeech,
		NonspeechReplacement: syncmap.ReplaceWith("(pause)"),
	})
	require.NoError(t, err)

	var sawNonspeech bool
	for _, f := range list.Fragments() {
		if f.Type == syncmap.NonSpeech {
			sawNonspeech = true
		}
	}
	assert.True(t, sawNonspeech)
}
