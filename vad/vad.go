// Package vad classifies MFCC frames as speech or nonspeech by
// energy-thresholding the 0th (log-energy) coefficient, merging short
// runs and padding speech intervals.
package vad

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/timeval"
)

// FrameInterval is a half-open [Begin, End) frame-index interval.
type FrameInterval struct {
	Begin, End int
}

// Detector runs voice-activity detection over an MFCCMatrix's middle
// region.
type Detector struct {
	thresholdFactor    float64
	minNonspeechFrames int
	extendBeforeFrames int
	extendAfterFrames  int
}

// NewDetector builds a Detector from the VAD-relevant subset of a
// RuntimeConfiguration.
func NewDetector(cfg config.RuntimeConfiguration) *Detector {
	shift := cfg.WindowShift().Seconds()
	return &Detector{
		thresholdFactor:    cfg.VADLogEnergyThreshold,
		minNonspeechFrames: framesFor(cfg.VADMinNonspeechLengthValue(), shift),
		extendBeforeFrames: framesFor(cfg.VADExtendSpeechBeforeValue(), shift),
		extendAfterFrames:  framesFor(cfg.VADExtendSpeechAfterValue(), shift),
	}
}

func framesFor(tv timeval.TimeValue, shiftSeconds float64) int {
	if shiftSeconds <= 0 {
		return 0
	}
	n := int(tv.Seconds()/shiftSeconds + 0.5)
	if n < 0 {
		n = 0
	}
	return n
}

// Run classifies every frame of the middle region of m as speech
// (true) or nonspeech (false).
func (d *Detector) Run(m *mfcc.Matrix) []bool {
	n := m.MiddleLength()
	if n == 0 {
		return nil
	}
	energy := make([]float64, n)
	for i := 0; i < n; i++ {
		energy[i] = m.MiddleColumn(i)[0]
	}

	mean := stat.Mean(energy, nil)
	max := floats.Max(energy)
	cutoff := mean + d.thresholdFactor*(max-mean)

	speech := make([]bool, n)
	for i, e := range energy {
		speech[i] = e > cutoff
	}

	mergeShortNonspeechRuns(speech, d.minNonspeechFrames)
	padSpeechRuns(speech, d.extendBeforeFrames, d.extendAfterFrames)

	return speech
}

// mergeShortNonspeechRuns reclassifies nonspeech runs shorter than
// minFrames as speech, suppressing micro-pauses.
func mergeShortNonspeechRuns(speech []bool, minFrames int) {
	if minFrames <= 0 {
		return
	}
	i := 0
	for i < len(speech) {
		if speech[i] {
			i++
			continue
		}
		j := i
		for j < len(speech) && !speech[j] {
			j++
		}
		if j-i < minFrames {
			for k := i; k < j; k++ {
				speech[k] = true
			}
		}
		i = j
	}
}

// padSpeechRuns extends every speech run by before/after frames, clipped
// to the region's boundaries.
func padSpeechRuns(speech []bool, before, after int) {
	if before <= 0 && after <= 0 {
		return
	}
	runs := Intervals(speech)
	padded := make([]bool, len(speech))
	for _, run := range runs {
		begin := run.Begin - before
		if begin < 0 {
			begin = 0
		}
		end := run.End + after
		if end > len(speech) {
			end = len(speech)
		}
		for i := begin; i < end; i++ {
			padded[i] = true
		}
	}
	copy(speech, padded)
}

// Intervals merges consecutive same-class frames into a list of
// speech-run [begin, end) frame intervals.
func Intervals(speech []bool) []FrameInterval {
	var out []FrameInterval
	i := 0
	for i < len(speech) {
		if !speech[i] {
			i++
			continue
		}
		j := i
		for j < len(speech) && speech[j] {
			j++
		}
		out = append(out, FrameInterval{Begin: i, End: j})
		i = j
	}
	return out
}

// NonspeechIntervals merges consecutive nonspeech frames into a list of
// [begin, end) frame intervals.
func NonspeechIntervals(speech []bool) []FrameInterval {
	var out []FrameInterval
	i := 0
	for i < len(speech) {
		if speech[i] {
			i++
			continue
		}
		j := i
		for j < len(speech) && !speech[j] {
			j++
		}
		out = append(out, FrameInterval{Begin: i, End: j})
		i = j
	}
	return out
}

// ToTimeIntervals converts frame intervals to TimeIntervals by
// multiplying by windowShift; frame indices are relative to the middle
// region, so the caller is responsible for adding any head offset first.
func ToTimeIntervals(frames []FrameInterval, windowShift timeval.TimeValue) []timeval.TimeInterval {
	out := make([]timeval.TimeInterval, len(frames))
	for i, f := range frames {
		out[i] = timeval.TimeInterval{
			Begin: windowShift.MulInt(f.Begin),
			End:   windowShift.MulInt(f.End),
		}
	}
	return out
}
