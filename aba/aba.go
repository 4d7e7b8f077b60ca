// Package aba adjusts the boundaries a DTW alignment produces: it turns
// a raw list of boundary frame indices into a FragmentList spanning
// HEAD/REGULAR/TAIL fragments, repairs fragments left with zero length,
// optionally carves out long nonspeech stretches as their own
// fragments, nudges transition points to land on nonspeech per one of
// several strategies, and enforces a maximum reading rate by stealing
// time from neighboring fragments.
package aba

import (
	"fmt"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/syncmap"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
	"github.com/naglis/aeneas-sub000/vad"
)

// Algorithm selects how non-HEAD/TAIL transition points are nudged once
// the initial fragment list has been built and repaired.
type Algorithm int

const (
	// Auto leaves every transition point where the DTW path put it.
	Auto Algorithm = iota
	// Offset shifts every fragment by a fixed amount.
	Offset
	// Percent moves each transition to a fixed percentage into the
	// nonspeech interval it falls inside.
	Percent
	// AfterCurrent moves each transition a fixed delay after the begin
	// of the nonspeech interval it falls inside, never past the
	// interval's end.
	AfterCurrent
	// BeforeNext moves each transition a fixed delay before the
	// nonspeech interval's end, never before its begin.
	BeforeNext
	// Rate steals time from a fragment's previous neighbor (and, if
	// that's not enough, RateAggressive additionally steals from its
	// next neighbor) to bring its reading rate under a ceiling.
	Rate
	RateAggressive
)

func (a Algorithm) String() string {
	switch a {
	case Auto:
		return "auto"
	case Offset:
		return "offset"
	case Percent:
		return "percent"
	case AfterCurrent:
		return "aftercurrent"
	case BeforeNext:
		return "beforenext"
	case Rate:
		return "rate"
	case RateAggressive:
		return "rateaggressive"
	default:
		return "unknown"
	}
}

// Parameters bundles an Algorithm with its numeric argument plus the
// zero-length-fragment and long-nonspeech handling that runs ahead of
// it, mirroring the knobs a single alignment pass exposes.
type Parameters struct {
	Algorithm Algorithm
	// Value is the algorithm's numeric argument: seconds for
	// Offset/AfterCurrent/BeforeNext, characters/second for
	// Rate/RateAggressive. Unused by Auto and Percent.
	Value timeval.TimeValue
	// Percent is the Percent algorithm's argument, a whole percentage
	// [0, 100] into the nonspeech interval. Unused by the others.
	Percent int

	// FixZeroLength enables the zero-length-fragment repair pass.
	FixZeroLength bool
	// AllowArbitraryShift, when true, lets the repaired duration be any
	// value rather than snapping it up to the nearest window-shift
	// multiple.
	AllowArbitraryShift bool

	// MinNonspeechLength, if non-nil, enables carving out nonspeech
	// stretches at least this long into their own fragments.
	MinNonspeechLength *timeval.TimeValue
	// NonspeechReplacement controls what an injected nonspeech fragment
	// carries, and — via its Kind — whether final smoothing removes
	// every nonspeech fragment or only the zero-length ones.
	NonspeechReplacement syncmap.NonSpeechReplacement
}

// Adjuster builds and repairs fragment lists from DTW boundary indices.
type Adjuster struct {
	cfg config.RuntimeConfiguration
	log logging.Logger
	vad *vad.Detector
}

// NewAdjuster builds an Adjuster from the boundary-adjustment subset of
// a RuntimeConfiguration.
func NewAdjuster(cfg config.RuntimeConfiguration, log logging.Logger) *Adjuster {
	if log == nil {
		log = logging.Nop
	}
	return &Adjuster{cfg: cfg, log: log, vad: vad.NewDetector(cfg)}
}

// Adjust builds the HEAD/REGULAR.../TAIL fragment list implied by
// boundaryIndices (as returned by a DTW Aligner's ComputeBoundaries,
// one more than len(fragments)), runs the configured zero-length and
// long-nonspeech repairs, dispatches to the selected Algorithm, and
// smooths the list's outer edges before returning it: the first
// fragment's begin is pinned to smoothBegin and the last fragment's end
// to smoothEnd. A single top-level alignment run passes the real
// recording's own [0, true duration) here, so the HEAD/TAIL fragments
// absorb whatever lead-in/trail-out a start detector left undetected.
// A per-node recursive run (aligning one paragraph's sentences, say)
// passes that node's own interval instead, so the correction stays a
// rounding fix local to the node rather than ballooning across
// unrelated siblings.
func (a *Adjuster) Adjust(boundaryIndices []int, real *mfcc.Matrix, smoothBegin, smoothEnd timeval.TimeValue, fragments []*textmodel.TextFragment, params Parameters) (*syncmap.FragmentList, error) {
	if len(boundaryIndices) != len(fragments)+1 {
		return nil, fmt.Errorf("%w: got %d boundary indices for %d fragments, want %d", errs.ErrInput, len(boundaryIndices), len(fragments), len(fragments)+1)
	}

	mws := a.cfg.WindowShift()
	timeValues := make([]timeval.TimeValue, 0, len(boundaryIndices)+2)
	timeValues = append(timeValues, mws.MulInt(real.HeadLength()))
	for _, idx := range boundaryIndices {
		timeValues = append(timeValues, mws.MulInt(idx))
	}
	timeValues = append(timeValues, mws.MulInt(real.HeadLength()+real.MiddleLength()))

	list, err := buildFragmentList(fragments, timeValues, a.log)
	if err != nil {
		return nil, err
	}

	if params.FixZeroLength {
		duration := a.cfg.ABANoZeroDurationValue()
		if !params.AllowArbitraryShift {
			duration = mws.GeqMultiple(duration)
		}
		list.FixZeroLengthFragments(duration, 1, list.Len()-1)
		if list.HasZeroLengthFragments() {
			a.log.Warnf("aba: zero-length fragments remain after repair")
		}
	}

	if params.MinNonspeechLength != nil {
		if err := a.injectLongNonspeech(list, real, *params.MinNonspeechLength, params.NonspeechReplacement); err != nil {
			return nil, err
		}
	}

	if err := a.dispatch(list, real, params); err != nil {
		return nil, err
	}

	smooth(list, smoothBegin, smoothEnd, params.NonspeechReplacement.Kind != syncmap.NonSpeechReplaceWith)
	return list, nil
}

// buildFragmentList is the Go form of turning a flat list of boundary
// time values into a sorted HEAD/REGULAR.../TAIL FragmentList: the
// first and last pair of time values bound HEAD and TAIL, and every
// pair in between carries one input fragment.
func buildFragmentList(fragments []*textmodel.TextFragment, timeValues []timeval.TimeValue, log logging.Logger) (*syncmap.FragmentList, error) {
	if len(timeValues) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 time values to build HEAD/REGULAR/TAIL, got %d", errs.ErrInput, len(timeValues))
	}

	begin, end := timeValues[0], timeValues[len(timeValues)-1]
	list, err := syncmap.New(begin, end, log)
	if err != nil {
		return nil, err
	}

	if err := list.Add(syncmap.Fragment{
		Interval: timeval.TimeInterval{Begin: timeValues[0], End: timeValues[1]},
		Text:     &textmodel.TextFragment{Identifier: "HEAD"},
		Type:     syncmap.Head,
	}, false); err != nil {
		return nil, err
	}

	for i := 1; i < len(timeValues)-2; i++ {
		if err := list.Add(syncmap.Fragment{
			Interval: timeval.TimeInterval{Begin: timeValues[i], End: timeValues[i+1]},
			Text:     fragments[i-1],
			Type:     syncmap.Regular,
		}, false); err != nil {
			return nil, err
		}
	}

	if err := list.Add(syncmap.Fragment{
		Interval: timeval.TimeInterval{Begin: timeValues[len(timeValues)-2], End: timeValues[len(timeValues)-1]},
		Text:     &textmodel.TextFragment{Identifier: "TAIL"},
		Type:     syncmap.Tail,
	}, false); err != nil {
		return nil, err
	}

	if err := list.Sort(); err != nil {
		return nil, err
	}
	return list, nil
}

// nonspeechTimeIntervals runs VAD over real's middle region and returns
// its nonspeech runs as absolute TimeIntervals (the middle region's
// head offset added back in).
func (a *Adjuster) nonspeechTimeIntervals(real *mfcc.Matrix) []timeval.TimeInterval {
	speech := a.vad.Run(real)
	frames := vad.NonspeechIntervals(speech)
	head := real.HeadLength()
	for i := range frames {
		frames[i].Begin += head
		frames[i].End += head
	}
	return vad.ToTimeIntervals(frames, a.cfg.WindowShift())
}

// injectLongNonspeech carves out nonspeech stretches at least minLength
// long — excluding the list's HEAD and TAIL fragments — into their own
// NONSPEECH fragments.
func (a *Adjuster) injectLongNonspeech(list *syncmap.FragmentList, real *mfcc.Matrix, minLength timeval.TimeValue, replacement syncmap.NonSpeechReplacement) error {
	var long []timeval.TimeInterval
	for _, iv := range a.nonspeechTimeIntervals(real) {
		if iv.Length().Gte(minLength) {
			long = append(long, iv)
		}
	}
	if len(long) == 0 {
		return nil
	}

	tolerance := a.cfg.ABANonspeechToleranceValue()
	pairs := list.FragmentsEndingInsideNonspeechIntervals(long, tolerance)
	pairs = restrictToInterior(pairs, list.Len())
	if len(pairs) == 0 {
		return nil
	}
	return list.InjectLongNonspeechFragments(pairs, replacement)
}

// restrictToInterior drops pairs whose FragmentIdx would touch the
// list's HEAD (index 0) or TAIL (the last index) fragment — those two
// are never candidates for an injected nonspeech split.
func restrictToInterior(pairs []syncmap.NonspeechPair, listLen int) []syncmap.NonspeechPair {
	var out []syncmap.NonspeechPair
	for _, p := range pairs {
		if p.FragmentIdx >= 1 && p.FragmentIdx < listLen-1 {
			out = append(out, p)
		}
	}
	return out
}

func (a *Adjuster) dispatch(list *syncmap.FragmentList, real *mfcc.Matrix, params Parameters) error {
	switch params.Algorithm {
	case Auto:
		return nil
	case Offset:
		list.Offset(params.Value)
		return nil
	case Percent:
		return a.adjustOnNonspeech(list, real, func(nsi timeval.TimeInterval) timeval.TimeValue {
			return nsi.PercentValue(params.Percent)
		})
	case AfterCurrent:
		delay := params.Value
		if delay.Lt(timeval.Zero) {
			delay = timeval.Zero
		}
		return a.adjustOnNonspeech(list, real, func(nsi timeval.TimeInterval) timeval.TimeValue {
			return timeval.Min(nsi.Begin.Add(delay), nsi.End)
		})
	case BeforeNext:
		delay := params.Value
		if delay.Lt(timeval.Zero) {
			delay = timeval.Zero
		}
		return a.adjustOnNonspeech(list, real, func(nsi timeval.TimeInterval) timeval.TimeValue {
			return timeval.Max(nsi.End.Sub(delay), nsi.Begin)
		})
	case Rate:
		a.applyRate(list, params.Value, false)
		return nil
	case RateAggressive:
		a.applyRate(list, params.Value, true)
		return nil
	default:
		return fmt.Errorf("%w: unknown boundary adjustment algorithm %d", errs.ErrConfig, params.Algorithm)
	}
}

// adjustOnNonspeech moves every transition point that currently falls
// inside a nonspeech interval to newTime(interval).
func (a *Adjuster) adjustOnNonspeech(list *syncmap.FragmentList, real *mfcc.Matrix, newTime func(timeval.TimeInterval) timeval.TimeValue) error {
	tolerance := a.cfg.ABANonspeechToleranceValue()
	pairs := list.FragmentsEndingInsideNonspeechIntervals(a.nonspeechTimeIntervals(real), tolerance)
	for _, p := range pairs {
		list.MoveTransitionPoint(p.FragmentIdx, newTime(p.Interval))
	}
	return nil
}

// rateEpsilon is the slack above maxRate a fragment must exceed before
// it is considered "too fast" — without it, a fragment sitting exactly
// at the ceiling would be endlessly re-targeted by floating repairs.
var rateEpsilon = timeval.MustFromString("0.001")

// applyRate brings every REGULAR fragment reading faster than maxRate
// under the ceiling, stealing time from its previous neighbor (and, if
// aggressive, its next neighbor too) one fragment at a time.
func (a *Adjuster) applyRate(list *syncmap.FragmentList, maxRate timeval.TimeValue, aggressive bool) {
	regularCount := 0
	for _, f := range list.Fragments() {
		if f.IsRegular() {
			regularCount++
		}
	}
	if regularCount <= 1 {
		return
	}

	ceiling := maxRate.Add(rateEpsilon)
	for i, f := range list.Fragments() {
		rate, ok := f.Rate()
		if !ok || rate.Lt(ceiling) {
			continue
		}
		list.FixFragmentRate(i, maxRate, aggressive)
	}

	for i, f := range list.Fragments() {
		if rate, ok := f.Rate(); ok && rate.Gte(ceiling) {
			a.log.Warnf("aba: fragment %d still exceeds maximum rate %s after repair", i, maxRate)
		}
	}
}

// smooth pins the first fragment's begin to begin and the last
// fragment's end to end, then drops NONSPEECH fragments: every one of
// them if removeAll is true, only the zero-length ones otherwise.
func smooth(list *syncmap.FragmentList, begin, end timeval.TimeValue, removeAll bool) {
	if list.Len() == 0 {
		return
	}
	first := list.At(0)
	first.Interval = first.Interval.MoveBeginAt(begin)
	list.Set(0, first)

	last := list.At(list.Len() - 1)
	last.Interval = last.Interval.MoveEndAt(end)
	list.Set(list.Len()-1, last)

	list.RemoveNonspeechFragments(!removeAll)
}
