// Package sd implements the Start Detector: estimating how much of a
// real recording's head and tail carries no aligned text, by
// synthesizing a partial query from the transcript and locating its
// best-matching prefix of the real audio via DTW.
package sd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/dtw"
	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
	"github.com/naglis/aeneas-sub000/tts"
	"github.com/naglis/aeneas-sub000/vad"
)

// QueryFactor scales MaxLength to get the minimum duration of text to
// synthesize as the search query.
var QueryFactor = mustFrac(1, 1)

// AudioFactor scales MaxLength to get how much of the real recording's
// head/tail is searched. Keep it at least 1.0 + QueryFactor*1.5.
var AudioFactor = mustFrac(5, 2)

// MaxLength is the default upper bound on detected head/tail length.
var MaxLength = timeval.MustFromString("10.000")

// MinLength is the default lower bound on detected head/tail length.
var MinLength = timeval.MustFromString("0.000")

func mustFrac(num, den int) func(timeval.TimeValue) timeval.TimeValue {
	return func(tv timeval.TimeValue) timeval.TimeValue { return tv.MulFrac(num, den) }
}

// Options bounds the head/tail search; nil fields fall back to
// MinLength/MaxLength.
type Options struct {
	MinHeadLength *timeval.TimeValue
	MaxHeadLength *timeval.TimeValue
	MinTailLength *timeval.TimeValue
	MaxTailLength *timeval.TimeValue
}

// Detector is the Start Detector.
type Detector struct {
	cfg       config.RuntimeConfiguration
	log       logging.Logger
	synth     tts.Synthesizer
	extractor *mfcc.Extractor
	aligner   *dtw.Aligner
	vad       *vad.Detector
}

// NewDetector builds a Detector from a RuntimeConfiguration and a
// Synthesizer used to produce the partial-text query audio.
func NewDetector(cfg config.RuntimeConfiguration, log logging.Logger, synth tts.Synthesizer) (*Detector, error) {
	if log == nil {
		log = logging.Nop
	}
	extractor, err := mfcc.NewExtractor(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Detector{
		cfg:       cfg,
		log:       log,
		synth:     synth,
		extractor: extractor,
		aligner:   dtw.NewAligner(cfg, log),
		vad:       vad.NewDetector(cfg),
	}, nil
}

// DetectInterval detects both the head and the tail and returns the
// interval of real that actually contains aligned text, relative to
// audioLength (the real recording's true duration). If the detected
// head and tail leave no positive-length interval, (0, 0) is returned
// rather than an error — a degenerate detection is a valid outcome, not
// a failure.
func (d *Detector) DetectInterval(ctx context.Context, real *mfcc.Matrix, audioLength timeval.TimeValue, fragments []*textmodel.TextFragment, opts Options) (timeval.TimeInterval, error) {
	head, err := d.DetectHead(ctx, real, fragments, opts.MinHeadLength, opts.MaxHeadLength)
	if err != nil {
		return timeval.TimeInterval{}, err
	}
	tail, err := d.DetectTail(ctx, real, fragments, opts.MinTailLength, opts.MaxTailLength)
	if err != nil {
		return timeval.TimeInterval{}, err
	}

	begin := head
	end := audioLength.Sub(tail)
	d.log.Debugf("sd: head=%s tail=%s begin=%s end=%s", head, tail, begin, end)
	if begin.Gte(timeval.Zero) && end.Gt(begin) {
		return timeval.TimeInterval{Begin: begin, End: end}, nil
	}
	return timeval.TimeInterval{Begin: timeval.Zero, End: timeval.Zero}, nil
}

// DetectHead detects the audio head length.
func (d *Detector) DetectHead(ctx context.Context, real *mfcc.Matrix, fragments []*textmodel.TextFragment, minLength, maxLength *timeval.TimeValue) (timeval.TimeValue, error) {
	return d.detect(ctx, real, fragments, minLength, maxLength, false)
}

// DetectTail detects the audio tail length.
func (d *Detector) DetectTail(ctx context.Context, real *mfcc.Matrix, fragments []*textmodel.TextFragment, minLength, maxLength *timeval.TimeValue) (timeval.TimeValue, error) {
	return d.detect(ctx, real, fragments, minLength, maxLength, true)
}

func sanitize(v *timeval.TimeValue, def timeval.TimeValue) (timeval.TimeValue, error) {
	if v == nil {
		return def, nil
	}
	if v.Sign() < 0 {
		return timeval.Zero, fmt.Errorf("%w: length must not be negative", errs.ErrInput)
	}
	return *v, nil
}

func (d *Detector) detect(ctx context.Context, real *mfcc.Matrix, fragments []*textmodel.TextFragment, minLenPtr, maxLenPtr *timeval.TimeValue, tail bool) (timeval.TimeValue, error) {
	minLength, err := sanitize(minLenPtr, MinLength)
	if err != nil {
		return timeval.Zero, err
	}
	maxLength, err := sanitize(maxLenPtr, MaxLength)
	if err != nil {
		return timeval.Zero, err
	}

	mws := d.cfg.WindowShift()
	mwsSeconds := mws.Seconds()
	if mwsSeconds <= 0 {
		return timeval.Zero, fmt.Errorf("%w: mfcc_window_shift must be positive", errs.ErrConfig)
	}
	minLengthFrames := int(minLength.Seconds() / mwsSeconds)
	maxLengthFrames := int(maxLength.Seconds() / mwsSeconds)

	syntDuration := QueryFactor(maxLength)
	req := tts.SynthesisRequest{
		Fragments: fragments,
		QuitAfter: &syntDuration,
		Backwards: tail,
	}
	result, err := d.synth.Synthesize(ctx, req)
	if err != nil {
		return timeval.Zero, fmt.Errorf("%w: synthesizing start-detector query: %v", errs.ErrAlgorithmFailure, err)
	}
	defer os.Remove(result.WAVPath)

	queryMatrix, err := d.loadQueryMatrix(result.WAVPath)
	if err != nil {
		return timeval.Zero, err
	}

	searchWindow := AudioFactor(maxLength)
	searchWindowEndFrames := int(searchWindow.Seconds() / mwsSeconds)
	if searchWindowEndFrames > real.AllLength() {
		searchWindowEndFrames = real.AllLength()
	}

	realSearch := real
	if tail {
		realSearch = real.Reversed()
	}

	speech := d.vad.Run(realSearch)
	speechIntervals := vad.Intervals(speech)
	if len(speechIntervals) < 1 {
		d.log.Debugf("sd: no speech intervals, hence no start found")
		return timeval.Zero, nil
	}

	searchEnd := 0
	var candidatesBegin []int
	for _, iv := range speechIntervals {
		select {
		case <-ctx.Done():
			return timeval.Zero, ctx.Err()
		default:
		}
		if iv.Begin >= minLengthFrames && iv.Begin <= maxLengthFrames {
			candidatesBegin = append(candidatesBegin, iv.Begin)
		}
		searchEnd = iv.End
		if searchEnd >= searchWindowEndFrames {
			break
		}
	}

	type candidate struct {
		value float64
		begin int
	}
	var candidates []candidate
	for _, begin := range candidatesBegin {
		select {
		case <-ctx.Done():
			return timeval.Zero, ctx.Err()
		default:
		}
		sub := realSearch.Slice(begin, searchEnd)
		value, _, ok, err := d.aligner.AccumulatedCostMatrixLastColumnMin(sub, queryMatrix)
		if err != nil {
			d.log.Warnf("sd: candidate at frame %d failed: %v", begin, err)
			continue
		}
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{value: value, begin: begin})
	}

	if len(candidates) < 1 {
		d.log.Debugf("sd: no candidates found")
		return timeval.Zero, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].value < candidates[j].value })
	best := candidates[0].begin
	return mws.MulInt(best), nil
}

func (d *Detector) loadQueryMatrix(wavPath string) (*mfcc.Matrix, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening synthesized query WAV: %v", errs.ErrResource, err)
	}
	defer f.Close()

	samples, _, err := mfcc.LoadPCM(f)
	if err != nil {
		return nil, err
	}
	m, err := d.extractor.Extract(samples)
	if err != nil {
		return nil, err
	}
	return m, nil
}
