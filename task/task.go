// Package task executes a single- or multi-level forced-alignment run:
// extracting MFCCs from a real recording, synthesizing the transcript
// through a tts.Synthesizer, aligning the two by DTW, and adjusting the
// resulting boundaries into a syncmap.Tree.
package task

import (
	"context"
	"fmt"
	"os"

	"github.com/naglis/aeneas-sub000/aba"
	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/dtw"
	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/sd"
	"github.com/naglis/aeneas-sub000/syncmap"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
	"github.com/naglis/aeneas-sub000/tts"
	"github.com/naglis/aeneas-sub000/vad"
)

// Configuration bundles the task-level knobs §6 names: the boundary
// adjustment parameters plus head/process/tail, either given explicitly
// or bounded for Start Detector search.
type Configuration struct {
	ABA aba.Parameters

	// ExplicitHead, ExplicitProcess, ExplicitTail set the head/process/tail
	// lengths directly, bypassing the Start Detector entirely. Any one of
	// them being non-nil is enough to skip detection for all three; an
	// unset one of the three then defaults to zero (head/tail) or "the
	// rest of the recording" (process).
	ExplicitHead    *timeval.TimeValue
	ExplicitProcess *timeval.TimeValue
	ExplicitTail    *timeval.TimeValue

	// HeadMin/HeadMax/TailMin/TailMax bound a Start Detector search, used
	// only when none of the Explicit* fields above is set. Leaving all
	// four nil skips detection too, leaving head=tail=0.
	HeadMin *timeval.TimeValue
	HeadMax *timeval.TimeValue
	TailMin *timeval.TimeValue
	TailMax *timeval.TimeValue
}

// Executor runs single- and multi-level alignment tasks against one
// real recording.
type Executor struct {
	cfg   config.RuntimeConfiguration
	log   logging.Logger
	synth tts.Synthesizer
}

// NewExecutor builds an Executor. cfg is the level-1 (or the only
// level's) RuntimeConfiguration; a multi-level run supplies its own
// per-level configurations to RunMultiLevel.
func NewExecutor(cfg config.RuntimeConfiguration, log logging.Logger, synth tts.Synthesizer) *Executor {
	if log == nil {
		log = logging.Nop
	}
	return &Executor{cfg: cfg, log: log, synth: synth}
}

// loadSamples opens path and decodes it into normalized PCM samples,
// once, so a multi-level run can re-extract MFCCs at each level's own
// window settings without re-reading the file from disk each time.
func loadSamples(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening real recording: %v", errs.ErrInput, err)
	}
	defer f.Close()
	samples, _, err := mfcc.LoadPCM(f)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// Run executes a single-level alignment of fragments against the audio
// at audioPath, returning the resulting tree: one HEAD child, one child
// per fragment, and one TAIL child of the root.
func (e *Executor) Run(ctx context.Context, audioPath string, fragments []*textmodel.TextFragment, taskCfg Configuration) (*syncmap.Tree, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: no text fragments to align", errs.ErrInput)
	}

	samples, err := loadSamples(audioPath)
	if err != nil {
		return nil, err
	}

	extractor, err := mfcc.NewExtractor(e.cfg, e.log)
	if err != nil {
		return nil, err
	}
	real, err := extractor.Extract(samples)
	if err != nil {
		return nil, err
	}

	mws := e.cfg.WindowShift()
	audioLength := mws.MulInt(real.AllLength())

	head, tail, process, err := e.computeHeadProcessTail(ctx, e.cfg, real, fragments, taskCfg)
	if err != nil {
		return nil, err
	}
	if err := setHeadMiddleTail(real, mws, head, tail, process); err != nil {
		return nil, err
	}

	// a single-level run is definitionally the finest (leaf) level: zero-
	// length fragments may be enlarged by any amount, not just a whole
	// window-shift multiple.
	abaParams := taskCfg.ABA
	abaParams.AllowArbitraryShift = true

	list, err := e.alignNode(ctx, e.cfg, real, fragments, timeval.Zero, audioLength, abaParams)
	if err != nil {
		return nil, err
	}

	tree := syncmap.NewTree(syncmap.Fragment{})
	tree.AppendFragmentList(syncmap.RootIndex, list)

	if err := e.checkConsistency(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// LevelConfigs holds the three per-level RuntimeConfigurations a
// multi-level run needs — paragraph, sentence and word — each typically
// differing in mfcc_window_length/mfcc_window_shift/mfcc_mask_nonspeech.
type LevelConfigs [3]config.RuntimeConfiguration

// RunMultiLevel executes a 3-level (paragraph/sentence/word) alignment.
// root's children are paragraphs, whose children are sentences, whose
// children are words. Every node below the root must carry lines a
// Synthesizer can read, since each level synthesizes its own nodes'
// children's TextFragments directly.
func (e *Executor) RunMultiLevel(ctx context.Context, audioPath string, levels LevelConfigs, root *textmodel.Tree, taskCfg Configuration) (*syncmap.Tree, error) {
	samples, err := loadSamples(audioPath)
	if err != nil {
		return nil, err
	}

	level1Extractor, err := mfcc.NewExtractor(levels[0], e.log)
	if err != nil {
		return nil, err
	}
	level1Real, err := level1Extractor.Extract(samples)
	if err != nil {
		return nil, err
	}
	mws1 := levels[0].WindowShift()
	audioLength := mws1.MulInt(level1Real.AllLength())

	head, tail, process, err := e.computeHeadProcessTail(ctx, levels[0], level1Real, root.ChildFragments(textmodel.RootIndex), taskCfg)
	if err != nil {
		return nil, err
	}

	syncTree := syncmap.NewTree(syncmap.Fragment{})
	items := []levelItem{{textIdx: textmodel.RootIndex, syncIdx: syncmap.RootIndex, begin: timeval.Zero, end: audioLength, hasInterval: false}}

	for level := 1; level <= 3; level++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cfg := levels[level-1]
		mws := cfg.WindowShift()

		var real *mfcc.Matrix
		if level == 1 {
			real = level1Real
			if err := setHeadMiddleTail(real, mws, head, tail, process); err != nil {
				return nil, err
			}
		} else {
			extractor, err := mfcc.NewExtractor(cfg, e.log)
			if err != nil {
				return nil, err
			}
			real, err = extractor.Extract(samples)
			if err != nil {
				return nil, err
			}
		}

		var nextItems []levelItem
		for _, item := range items {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			fragments := root.ChildFragments(item.textIdx)
			childTextIdx := root.Children(item.textIdx)

			var addedStart int
			var addedLen int

			switch {
			case len(fragments) == 0:
				continue
			case level > 1 && (len(fragments) == 1 || (item.hasInterval && item.begin.Eq(item.end))):
				list := trivialFragmentList(fragments, item.begin, item.end, e.log)
				addedStart = syncTree.NodeCount()
				syncTree.AppendFragmentList(item.syncIdx, list)
				addedLen = list.Len()
			default:
				if level > 1 {
					if err := setNodeHeadMiddle(real, mws, item.begin, item.end); err != nil {
						return nil, err
					}
				}

				abaParams := taskCfg.ABA
				abaParams.AllowArbitraryShift = level == 3
				if level == 3 {
					// word-level boundaries are too fine for
					// nonspeech-aware nudging; always use AUTO here,
					// regardless of the configured algorithm.
					abaParams.Algorithm = aba.Auto
				}

				smoothBegin, smoothEnd := timeval.Zero, audioLength
				if item.hasInterval {
					smoothBegin, smoothEnd = item.begin, item.end
				}

				list, err := e.alignNode(ctx, cfg, real, fragments, smoothBegin, smoothEnd, abaParams)
				if err != nil {
					return nil, fmt.Errorf("level %d: %w", level, err)
				}
				addedStart = syncTree.NodeCount()
				syncTree.AppendFragmentList(item.syncIdx, list)
				addedLen = list.Len()
			}

			// drop HEAD/TAIL (the first/last appended child) before
			// recursing into the next level, matching children[1:-1].
			for i := 1; i < addedLen-1; i++ {
				syncIdx := addedStart + i
				nextItems = append(nextItems, levelItem{
					textIdx:     childTextIdx[i-1],
					syncIdx:     syncIdx,
					begin:       syncTree.Fragment(syncIdx).Interval.Begin,
					end:         syncTree.Fragment(syncIdx).Interval.End,
					hasInterval: true,
				})
			}
		}
		items = nextItems
	}

	if err := e.checkConsistency(syncTree); err != nil {
		return nil, err
	}
	return syncTree, nil
}

// levelItem pairs a text-tree node (whose children are aligned this
// round) with the sync-tree node its children attach under.
type levelItem struct {
	textIdx     int
	syncIdx     int
	begin, end  timeval.TimeValue
	hasInterval bool
}

// alignNode runs one alignment pass: synthesize fragments, extract the
// synthesized MFCC, DTW-align it against real, then adjust boundaries.
func (e *Executor) alignNode(ctx context.Context, cfg config.RuntimeConfiguration, real *mfcc.Matrix, fragments []*textmodel.TextFragment, smoothBegin, smoothEnd timeval.TimeValue, abaParams aba.Parameters) (*syncmap.FragmentList, error) {
	result, err := e.synth.Synthesize(ctx, tts.SynthesisRequest{Fragments: fragments})
	if err != nil {
		return nil, fmt.Errorf("%w: synthesizing text: %v", errs.ErrAlgorithmFailure, err)
	}
	defer os.Remove(result.WAVPath)

	syntSamples, err := loadSamples(result.WAVPath)
	if err != nil {
		return nil, err
	}
	extractor, err := mfcc.NewExtractor(cfg, e.log)
	if err != nil {
		return nil, err
	}
	syntMatrix, err := extractor.Extract(syntSamples)
	if err != nil {
		return nil, err
	}

	if cfg.MFCCMaskNonspeech {
		detector := vad.NewDetector(cfg)
		for _, m := range []*mfcc.Matrix{real, syntMatrix} {
			var speechFrames []int
			for i, isSpeech := range detector.Run(m) {
				if isSpeech {
					speechFrames = append(speechFrames, i)
				}
			}
			m.SetMaskedMiddleMap(speechFrames)
		}
	}

	anchors := make([]timeval.TimeValue, len(result.Anchors))
	for i, a := range result.Anchors {
		anchors[i] = a.Begin
	}

	aligner := dtw.NewAligner(cfg, e.log)
	boundaries, err := aligner.ComputeBoundaries(real, syntMatrix, anchors)
	if err != nil {
		return nil, err
	}

	adjuster := aba.NewAdjuster(cfg, e.log)
	return adjuster.Adjust(boundaries, real, smoothBegin, smoothEnd, fragments, abaParams)
}

// computeHeadProcessTail reads explicit head/process/tail overrides
// from taskCfg, or else runs the Start Detector within the configured
// min/max bounds, or else leaves head=tail=0 and process unset (meaning
// "the whole recording") if neither is configured.
func (e *Executor) computeHeadProcessTail(ctx context.Context, cfg config.RuntimeConfiguration, real *mfcc.Matrix, fragments []*textmodel.TextFragment, taskCfg Configuration) (head, tail timeval.TimeValue, process *timeval.TimeValue, err error) {
	if taskCfg.ExplicitHead != nil || taskCfg.ExplicitProcess != nil || taskCfg.ExplicitTail != nil {
		if taskCfg.ExplicitHead != nil {
			head = *taskCfg.ExplicitHead
		}
		if taskCfg.ExplicitTail != nil {
			tail = *taskCfg.ExplicitTail
		}
		return head, tail, taskCfg.ExplicitProcess, nil
	}

	if taskCfg.HeadMin == nil && taskCfg.HeadMax == nil && taskCfg.TailMin == nil && taskCfg.TailMax == nil {
		return timeval.Zero, timeval.Zero, nil, nil
	}

	detector, err := sd.NewDetector(cfg, e.log, e.synth)
	if err != nil {
		return timeval.Zero, timeval.Zero, nil, err
	}
	if taskCfg.HeadMin != nil || taskCfg.HeadMax != nil {
		head, err = detector.DetectHead(ctx, real, fragments, taskCfg.HeadMin, taskCfg.HeadMax)
		if err != nil {
			return timeval.Zero, timeval.Zero, nil, err
		}
	}
	if taskCfg.TailMin != nil || taskCfg.TailMax != nil {
		tail, err = detector.DetectTail(ctx, real, fragments, taskCfg.TailMin, taskCfg.TailMax)
		if err != nil {
			return timeval.Zero, timeval.Zero, nil, err
		}
	}
	return head, tail, nil, nil
}

// setHeadMiddleTail splits real into head/middle/tail frame regions
// from head/tail TimeValues (and process, if the caller pinned the
// middle region's length explicitly rather than letting it fill the
// rest of the recording).
func setHeadMiddleTail(real *mfcc.Matrix, mws timeval.TimeValue, head, tail timeval.TimeValue, process *timeval.TimeValue) error {
	shiftSeconds := mws.Seconds()
	if shiftSeconds <= 0 {
		return fmt.Errorf("%w: mfcc_window_shift must be positive", errs.ErrConfig)
	}
	headFrames := int(head.Seconds()/shiftSeconds + 0.5)
	tailFrames := int(tail.Seconds()/shiftSeconds + 0.5)

	total := real.AllLength()
	middleFrames := total - headFrames - tailFrames
	if process != nil {
		middleFrames = int(process.Seconds()/shiftSeconds + 0.5)
		tailFrames = total - headFrames - middleFrames
	}
	if middleFrames < 0 || headFrames < 0 || tailFrames < 0 || headFrames+middleFrames+tailFrames > total {
		return fmt.Errorf("%w: head/process/tail lengths do not fit within the recording", errs.ErrInput)
	}
	real.SetHeadMiddleTail(headFrames, middleFrames, tailFrames)
	return nil
}

// setNodeHeadMiddle restricts real's process region to [begin, end)
// ahead of a nested alignment pass, leaving whatever precedes begin and
// follows end as head/tail respectively.
func setNodeHeadMiddle(real *mfcc.Matrix, mws, begin, end timeval.TimeValue) error {
	shiftSeconds := mws.Seconds()
	if shiftSeconds <= 0 {
		return fmt.Errorf("%w: mfcc_window_shift must be positive", errs.ErrConfig)
	}
	headFrames := int(begin.Seconds()/shiftSeconds + 0.5)
	endFrames := int(end.Seconds()/shiftSeconds + 0.5)
	total := real.AllLength()
	middleFrames := endFrames - headFrames
	if middleFrames < 0 || headFrames < 0 || endFrames > total {
		return fmt.Errorf("%w: node interval does not fit within the recording", errs.ErrInput)
	}
	real.SetHeadMiddleTail(headFrames, middleFrames, total-endFrames)
	return nil
}

// trivialFragmentList builds the fixed [HEAD, fragment..., TAIL] list
// _append_trivial_tree produces when a node has at most one child or a
// zero-length parent interval: every interior boundary collapses to
// begin (and, for the single-child case, end), rather than running a
// DTW pass that could not possibly resolve anything.
func trivialFragmentList(fragments []*textmodel.TextFragment, begin, end timeval.TimeValue, log logging.Logger) *syncmap.FragmentList {
	list, _ := syncmap.New(begin, end, log)
	if len(fragments) == 1 {
		_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: begin, End: begin}, Text: &textmodel.TextFragment{Identifier: "HEAD"}, Type: syncmap.Head}, false)
		_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: begin, End: end}, Text: fragments[0], Type: syncmap.Regular}, false)
		_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: end, End: end}, Text: &textmodel.TextFragment{Identifier: "TAIL"}, Type: syncmap.Tail}, false)
		_ = list.Sort()
		return list
	}
	// begin == end here (a zero-length parent interval): every fragment
	// collapses to a zero-length slot at that single instant.
	_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: begin, End: begin}, Text: &textmodel.TextFragment{Identifier: "HEAD"}, Type: syncmap.Head}, false)
	for _, f := range fragments {
		_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: begin, End: begin}, Text: f, Type: syncmap.Regular}, false)
	}
	_ = list.Add(syncmap.Fragment{Interval: timeval.TimeInterval{Begin: begin, End: begin}, Text: &textmodel.TextFragment{Identifier: "TAIL"}, Type: syncmap.Tail}, false)
	_ = list.Sort()
	return list
}

// checkConsistency enforces §7's InvariantViolation policy: fatal when
// safety checks are enabled, a logged warning otherwise.
func (e *Executor) checkConsistency(tree *syncmap.Tree) error {
	if tree.LeavesAreConsistent(syncmap.RootIndex) {
		return nil
	}
	if e.cfg.SafetyChecks {
		return fmt.Errorf("%w: computed sync map contains inconsistent fragments", errs.ErrInvariantViolation)
	}
	e.log.Warnf("task: computed sync map contains inconsistent fragments (safety_checks disabled, continuing)")
	return nil
}
