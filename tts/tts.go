// Package tts defines the text-to-speech contract the Start Detector
// and the Task Executor synthesize against, without committing to any
// particular TTS engine.
package tts

import (
	"context"

	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
)

// Anchor marks a single synthesized fragment's span within the
// synthetic WAV produced by a Synthesizer.
type Anchor struct {
	Begin timeval.TimeValue
	End   timeval.TimeValue
	Text  string
}

// SynthesisRequest describes what to synthesize.
type SynthesisRequest struct {
	Language string
	// Fragments are synthesized in order unless Backwards is set, in
	// which case the synthesizer reverses fragment order and
	// time-reverses the emitted waveform, but still returns Anchors in
	// true content order (see Synthesizer doc).
	Fragments []*textmodel.TextFragment
	// QuitAfter, if non-nil, stops synthesis once this much audio has
	// been produced, leaving CharCount short of the full text.
	QuitAfter *timeval.TimeValue
	Backwards bool
}

// SynthesisResult is what a Synthesizer produces.
type SynthesisResult struct {
	WAVPath   string
	Anchors   []Anchor
	TotalTime timeval.TimeValue
	CharCount int
}

// Synthesizer turns text fragments into a WAV file plus a list of
// per-fragment time anchors within it.
//
// Anchors always describe fragments in true content order, even when
// Backwards is requested: only the waveform and the elapsed-time axis
// run backwards in that case, so that a tail-detection caller can treat
// the result exactly as it would a head-detection result after
// reversing its own real-audio MFCCs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error)
}
