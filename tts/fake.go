package tts

import (
	"context"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/timeval"
)

// FakeSynthesizer is a silence-and-even-spacing Synthesizer: every
// fragment is allotted a duration proportional to its character count
// (at CharsPerSecond), clamped to MinFragmentDuration, and the emitted
// WAV is pure silence of the resulting total length. It exists so the
// Start Detector and the Task Executor can be exercised without a real
// TTS engine.
type FakeSynthesizer struct {
	SampleRate         int
	CharsPerSecond     float64
	MinFragmentDuration timeval.TimeValue
}

// NewFakeSynthesizer builds a FakeSynthesizer with reasonable defaults.
func NewFakeSynthesizer(sampleRate int) *FakeSynthesizer {
	return &FakeSynthesizer{
		SampleRate:          sampleRate,
		CharsPerSecond:      20.0,
		MinFragmentDuration: timeval.MustFromString("0.500"),
	}
}

// Synthesize writes a silent WAV file to a fresh temp file and returns
// anchors in true content order, regardless of req.Backwards.
func (f *FakeSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error) {
	if len(req.Fragments) == 0 {
		return SynthesisResult{}, fmt.Errorf("%w: no fragments to synthesize", errs.ErrInput)
	}

	order := make([]int, len(req.Fragments))
	for i := range order {
		order[i] = i
	}
	if req.Backwards {
		reverseIntsOrder(order)
	}

	anchors := make([]Anchor, len(req.Fragments))
	cursor := timeval.Zero
	charCount := 0
	synthesizedAny := false

	for _, idx := range order {
		select {
		case <-ctx.Done():
			return SynthesisResult{}, ctx.Err()
		default:
		}

		frag := req.Fragments[idx]
		chars := frag.Chars()
		duration := timeval.New(float64(chars) / f.CharsPerSecond)
		if duration.Lt(f.MinFragmentDuration) {
			duration = f.MinFragmentDuration
		}

		if req.QuitAfter != nil && cursor.Gte(*req.QuitAfter) && synthesizedAny {
			anchors[idx] = Anchor{Begin: cursor, End: cursor, Text: frag.Text()}
			continue
		}

		begin := cursor
		end := cursor.Add(duration)
		anchors[idx] = Anchor{Begin: begin, End: end, Text: frag.Text()}
		cursor = end
		charCount += chars
		synthesizedAny = true
	}

	path, err := f.writeSilence(cursor)
	if err != nil {
		return SynthesisResult{}, err
	}

	return SynthesisResult{
		WAVPath:   path,
		Anchors:   anchors,
		TotalTime: cursor,
		CharCount: charCount,
	}, nil
}

func (f *FakeSynthesizer) writeSilence(duration timeval.TimeValue) (string, error) {
	tmp, err := os.CreateTemp("", "aeneas-sub000-synth-*.wav")
	if err != nil {
		return "", fmt.Errorf("%w: creating synthesis scratch file: %v", errs.ErrResource, err)
	}
	defer tmp.Close()

	numSamples := int(duration.Seconds() * float64(f.SampleRate))
	if numSamples < 0 {
		numSamples = 0
	}

	enc := wav.NewEncoder(tmp, f.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: f.SampleRate, NumChannels: 1},
		Data:           make([]int, numSamples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return "", fmt.Errorf("%w: writing synthesized silence: %v", errs.ErrResource, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: closing synthesized WAV: %v", errs.ErrResource, err)
	}

	return tmp.Name(), nil
}

func reverseIntsOrder(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
