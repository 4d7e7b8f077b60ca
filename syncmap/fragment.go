// Package syncmap implements the ordered, invariant-checked container of
// time-interval fragments produced by an alignment run, and the tree
// that assembles multi-level runs into a single hierarchical sync-map.
package syncmap

import (
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
)

// FragmentType is the role a fragment plays in a sync-map.
type FragmentType int

const (
	Regular FragmentType = iota
	Head
	Tail
	NonSpeech
)

func (t FragmentType) String() string {
	switch t {
	case Regular:
		return "REGULAR"
	case Head:
		return "HEAD"
	case Tail:
		return "TAIL"
	case NonSpeech:
		return "NONSPEECH"
	default:
		return "UNKNOWN"
	}
}

// Fragment binds a time interval to an (optional) text fragment and a
// role. Confidence is an external-collaborator score (e.g. from a TTS
// engine); the core never computes it, only carries it.
type Fragment struct {
	Interval     timeval.TimeInterval
	Text         *textmodel.TextFragment
	Type         FragmentType
	Confidence   float64
}

// newNonspeechText builds the minimal TextFragment carried by an
// injected NONSPEECH fragment when a replacement string is configured.
func newNonspeechText(identifier string, lines []string) *textmodel.TextFragment {
	return &textmodel.TextFragment{Identifier: identifier, Lines: lines}
}

// IsHeadOrTail reports whether the fragment is non-content filler.
func (f Fragment) IsHeadOrTail() bool {
	return f.Type == Head || f.Type == Tail
}

func (f Fragment) IsRegular() bool { return f.Type == Regular }

// Chars returns the bound text fragment's character count, or 0 if
// there is none.
func (f Fragment) Chars() int {
	if f.Text == nil {
		return 0
	}
	return f.Text.FilteredChars()
}

// Rate returns characters per second. It is defined only for REGULAR
// fragments with non-zero length; ok is false otherwise.
func (f Fragment) Rate() (rate timeval.TimeValue, ok bool) {
	if f.Type != Regular || f.Interval.HasZeroLength() {
		return timeval.Zero, false
	}
	chars := timeval.New(float64(f.Chars()))
	length := f.Interval.Length()
	return timeval.Div(chars, length), true
}

// RateLack returns chars/maxRate - length for REGULAR fragments
// (positive means the fragment reads faster than maxRate allows), and
// zero otherwise.
func (f Fragment) RateLack(maxRate timeval.TimeValue) timeval.TimeValue {
	if f.Type != Regular {
		return timeval.Zero
	}
	chars := timeval.New(float64(f.Chars()))
	return timeval.Div(chars, maxRate).Sub(f.Interval.Length())
}

// RateSlack returns the slack this fragment can donate to a neighbor
// under rate enforcement: -RateLack for REGULAR, Length for NONSPEECH,
// 0 for HEAD/TAIL.
func (f Fragment) RateSlack(maxRate timeval.TimeValue) timeval.TimeValue {
	switch f.Type {
	case Regular:
		return f.RateLack(maxRate).Neg()
	case NonSpeech:
		return f.Interval.Length()
	default:
		return timeval.Zero
	}
}
