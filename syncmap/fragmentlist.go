package syncmap

import (
	"fmt"
	"sort"

	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/timeval"
)

// FragmentList is an ordered, invariant-checked container of fragments
// spanning [Begin, End]. Two invariants hold for every pair of
// fragments once the list is sorted: both lie inside [Begin, End], and
// their relative position is in AllowedFragmentPositions — no two
// fragments may overlap in their interior.
type FragmentList struct {
	begin     timeval.TimeValue
	end       timeval.TimeValue
	fragments []Fragment
	sorted    bool
	log       logging.Logger
}

// New builds an empty list spanning [begin, end].
func New(begin, end timeval.TimeValue, log logging.Logger) (*FragmentList, error) {
	if begin.Lt(timeval.Zero) {
		return nil, fmt.Errorf("syncmap: negative begin %s", begin)
	}
	if end.Lt(begin) {
		return nil, fmt.Errorf("syncmap: end %s before begin %s", end, begin)
	}
	if log == nil {
		log = logging.Nop
	}
	return &FragmentList{begin: begin, end: end, sorted: true, log: log}, nil
}

func (l *FragmentList) Begin() timeval.TimeValue { return l.begin }
func (l *FragmentList) End() timeval.TimeValue   { return l.end }
func (l *FragmentList) Len() int                 { return len(l.fragments) }
func (l *FragmentList) IsSorted() bool           { return l.sorted }

// At returns a copy of the i-th fragment.
func (l *FragmentList) At(i int) Fragment { return l.fragments[i] }

// Fragments returns a copy of the full fragment slice, in current order.
func (l *FragmentList) Fragments() []Fragment {
	out := make([]Fragment, len(l.fragments))
	copy(out, l.fragments)
	return out
}

// Set replaces the i-th fragment; used internally by the fixers, and
// exposed because the boundary adjuster needs direct index-based writes
// after validating its own invariants.
func (l *FragmentList) Set(i int, f Fragment) { l.fragments[i] = f }

func (l *FragmentList) checkBoundaries(f Fragment) error {
	if f.Interval.Begin.Lt(l.begin) || f.Interval.End.Gt(l.end) {
		return fmt.Errorf("syncmap: fragment interval %s outside list bounds %s..%s", f.Interval, l.begin, l.end)
	}
	return nil
}

func (l *FragmentList) checkOverlap(f Fragment) error {
	for _, existing := range l.fragments {
		pos := timeval.RelativePositionOf(existing.Interval, f.Interval)
		if !timeval.AllowedFragmentPositions[pos] {
			return fmt.Errorf("syncmap: fragment %s overlaps existing fragment %s (relative position %s)", f.Interval, existing.Interval, pos)
		}
	}
	return nil
}

// Add inserts f. If sort is true, it is inserted at its sorted
// position (binary insertion) and the whitelist is checked immediately.
// If sort is false, it is appended and the list is marked unsorted; a
// later Sort call re-sorts and validates.
func (l *FragmentList) Add(f Fragment, sort bool) error {
	if err := l.checkBoundaries(f); err != nil {
		return err
	}
	if sort {
		if !l.sorted {
			return fmt.Errorf("syncmap: cannot Add(sort=true) into an unsorted list; call Sort first")
		}
		if err := l.checkOverlap(f); err != nil {
			return err
		}
		idx := sortSearch(l.fragments, f)
		l.fragments = append(l.fragments, Fragment{})
		copy(l.fragments[idx+1:], l.fragments[idx:])
		l.fragments[idx] = f
		return nil
	}
	l.fragments = append(l.fragments, f)
	l.sorted = false
	return nil
}

func sortSearch(fragments []Fragment, f Fragment) int {
	return sort.Search(len(fragments), func(i int) bool {
		return fragments[i].Interval.Begin.Gte(f.Interval.Begin)
	})
}

// Sort re-sorts the fragments by interval begin (a no-op if already
// sorted) and then validates the overlap whitelist across every pair,
// raising on the first violation found.
func (l *FragmentList) Sort() error {
	if l.sorted {
		return nil
	}
	sort.SliceStable(l.fragments, func(i, j int) bool {
		return l.fragments[i].Interval.Begin.Lt(l.fragments[j].Interval.Begin)
	})
	for i := 0; i < len(l.fragments); i++ {
		for j := i + 1; j < len(l.fragments); j++ {
			pos := timeval.RelativePositionOf(l.fragments[i].Interval, l.fragments[j].Interval)
			if !timeval.AllowedFragmentPositions[pos] {
				return fmt.Errorf("syncmap: sort validation failed between index %d and %d (relative position %s)", i, j, pos)
			}
		}
	}
	l.sorted = true
	return nil
}

// Offset translates every fragment's interval by delta, clipped into
// [Begin, End].
func (l *FragmentList) Offset(delta timeval.TimeValue) {
	for i := range l.fragments {
		l.fragments[i].Interval = l.fragments[i].Interval.Offset(delta, l.begin, l.end)
	}
}

// MoveTransitionPoint moves the boundary between fragments i and i+1 to
// t. It silently no-ops (returning false) if the index is out of range,
// if the two fragments aren't both non-zero length and adjacent, or if
// t would push past (i+1)'s end.
func (l *FragmentList) MoveTransitionPoint(i int, t timeval.TimeValue) bool {
	if i < 0 || i >= len(l.fragments)-1 {
		return false
	}
	current := l.fragments[i]
	next := l.fragments[i+1]
	if !current.Interval.IsNonZeroBeforeNonZero(next.Interval) {
		return false
	}
	if t.Gt(next.Interval.End) || t.Lt(current.Interval.Begin) {
		return false
	}
	l.fragments[i].Interval = current.Interval.MoveEndAt(t)
	l.fragments[i+1].Interval = next.Interval.MoveBeginAt(t)
	return true
}

// Remove deletes the fragments at the given indices, preserving order.
func (l *FragmentList) Remove(indices []int) error {
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(l.fragments) {
			return fmt.Errorf("syncmap: remove index %d out of range", idx)
		}
		drop[idx] = true
	}
	out := l.fragments[:0:0]
	for i, f := range l.fragments {
		if !drop[i] {
			out = append(out, f)
		}
	}
	l.fragments = out
	return nil
}

// HasZeroLengthFragments reports whether any fragment has zero length.
func (l *FragmentList) HasZeroLengthFragments() bool {
	for _, f := range l.fragments {
		if f.Interval.HasZeroLength() {
			return true
		}
	}
	return false
}

// HasAdjacentFragmentsOnly reports whether every consecutive pair is
// adjacent (no gaps) once the list is sorted.
func (l *FragmentList) HasAdjacentFragmentsOnly() bool {
	for i := 0; i+1 < len(l.fragments); i++ {
		if !l.fragments[i].Interval.End.Eq(l.fragments[i+1].Interval.Begin) {
			return false
		}
	}
	return true
}

// RemoveNonspeechFragments deletes NONSPEECH fragments. If
// zeroLengthOnly is true, only zero-length NONSPEECH fragments are
// removed; otherwise every NONSPEECH fragment is removed.
func (l *FragmentList) RemoveNonspeechFragments(zeroLengthOnly bool) {
	var indices []int
	for i, f := range l.fragments {
		if f.Type != NonSpeech {
			continue
		}
		if zeroLengthOnly && !f.Interval.HasZeroLength() {
			continue
		}
		indices = append(indices, i)
	}
	_ = l.Remove(indices)
}

// NonspeechPair is a candidate (nonspeech interval, fragment index)
// produced by FragmentsEndingInsideNonspeechIntervals.
type NonspeechPair struct {
	Interval    timeval.TimeInterval
	FragmentIdx int
}

// FragmentsEndingInsideNonspeechIntervals performs the deterministic
// two-cursor sweep: for each nonspeech interval, shadowed by tolerance
// on both sides, it finds the single fragment (never the list's last)
// whose end falls inside the shadow. If more than one fragment's end
// falls inside a shadow, or a fragment is entirely contained in it, that
// nonspeech interval is dropped from the result — this iteration order
// is load-bearing for reproducibility and must not be re-derived ad hoc.
func (l *FragmentList) FragmentsEndingInsideNonspeechIntervals(intervals []timeval.TimeInterval, tolerance timeval.TimeValue) []NonspeechPair {
	var pairs []NonspeechPair
	fragIdx := 0
	n := len(l.fragments)

	for _, nsi := range intervals {
		if nsi.Begin.Gt(l.end) {
			break
		}
		shadow := nsi.Shadow(tolerance)

		// Advance past fragments that end at or before the shadow begins.
		for fragIdx < n && l.fragments[fragIdx].Interval.End.Lte(shadow.Begin) {
			fragIdx++
		}

		candidate := -1
		count := 0
		containedEntirely := false
		cursor := fragIdx
		for cursor < n && l.fragments[cursor].Interval.Begin.Lt(shadow.End) {
			f := l.fragments[cursor]
			if f.Type == Head || f.Type == Tail {
				cursor++
				continue
			}
			if f.Interval.Begin.Gte(shadow.Begin) && f.Interval.End.Lte(shadow.End) && !f.Interval.HasZeroLength() {
				containedEntirely = true
			}
			if f.Interval.End.Gt(shadow.Begin) && f.Interval.End.Lt(shadow.End) && cursor != n-1 {
				candidate = cursor
				count++
			}
			cursor++
		}

		if !containedEntirely && count == 1 {
			pairs = append(pairs, NonspeechPair{Interval: nsi, FragmentIdx: candidate})
		}
	}
	return pairs
}

// InjectLongNonspeechFragments applies each (nsi, i) pair by clamping
// fragments[i].End to nsi.Begin and fragments[i+1].Begin to nsi.End,
// then appending a NONSPEECH fragment spanning nsi. Replacement controls
// whether the injected fragment carries literal text or none. The list
// is re-sorted (and re-validated) at the end.
func (l *FragmentList) InjectLongNonspeechFragments(pairs []NonspeechPair, replacement NonSpeechReplacement) error {
	var lines []string
	if replacement.Kind == NonSpeechReplaceWith {
		lines = []string{replacement.Text}
	}

	for _, pair := range pairs {
		i := pair.FragmentIdx
		if i < 0 || i+1 >= len(l.fragments) {
			continue
		}
		l.fragments[i].Interval = l.fragments[i].Interval.MoveEndAt(pair.Interval.Begin)
		l.fragments[i+1].Interval = l.fragments[i+1].Interval.MoveBeginAt(pair.Interval.End)
	}

	for n, pair := range pairs {
		nsFragment := Fragment{
			Interval: pair.Interval,
			Type:     NonSpeech,
		}
		if lines != nil {
			nsFragment.Text = newNonspeechText(fmt.Sprintf("n%06d", n), lines)
		}
		if err := l.Add(nsFragment, false); err != nil {
			return err
		}
	}
	return l.Sort()
}

// zeroLengthMove records one step of a fix-up chain built by
// FixZeroLengthFragments: either a zero-length fragment being enlarged
// to duration, or a longer fragment merely being shifted (MOVE) to make
// room for the fragments enlarging ahead of it.
type zeroLengthMove struct {
	index   int
	enlarge bool
}

// FixZeroLengthFragments scans [minIndex, maxIndex) for zero-length
// fragments and enlarges each to duration, reclaiming the room from
// whatever follows. Starting at a zero-length fragment, it grows a
// cumulative slack (one duration per zero-length fragment absorbed) and
// walks forward absorbing every subsequent fragment whose own length is
// still less than that slack — a non-zero one is merely shifted
// (MOVE), not required to cover the whole shortfall by itself — until
// it reaches a fragment long enough to donate the remaining slack, or
// runs out of fragments. The run is fixable if that donor can shrink by
// slack, or, when the run reaches the end of the examined range, if the
// list's own End boundary has room for it; otherwise the run is left
// as-is, with a warning through the injected logger.
func (l *FragmentList) FixZeroLengthFragments(duration timeval.TimeValue, minIndex, maxIndex int) {
	if maxIndex > len(l.fragments) {
		maxIndex = len(l.fragments)
	}
	i := minIndex
	for i < maxIndex {
		if !l.fragments[i].Interval.HasZeroLength() {
			i++
			continue
		}

		moves := []zeroLengthMove{{index: i, enlarge: true}}
		slack := duration
		j := i + 1
		for j < maxIndex && l.fragments[j].Interval.Length().Lt(slack) {
			if l.fragments[j].Interval.HasZeroLength() {
				moves = append(moves, zeroLengthMove{index: j, enlarge: true})
				slack = slack.Add(duration)
			} else {
				moves = append(moves, zeroLengthMove{index: j, enlarge: false})
			}
			j++
		}

		var fixable bool
		var currentTime timeval.TimeValue
		switch {
		case j == maxIndex && l.fragments[j-1].Interval.End.Add(slack).Lte(l.end):
			currentTime = l.fragments[j-1].Interval.End.Add(slack)
			fixable = true
		case j < maxIndex:
			donor := l.fragments[j].Interval
			l.fragments[j].Interval = timeval.TimeInterval{Begin: donor.Begin.Add(slack), End: donor.End}
			currentTime = l.fragments[j].Interval.Begin
			fixable = true
		}

		if !fixable {
			l.log.Warnf("syncmap: cannot enlarge fragment %d (%s) to minimum duration %s; leaving as-is", i, l.fragments[i].Interval, duration)
			i = j
			continue
		}

		// Replay the chain back-to-front: each step first shifts its
		// fragment (preserving its own original length) to end at
		// currentTime, then, if it was a zero-length fragment, extends
		// it backwards by duration on top of that shift.
		for k := len(moves) - 1; k >= 0; k-- {
			m := moves[k]
			length := l.fragments[m.index].Interval.Length()
			begin := currentTime.Sub(length)
			if m.enlarge {
				begin = begin.Sub(duration)
			}
			l.fragments[m.index].Interval = timeval.TimeInterval{Begin: begin, End: currentTime}
			currentTime = begin
		}

		i = j
	}
}

// FixFragmentRate tries to bring fragment i's rate under maxRate by
// stealing slack from its previous neighbor (i-1) via
// MoveTransitionPoint. If that alone is insufficient and aggressive is
// set, it additionally steals any remainder from the next neighbor
// (i+1). It returns whether the fragment's rate lack was fully
// satisfied. Per the non-aggressive contract, L[i+1] is never touched
// unless aggressive is true.
func (l *FragmentList) FixFragmentRate(i int, maxRate timeval.TimeValue, aggressive bool) bool {
	if i < 0 || i >= len(l.fragments) {
		return false
	}
	lack := l.fragments[i].RateLack(maxRate)
	if lack.Lte(timeval.Zero) {
		return true
	}

	remaining, applied := l.tryStealForRate(i, i-1, lack, maxRate)
	if applied {
		lack = remaining
	}
	if lack.Lte(timeval.Zero) {
		return true
	}
	if !aggressive {
		return false
	}

	remaining, applied = l.tryStealForRate(i, i+1, lack, maxRate)
	if applied {
		lack = remaining
	}
	return lack.Lte(timeval.Zero)
}

func (l *FragmentList) tryStealForRate(currentIdx, donorIdx int, lack timeval.TimeValue, maxRate timeval.TimeValue) (timeval.TimeValue, bool) {
	if donorIdx < 0 || donorIdx >= len(l.fragments) {
		return lack, false
	}
	donor := l.fragments[donorIdx]
	slack := donor.RateSlack(maxRate)
	if slack.Lte(timeval.Zero) {
		return lack, false
	}
	effective := timeval.Min(lack, slack)
	current := l.fragments[currentIdx]

	var transitionIdx int
	var t timeval.TimeValue
	switch {
	case donorIdx == currentIdx-1:
		transitionIdx = donorIdx
		t = current.Interval.Begin.Sub(effective)
	case donorIdx == currentIdx+1:
		transitionIdx = currentIdx
		t = current.Interval.End.Add(effective)
	default:
		return lack, false
	}

	if !l.MoveTransitionPoint(transitionIdx, t) {
		return lack, false
	}
	return lack.Sub(effective), true
}
