package timeval

import "fmt"

// TimeInterval is a closed interval [Begin, End] with Begin <= End.
type TimeInterval struct {
	Begin TimeValue
	End   TimeValue
}

// NewInterval validates 0 <= begin <= end.
func NewInterval(begin, end TimeValue) (TimeInterval, error) {
	if begin.Lt(Zero) {
		return TimeInterval{}, fmt.Errorf("timeval: negative begin %s", begin)
	}
	if end.Lt(begin) {
		return TimeInterval{}, fmt.Errorf("timeval: end %s before begin %s", end, begin)
	}
	return TimeInterval{Begin: begin, End: end}, nil
}

// MustNewInterval panics on an invalid interval; for tests and literals.
func MustNewInterval(begin, end TimeValue) TimeInterval {
	iv, err := NewInterval(begin, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv TimeInterval) Length() TimeValue { return iv.End.Sub(iv.Begin) }

func (iv TimeInterval) HasZeroLength() bool { return iv.Begin.Eq(iv.End) }

// Contains reports whether point lies in the closed interval.
func (iv TimeInterval) Contains(point TimeValue) bool {
	return point.Gte(iv.Begin) && point.Lte(iv.End)
}

// InnerContains reports whether point lies strictly inside the open
// interval (excludes both endpoints).
func (iv TimeInterval) InnerContains(point TimeValue) bool {
	return point.Gt(iv.Begin) && point.Lt(iv.End)
}

// PercentValue returns Begin + percent% of Length, with percent clamped
// to [0, 100].
func (iv TimeInterval) PercentValue(percent int) TimeValue {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return iv.Begin.Add(iv.Length().MulFrac(percent, 100))
}

// Offset translates both endpoints by delta, clipped into [minBegin,
// maxEnd].
func (iv TimeInterval) Offset(delta TimeValue, minBegin, maxEnd TimeValue) TimeInterval {
	begin := Clamp(iv.Begin.Add(delta), minBegin, maxEnd)
	end := Clamp(iv.End.Add(delta), minBegin, maxEnd)
	if end.Lt(begin) {
		end = begin
	}
	return TimeInterval{Begin: begin, End: end}
}

// Shrink reduces the interval by quantity, taken off the end; the result
// never goes below zero length.
func (iv TimeInterval) Shrink(quantity TimeValue) TimeInterval {
	end := iv.End.Sub(quantity)
	if end.Lt(iv.Begin) {
		end = iv.Begin
	}
	return TimeInterval{Begin: iv.Begin, End: end}
}

// Enlarge extends the interval's end by quantity.
func (iv TimeInterval) Enlarge(quantity TimeValue) TimeInterval {
	return TimeInterval{Begin: iv.Begin, End: iv.End.Add(quantity)}
}

// MoveEndAt sets End to t (t must be >= Begin; caller's responsibility).
func (iv TimeInterval) MoveEndAt(t TimeValue) TimeInterval {
	return TimeInterval{Begin: iv.Begin, End: t}
}

// MoveBeginAt sets Begin to t (t must be <= End; caller's responsibility).
func (iv TimeInterval) MoveBeginAt(t TimeValue) TimeInterval {
	return TimeInterval{Begin: t, End: iv.End}
}

// Shadow expands the interval by quantity on each side, clipped at zero.
// Used by the nonspeech-tolerance sweep: a fragment ending within
// quantity of a nonspeech interval's boundary is considered to "end
// inside" it.
func (iv TimeInterval) Shadow(quantity TimeValue) TimeInterval {
	begin := iv.Begin.Sub(quantity)
	if begin.Lt(Zero) {
		begin = Zero
	}
	return TimeInterval{Begin: begin, End: iv.End.Add(quantity)}
}

// IsAdjacentBefore reports whether iv ends exactly where other begins.
func (iv TimeInterval) IsAdjacentBefore(other TimeInterval) bool {
	return iv.End.Eq(other.Begin)
}

// IsAdjacentAfter reports whether iv begins exactly where other ends.
func (iv TimeInterval) IsAdjacentAfter(other TimeInterval) bool {
	return iv.Begin.Eq(other.End)
}

// IsNonZeroBeforeNonZero reports whether both intervals have non-zero
// length and iv is adjacent-before other.
func (iv TimeInterval) IsNonZeroBeforeNonZero(other TimeInterval) bool {
	return !iv.HasZeroLength() && !other.HasZeroLength() && iv.IsAdjacentBefore(other)
}

// IsNonZeroAfterNonZero reports whether both intervals have non-zero
// length and iv is adjacent-after other.
func (iv TimeInterval) IsNonZeroAfterNonZero(other TimeInterval) bool {
	return !iv.HasZeroLength() && !other.HasZeroLength() && iv.IsAdjacentAfter(other)
}

// Intersection returns the overlapping sub-interval of iv and other, and
// false if they are disjoint. Touching at a single point yields a
// zero-length intersection, not disjointness.
func (iv TimeInterval) Intersection(other TimeInterval) (TimeInterval, bool) {
	begin := Max(iv.Begin, other.Begin)
	end := Min(iv.End, other.End)
	if end.Lt(begin) {
		return TimeInterval{}, false
	}
	return TimeInterval{Begin: begin, End: end}, true
}

// Overlaps reports whether iv and other share any point, including a
// touching endpoint.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	_, ok := iv.Intersection(other)
	return ok
}

func (iv TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s]", iv.Begin, iv.End)
}
