// Package timeval implements exact-decimal time arithmetic for the
// alignment engine. Every time quantity the engine produces or compares
// — fragment boundaries, window shifts, offsets, rates — is a TimeValue,
// never a float64, so that repeated offset and rate adjustments do not
// accumulate rounding drift.
package timeval

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TimeValue is an exact rational number of seconds.
type TimeValue struct {
	d decimal.Decimal
}

// Zero is the additive identity, 0.000s.
var Zero = TimeValue{d: decimal.Zero}

// New builds a TimeValue from a float64 number of seconds. Prefer
// FromString for literal constants, since float64 cannot represent every
// decimal exactly.
func New(seconds float64) TimeValue {
	return TimeValue{d: decimal.NewFromFloat(seconds)}
}

// FromString parses a decimal literal such as "1.280".
func FromString(s string) (TimeValue, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return TimeValue{}, fmt.Errorf("timeval: invalid literal %q: %w", s, err)
	}
	return TimeValue{d: d}, nil
}

// MustFromString is FromString but panics on a malformed literal; it
// exists for package-level constant-like declarations.
func MustFromString(s string) TimeValue {
	tv, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return tv
}

// Seconds returns the value as a float64, for interop with MFCC-side
// double-precision arithmetic (frame-count conversions and the like).
func (tv TimeValue) Seconds() float64 {
	f, _ := tv.d.Float64()
	return f
}

func (tv TimeValue) String() string {
	return tv.d.StringFixed(3)
}

func (tv TimeValue) Add(other TimeValue) TimeValue { return TimeValue{d: tv.d.Add(other.d)} }
func (tv TimeValue) Sub(other TimeValue) TimeValue { return TimeValue{d: tv.d.Sub(other.d)} }

// MulInt scales by an integer (e.g. a frame count).
func (tv TimeValue) MulInt(n int) TimeValue {
	return TimeValue{d: tv.d.Mul(decimal.NewFromInt(int64(n)))}
}

// MulFrac scales by a rational factor given as numerator/denominator
// (used for percent-value interpolation).
func (tv TimeValue) MulFrac(num, den int) TimeValue {
	return TimeValue{d: tv.d.Mul(decimal.NewFromInt(int64(num))).Div(decimal.NewFromInt(int64(den)))}
}

func (tv TimeValue) Neg() TimeValue { return TimeValue{d: tv.d.Neg()} }

func (tv TimeValue) Cmp(other TimeValue) int { return tv.d.Cmp(other.d) }
func (tv TimeValue) Eq(other TimeValue) bool { return tv.d.Equal(other.d) }
func (tv TimeValue) Lt(other TimeValue) bool { return tv.d.LessThan(other.d) }
func (tv TimeValue) Lte(other TimeValue) bool {
	return tv.d.LessThanOrEqual(other.d)
}
func (tv TimeValue) Gt(other TimeValue) bool { return tv.d.GreaterThan(other.d) }
func (tv TimeValue) Gte(other TimeValue) bool {
	return tv.d.GreaterThanOrEqual(other.d)
}
func (tv TimeValue) IsZero() bool { return tv.d.IsZero() }
func (tv TimeValue) Sign() int    { return tv.d.Sign() }

// Max returns the greater of a and b.
func Max(a, b TimeValue) TimeValue {
	if a.Gte(b) {
		return a
	}
	return b
}

// Min returns the lesser of a and b.
func Min(a, b TimeValue) TimeValue {
	if a.Lte(b) {
		return a
	}
	return b
}

// Clamp restricts tv to [lo, hi].
func Clamp(tv, lo, hi TimeValue) TimeValue {
	if tv.Lt(lo) {
		return lo
	}
	if tv.Gt(hi) {
		return hi
	}
	return tv
}

// Div returns tv/other. TimeValue deliberately has no general division
// operator in its public surface — time arithmetic should stay closed
// under add/sub/offset — except for this one case, rate computation
// (characters per second), which genuinely needs a quotient.
func Div(tv, other TimeValue) TimeValue {
	return TimeValue{d: tv.d.DivRound(other.d, 6)}
}

// GeqMultiple returns the smallest non-negative multiple of tv (the
// "quantum", typically an MFCC window shift) that is greater than or
// equal to other. If tv is zero, other is returned unchanged — there is
// no useful quantum to snap to. The rounding direction at an exact
// multiple is inclusive (ceil), matching the source behavior this
// generalizes: an already-aligned duration is returned as-is, never
// bumped up to the next quantum.
func (tv TimeValue) GeqMultiple(other TimeValue) TimeValue {
	if tv.IsZero() {
		return other
	}
	quotient := other.d.DivRound(tv.d, 16).Ceil()
	return TimeValue{d: quotient.Mul(tv.d)}
}
