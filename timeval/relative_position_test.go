package timeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func tv(s string) TimeValue { return MustFromString(s) }

func TestRelativePositionInverseIsSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genInterval(t, "a")
		b := genInterval(t, "b")

		ab := RelativePositionOf(a, b)
		ba := RelativePositionOf(b, a)

		assert.Equal(t, ba, InverseRelativePosition(ab))
		assert.Equal(t, ab, InverseRelativePosition(ba))
	})
}

func genInterval(t *rapid.T, label string) TimeInterval {
	begin := rapid.IntRange(0, 20).Draw(t, label+"_begin")
	length := rapid.IntRange(0, 10).Draw(t, label+"_length")
	b := New(float64(begin)).d
	e := b.Add(New(float64(length)).d)
	return TimeInterval{Begin: TimeValue{d: b}, End: TimeValue{d: e}}
}

func TestIntersectionCommutativeAndIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genInterval(t, "a")
		b := genInterval(t, "b")

		ab, okAB := a.Intersection(b)
		ba, okBA := b.Intersection(a)
		require.Equal(t, okAB, okBA)
		if okAB {
			assert.Equal(t, ab, ba)
			self, ok := ab.Intersection(ab)
			require.True(t, ok)
			assert.Equal(t, ab, self)
		}
	})
}

func TestIsAdjacentBeforeMatchesEndpointEquality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genInterval(t, "a")
		b := genInterval(t, "b")
		assert.Equal(t, a.End.Eq(b.Begin), a.IsAdjacentBefore(b))
	})
}

func TestPercentValueE2(t *testing.T) {
	iv := MustNewInterval(Zero, tv("1.000"))
	cases := map[int]string{
		-10: "0.000",
		10:  "0.100",
		25:  "0.250",
		50:  "0.500",
		75:  "0.750",
		150: "1.000",
	}
	for percent, want := range cases {
		got := iv.PercentValue(percent)
		assert.Equal(t, want, got.String(), "percent=%d", percent)
	}
}

func TestOffsetRoundTripIsIdentityWithoutClipping(t *testing.T) {
	iv := MustNewInterval(tv("5.000"), tv("6.000"))
	delta := tv("2.000")
	out := iv.Offset(delta, Zero, tv("100.000")).Offset(delta.Neg(), Zero, tv("100.000"))
	assert.True(t, out.Begin.Eq(iv.Begin))
	assert.True(t, out.End.Eq(iv.End))
}

func TestGeqMultipleRoundsUp(t *testing.T) {
	quantum := tv("0.040")
	assert.Equal(t, "0.040", quantum.GeqMultiple(tv("0.001")).String())
	assert.Equal(t, "0.040", quantum.GeqMultiple(tv("0.040")).String())
	assert.Equal(t, "0.080", quantum.GeqMultiple(tv("0.041")).String())
}
