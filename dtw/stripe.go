package dtw

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// computeCostMatrixStripe builds an (n x delta) cosine-distance cost
// matrix restricted to a Sakoe-Chiba band of width delta around the
// main diagonal, plus the per-row band offset ("centers") needed to
// translate a band-local column back to a column of m2.
func computeCostMatrixStripe(m1, m2 *mat.Dense, delta int) (*mat.Dense, []int) {
	c1 := dropFirstRow(m1)
	c2 := dropFirstRow(m2)
	rows, n := c1.Dims()
	_, m := c2.Dims()

	norm1 := columnNorms(c1)
	norm2 := columnNorms(c2)

	cost := mat.NewDense(n, delta, nil)
	centers := make([]int, n)
	for i := 0; i < n; i++ {
		centerJ := (m * i) / n
		rangeStart := centerJ - delta/2
		if rangeStart < 0 {
			rangeStart = 0
		}
		rangeEnd := rangeStart + delta
		if rangeEnd > m {
			rangeEnd = m
			rangeStart = rangeEnd - delta
		}
		centers[i] = rangeStart

		for j := rangeStart; j < rangeEnd; j++ {
			var dot float64
			for r := 0; r < rows; r++ {
				dot += c1.At(r, i) * c2.At(r, j)
			}
			denom := norm1[i] * norm2[j]
			similarity := 0.0
			if denom != 0 {
				similarity = dot / denom
			}
			cost.Set(i, j-rangeStart, 1-similarity)
		}
	}
	return cost, centers
}

// accumulateInPlaceStripe turns a banded cost matrix into an
// accumulated cost matrix in place, tracking how the band shifts
// between consecutive rows via centers.
func accumulateInPlaceStripe(cost *mat.Dense, centers []int) {
	n, delta := cost.Dims()
	if n == 0 || delta == 0 {
		return
	}
	for j := 1; j < delta; j++ {
		cost.Set(0, j, cost.At(0, j)+cost.At(0, j-1))
	}
	for i := 1; i < n; i++ {
		offset := centers[i] - centers[i-1]
		for j := 0; j < delta; j++ {
			cost0 := math.Inf(1)
			if j+offset < delta {
				cost0 = cost.At(i-1, j+offset)
			}
			cost1 := math.Inf(1)
			if j > 0 {
				cost1 = cost.At(i, j-1)
			}
			cost2 := math.Inf(1)
			if j+offset-1 < delta && j+offset-1 >= 0 {
				cost2 = cost.At(i-1, j+offset-1)
			}
			cost.Set(i, j, cost.At(i, j)+math.Min(cost0, math.Min(cost1, cost2)))
		}
	}
}

// bestPathStripe backtracks a banded accumulated cost matrix, returning
// real/synt indices in forward order. Synt indices are band-local
// columns translated back to absolute columns of m2 via centers.
func bestPathStripe(acc *mat.Dense, centers []int) (real, synt []int) {
	n, delta := acc.Dims()
	if n == 0 || delta == 0 {
		return nil, nil
	}
	i := n - 1
	j := delta - 1 + centers[i]
	real = append(real, i)
	synt = append(synt, j)
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			offset := centers[i] - centers[i-1]
			rJ := j - centers[i]
			cost0 := math.Inf(1)
			if rJ+offset < delta {
				cost0 = acc.At(i-1, rJ+offset)
			}
			cost1 := math.Inf(1)
			if rJ > 0 {
				cost1 = acc.At(i, rJ-1)
			}
			cost2 := math.Inf(1)
			if rJ > 0 && rJ+offset-1 < delta && rJ+offset-1 >= 0 {
				cost2 = acc.At(i-1, rJ+offset-1)
			}
			switch minIndex3(cost0, cost1, cost2) {
			case 0:
				i--
			case 1:
				j--
			default:
				i--
				j--
			}
		}
		real = append(real, i)
		synt = append(synt, j)
	}
	reverseInts(real)
	reverseInts(synt)
	return real, synt
}
