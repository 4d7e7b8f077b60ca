package dtw

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// computeCostMatrixExact builds the full (n x m) cosine-distance cost
// matrix between m1's and m2's columns, discarding each matrix's first
// row (the log-energy coefficient, which carries no spectral-shape
// information useful to alignment).
func computeCostMatrixExact(m1, m2 *mat.Dense) *mat.Dense {
	c1 := dropFirstRow(m1)
	c2 := dropFirstRow(m2)
	rows, n := c1.Dims()
	_, m := c2.Dims()

	norm1 := columnNorms(c1)
	norm2 := columnNorms(c2)

	cost := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			var dot float64
			for r := 0; r < rows; r++ {
				dot += c1.At(r, i) * c2.At(r, j)
			}
			denom := norm1[i] * norm2[j]
			similarity := 0.0
			if denom != 0 {
				similarity = dot / denom
			}
			cost.Set(i, j, 1-similarity)
		}
	}
	return cost
}

// accumulateInPlaceExact turns a cost matrix into an accumulated cost
// matrix in place: a[i][j] = c[i][j] + min(a[i-1][j-1], a[i-1][j], a[i][j-1]).
func accumulateInPlaceExact(cost *mat.Dense) {
	n, m := cost.Dims()
	if n == 0 || m == 0 {
		return
	}
	for j := 1; j < m; j++ {
		cost.Set(0, j, cost.At(0, j)+cost.At(0, j-1))
	}
	for i := 1; i < n; i++ {
		cost.Set(i, 0, cost.At(i, 0)+cost.At(i-1, 0))
		for j := 1; j < m; j++ {
			best := math.Min(cost.At(i-1, j), math.Min(cost.At(i, j-1), cost.At(i-1, j-1)))
			cost.Set(i, j, cost.At(i, j)+best)
		}
	}
}

// bestPathExact backtracks the accumulated cost matrix from (n-1, m-1)
// to (0, 0), returning parallel real/synt index slices in forward
// order.
func bestPathExact(acc *mat.Dense) (real, synt []int) {
	n, m := acc.Dims()
	if n == 0 || m == 0 {
		return nil, nil
	}
	i, j := n-1, m-1
	real = append(real, i)
	synt = append(synt, j)
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			up, left, diag := acc.At(i-1, j), acc.At(i, j-1), acc.At(i-1, j-1)
			switch minIndex3(up, left, diag) {
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

func minIndex3(a, b, c float64) int {
	idx, best := 0, a
	if b < best {
		idx, best = 1, b
	}
	if c < best {
		idx = 2
	}
	return idx
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
