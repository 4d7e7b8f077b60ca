// Package dtw aligns two MFCC matrices (a real recording and a
// synthesized one) by dynamic time warping over cosine distance, then
// projects a set of synthesized-side anchor times onto boundary
// indices in the real recording.
package dtw

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/mfcc"
	"github.com/naglis/aeneas-sub000/timeval"
)

// Variant selects which recurrence the Aligner runs.
type Variant int

const (
	// Exact computes the full (n x m) accumulated cost matrix. O(nm)
	// time and space; used when the synthesized wave is short enough
	// that the banded heuristic buys nothing.
	Exact Variant = iota
	// Stripe restricts the recurrence to a Sakoe-Chiba band around the
	// main diagonal, trading optimality for O(n*delta) time and space.
	Stripe
)

func (v Variant) String() string {
	if v == Exact {
		return "exact"
	}
	return "stripe"
}

func variantFromConfig(s string) Variant {
	if s == "exact" {
		return Exact
	}
	return Stripe
}

// Path is a min-cost alignment path between a real and a synthesized
// MFCC matrix, expressed as parallel index slices into the full
// (unsliced) matrices.
type Path struct {
	Real []int
	Synt []int
}

// Aligner computes DTW paths and boundary projections between MFCC
// matrices, selecting Exact or Stripe per the configured algorithm and
// the synthesized wave's length.
type Aligner struct {
	cfg config.RuntimeConfiguration
	log logging.Logger
}

// NewAligner builds an Aligner from the DTW-relevant subset of a
// RuntimeConfiguration.
func NewAligner(cfg config.RuntimeConfiguration, log logging.Logger) *Aligner {
	if log == nil {
		log = logging.Nop
	}
	return &Aligner{cfg: cfg, log: log}
}

// selectedMatrices returns the (possibly VAD-masked) middle-region
// matrices that participate in alignment.
func (a *Aligner) selectedMatrices(real, synt *mfcc.Matrix) (*mat.Dense, *mat.Dense) {
	if a.cfg.MFCCMaskNonspeech {
		return real.MaskedMiddleMFCC().Raw(), synt.MaskedMiddleMFCC().Raw()
	}
	return real.MiddleMFCC().Raw(), synt.MiddleMFCC().Raw()
}

// delta is twice the configured margin, expressed in MFCC frames.
func (a *Aligner) delta() int {
	mws := a.cfg.WindowShift().Seconds()
	if mws <= 0 {
		return 0
	}
	return int(2 * a.cfg.DTWMarginValue().Seconds() / mws)
}

// ComputePath computes the min-cost alignment path between real and
// synt, or (nil, nil) if either matrix is empty after masking — the
// caller (the Start Detector and the boundary adjuster) treats that as
// "no alignment possible" rather than an error.
func (a *Aligner) ComputePath(real, synt *mfcc.Matrix) (*Path, error) {
	m1, m2 := a.selectedMatrices(real, synt)
	_, n := m1.Dims()
	_, m := m2.Dims()
	if n == 0 || m == 0 {
		a.log.Debugf("dtw: one of the two matrices is empty, no path to compute")
		return nil, nil
	}

	variant := variantFromConfig(a.cfg.DTWAlgorithm)
	delta := a.delta()
	if m <= delta {
		a.log.Debugf("dtw: synthesized length %d <= delta %d, forcing exact algorithm", m, delta)
		variant = Exact
	}

	var localReal, localSynt []int
	switch variant {
	case Exact:
		acm := computeCostMatrixExact(m1, m2)
		accumulateInPlaceExact(acm)
		localReal, localSynt = bestPathExact(acm)
	case Stripe:
		if delta > m {
			delta = m
		}
		cost, centers := computeCostMatrixStripe(m1, m2, delta)
		accumulateInPlaceStripe(cost, centers)
		localReal, localSynt = bestPathStripe(cost, centers)
	}

	realIdx := make([]int, len(localReal))
	syntIdx := make([]int, len(localSynt))
	if a.cfg.MFCCMaskNonspeech {
		realMap := real.MaskedMiddleMap()
		syntMap := synt.MaskedMiddleMap()
		head := real.HeadLength()
		for i, v := range localReal {
			realIdx[i] = mapOrIdentity(realMap, v) + head
		}
		if len(realIdx) > 0 {
			realIdx[0] = real.HeadLength()
		}
		for i, v := range localSynt {
			syntIdx[i] = mapOrIdentity(syntMap, v)
		}
	} else {
		head := real.HeadLength()
		for i, v := range localReal {
			realIdx[i] = v + head
		}
		copy(syntIdx, localSynt)
	}

	return &Path{Real: realIdx, Synt: syntIdx}, nil
}

// AccumulatedCostMatrixLastColumnMin computes the accumulated cost
// matrix between real and synt and returns the minimum value (and its
// row index) of its last column — the cost of matching the whole of
// synt against a prefix of real ending anywhere. Used by the Start
// Detector to score head/tail candidates without needing a full
// backtracked path. Returns ok=false if either matrix is empty after
// masking.
func (a *Aligner) AccumulatedCostMatrixLastColumnMin(real, synt *mfcc.Matrix) (value float64, index int, ok bool, err error) {
	m1, m2 := a.selectedMatrices(real, synt)
	_, n := m1.Dims()
	_, m := m2.Dims()
	if n == 0 || m == 0 {
		return 0, 0, false, nil
	}

	variant := variantFromConfig(a.cfg.DTWAlgorithm)
	delta := a.delta()
	if m <= delta {
		variant = Exact
	}

	var acc *mat.Dense
	switch variant {
	case Exact:
		acc = computeCostMatrixExact(m1, m2)
		accumulateInPlaceExact(acc)
	case Stripe:
		if delta > m {
			delta = m
		}
		cost, centers := computeCostMatrixStripe(m1, m2, delta)
		accumulateInPlaceStripe(cost, centers)
		acc = cost
	}

	rows, cols := acc.Dims()
	lastCol := cols - 1
	best := math.Inf(1)
	bestIdx := 0
	for r := 0; r < rows; r++ {
		v := acc.At(r, lastCol)
		if v < best {
			best = v
			bestIdx = r
		}
	}
	return best, bestIdx, true, nil
}

func mapOrIdentity(m []int, i int) int {
	if m == nil {
		return i
	}
	return m[i]
}

// ComputeBoundaries projects syntAnchors (begin times of synthesized
// fragments, in the synthesized wave's own timeline) onto boundary
// frame indices in the real wave. The returned slice has
// len(syntAnchors)+1 elements, the last accounting for the tail
// fragment.
func (a *Aligner) ComputeBoundaries(real, synt *mfcc.Matrix, syntAnchors []timeval.TimeValue) ([]int, error) {
	if len(syntAnchors) == 0 {
		return nil, fmt.Errorf("%w: no anchors to project", errs.ErrInput)
	}

	path, err := a.ComputePath(real, synt)
	if err != nil {
		return nil, err
	}

	begin := real.HeadLength()
	tailBegin := real.HeadLength() + real.MiddleLength()

	if path == nil {
		n := len(syntAnchors)
		step := float64(tailBegin-begin) / float64(n)
		out := make([]int, 0, n+1)
		for i := 0; i < n; i++ {
			out = append(out, begin+int(float64(i)*step))
		}
		return append(out, tailBegin), nil
	}

	mws := a.cfg.WindowShift().Seconds()
	anchorIndices := make([]int, len(syntAnchors))
	for i, anchor := range syntAnchors {
		if mws <= 0 {
			anchorIndices[i] = 0
			continue
		}
		anchorIndices[i] = int(anchor.Seconds() / mws)
	}

	n := len(path.Synt)
	beginIndices := make([]int, len(anchorIndices))
	for i, anchor := range anchorIndices {
		idx := sort.Search(n, func(k int) bool { return path.Synt[k] > anchor })
		if idx >= n {
			idx = n - 1
		}
		beginIndices[i] = idx
	}
	beginIndices[0] = 0

	boundaries := make([]int, 0, len(beginIndices)+1)
	for _, idx := range beginIndices {
		boundaries = append(boundaries, path.Real[idx])
	}
	return append(boundaries, tailBegin), nil
}

func columnNorms(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	rows, _ := m.Dims()
	out := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			v := m.At(i, j)
			sum += v * v
		}
		out[j] = math.Sqrt(sum)
	}
	return out
}

func dropFirstRow(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	if rows <= 1 {
		return mat.NewDense(0, cols, nil)
	}
	out := mat.NewDense(rows-1, cols, nil)
	for i := 1; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i-1, j, m.At(i, j))
		}
	}
	return out
}
