// Package mfcc extracts mel-frequency cepstral coefficient matrices
// from PCM audio, with support for masking nonspeech frames ahead of
// DTW alignment.
package mfcc

import "gonum.org/v1/gonum/mat"

// Matrix is a (nCoeffs x nFrames) MFCC matrix, row 0 holding log-energy.
// It additionally tracks the head/middle/tail split used to align only
// the "process" region of a recording, and the VAD mask applied within
// the middle region.
type Matrix struct {
	data *mat.Dense

	head   int
	middle int
	tail   int

	maskedMiddleMap []int // frame indices, relative to the middle region, selected by VAD
}

// NewMatrix wraps data (nCoeffs x nFrames), initially treating the whole
// matrix as "middle" (no head/tail split).
func NewMatrix(data *mat.Dense) *Matrix {
	_, frames := data.Dims()
	return &Matrix{data: data, middle: frames}
}

func (m *Matrix) NumCoeffs() int { r, _ := m.data.Dims(); return r }
func (m *Matrix) AllLength() int { _, c := m.data.Dims(); return c }

func (m *Matrix) HeadLength() int   { return m.head }
func (m *Matrix) MiddleLength() int { return m.middle }
func (m *Matrix) TailLength() int   { return m.tail }

// Column returns frame i's coefficients as a fresh slice.
func (m *Matrix) Column(i int) []float64 {
	n := m.NumCoeffs()
	out := make([]float64, n)
	for r := 0; r < n; r++ {
		out[r] = m.data.At(r, i)
	}
	return out
}

// Coefficient0Row returns row 0 (log-energy) across all frames.
func (m *Matrix) Coefficient0Row() []float64 {
	n := m.AllLength()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.data.At(0, i)
	}
	return out
}

// SetHeadMiddleTail slices the full-length matrix into three contiguous
// time regions. Only the middle region participates in alignment.
func (m *Matrix) SetHeadMiddleTail(head, middle, tail int) {
	m.head, m.middle, m.tail = head, middle, tail
	m.maskedMiddleMap = nil
}

// MiddleColumn returns frame i of the middle region (0-indexed within
// the middle region, i.e. absolute index m.head+i).
func (m *Matrix) MiddleColumn(i int) []float64 {
	return m.Column(m.head + i)
}

// SetMaskedMiddleMap records the frame indices (relative to the middle
// region) that VAD selected as speech.
func (m *Matrix) SetMaskedMiddleMap(indices []int) {
	m.maskedMiddleMap = indices
}

func (m *Matrix) MaskedMiddleMap() []int { return m.maskedMiddleMap }

// MaskedMiddleMFCC returns a new Matrix restricted to the masked middle
// columns, or the full middle region if no mask has been computed.
func (m *Matrix) MaskedMiddleMFCC() *Matrix {
	indices := m.maskedMiddleMap
	if indices == nil {
		indices = make([]int, m.middle)
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) == 0 {
		return NewMatrix(&mat.Dense{})
	}
	n := m.NumCoeffs()
	out := mat.NewDense(n, len(indices), nil)
	for j, idx := range indices {
		for r := 0; r < n; r++ {
			out.Set(r, j, m.data.At(r, m.head+idx))
		}
	}
	return NewMatrix(out)
}

// MiddleMFCC returns a new Matrix restricted to the unmasked middle
// region [head, head+middle).
func (m *Matrix) MiddleMFCC() *Matrix {
	if m.middle == 0 {
		return NewMatrix(&mat.Dense{})
	}
	n := m.NumCoeffs()
	out := mat.NewDense(n, m.middle, nil)
	for j := 0; j < m.middle; j++ {
		for r := 0; r < n; r++ {
			out.Set(r, j, m.data.At(r, m.head+j))
		}
	}
	return NewMatrix(out)
}

// Slice returns a new Matrix over the half-open column range [begin,
// end) of the full (unsplit) matrix.
func (m *Matrix) Slice(begin, end int) *Matrix {
	n := m.NumCoeffs()
	out := mat.NewDense(n, end-begin, nil)
	for j := begin; j < end; j++ {
		for r := 0; r < n; r++ {
			out.Set(r, j-begin, m.data.At(r, j))
		}
	}
	return NewMatrix(out)
}

// Reversed returns a new Matrix with columns in reverse order — used by
// the Start Detector's tail search, which aligns against a
// time-reversed view rather than physically re-deriving features.
func (m *Matrix) Reversed() *Matrix {
	n, frames := m.NumCoeffs(), m.AllLength()
	out := mat.NewDense(n, frames, nil)
	for j := 0; j < frames; j++ {
		src := frames - 1 - j
		for r := 0; r < n; r++ {
			out.Set(r, j, m.data.At(r, src))
		}
	}
	return NewMatrix(out)
}

// Raw exposes the underlying gonum matrix for consumers (DTW, VAD,
// gonum/stat reductions) that want direct column/row access.
func (m *Matrix) Raw() *mat.Dense { return m.data }
