package mfcc

import "math"

// filterBank is a mel-scale triangular filterbank projecting a power
// spectrum of dftUse bins onto nFilters overlapping triangles spanning
// [lowerFreq, upperFreq]. The construction follows the classical
// point-to-bin conversion: filter center frequencies are evenly spaced
// on the mel scale, then mapped back to FFT bins.
type filterBank struct {
	nFilters int
	// ptBin[i] is the FFT bin index of filter boundary i, for
	// i in [0, nFilters+1].
	ptBin []int
}

func freqToMel(freq float64) float64 {
	return 1127.0 * math.Log(1.0+freq/700.0)
}

func melToFreq(mel float64) float64 {
	return 700.0 * (math.Exp(mel/1127.0) - 1.0)
}

func freqToBin(freq float64, dftSize int, sampleRate int) int {
	return int(math.Floor((float64(dftSize+1) * freq) / float64(sampleRate)))
}

// newFilterBank builds the filter boundary table for nFilters
// triangular filters spanning [lowerFreq, upperFreq] of a dftSize-point
// FFT sampled at sampleRate Hz.
func newFilterBank(dftSize, sampleRate, nFilters int, lowerFreq, upperFreq float64) *filterBank {
	melLow := freqToMel(lowerFreq)
	melHigh := freqToMel(upperFreq)

	ptBin := make([]int, nFilters+2)
	for i := 0; i < nFilters+2; i++ {
		mel := melLow + (melHigh-melLow)*float64(i)/float64(nFilters+1)
		freq := melToFreq(mel)
		ptBin[i] = freqToBin(freq, dftSize, sampleRate)
	}
	return &filterBank{nFilters: nFilters, ptBin: ptBin}
}

// apply projects a power spectrum (length dftUse = dftSize/2+1) through
// the filterbank, returning nFilters log-energies.
func (fb *filterBank) apply(power []float64, logOffset, logFloor float64) []float64 {
	out := make([]float64, fb.nFilters)
	for f := 0; f < fb.nFilters; f++ {
		left := fb.ptBin[f]
		center := fb.ptBin[f+1]
		right := fb.ptBin[f+2]

		var energy float64
		for bin := left; bin < center; bin++ {
			if bin < 0 || bin >= len(power) || center == left {
				continue
			}
			weight := float64(bin-left) / float64(center-left)
			energy += weight * power[bin]
		}
		for bin := center; bin < right; bin++ {
			if bin < 0 || bin >= len(power) || right == center {
				continue
			}
			weight := float64(right-bin) / float64(right-center)
			energy += weight * power[bin]
		}

		energy += logOffset
		if energy <= 0 {
			out[f] = logFloor
		} else {
			v := math.Log(energy)
			if v < logFloor {
				v = logFloor
			}
			out[f] = v
		}
	}
	return out
}
