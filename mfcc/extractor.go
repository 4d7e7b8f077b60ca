package mfcc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/logging"
)

// Extractor converts a PCM sample stream into an MFCC Matrix, per the
// classical pipeline: pre-emphasis, Hamming-windowed framing, FFT power
// spectrum, mel filterbank, log, DCT-II. Coefficient 0 of the output is
// not the DCT's own zeroth coefficient but the frame's total
// log-energy, following the convention the alignment algorithm relies
// on for voice-activity detection.
type Extractor struct {
	sampleRate   int
	windowLength float64 // seconds
	windowShift  float64 // seconds
	fftOrder     int
	nFilters     int
	nCoeffs      int
	lowerFreq    float64
	upperFreq    float64
	emphasis     float64

	fb  *filterBank
	fft *fourier.FFT
	dct *fourier.DCT

	log logging.Logger
}

// NewExtractor builds an Extractor from the MFCC-relevant subset of a
// RuntimeConfiguration.
func NewExtractor(cfg config.RuntimeConfiguration, log logging.Logger) (*Extractor, error) {
	if log == nil {
		log = logging.Nop
	}
	e := &Extractor{
		sampleRate:   cfg.SampleRate,
		windowLength: cfg.WindowLength().Seconds(),
		windowShift:  cfg.WindowShift().Seconds(),
		fftOrder:     cfg.MFCCFFTOrder,
		nFilters:     cfg.MFCCFilters,
		nCoeffs:      cfg.MFCCSize,
		lowerFreq:    cfg.MFCCLowerFrequency,
		upperFreq:    cfg.MFCCUpperFrequency,
		emphasis:     cfg.MFCCEmphasisFactor,
		log:          log,
	}

	if sr := float64(e.sampleRate) * e.windowShift; sr != math.Trunc(sr) {
		log.Warnf("mfcc: sample_rate * mfcc_window_shift (%v) is not integer; index/time conversion will floor", sr)
	}

	e.fb = newFilterBank(e.fftOrder, e.sampleRate, e.nFilters, e.lowerFreq, e.upperFreq)
	e.fft = fourier.NewFFT(e.fftOrder)
	e.dct = fourier.NewDCT(e.nFilters)
	return e, nil
}

func (e *Extractor) windowSamples() int { return int(math.Round(e.windowLength * float64(e.sampleRate))) }
func (e *Extractor) shiftSamples() int  { return int(math.Round(e.windowShift * float64(e.sampleRate))) }

// Extract computes the MFCC matrix for a full mono sample stream
// normalized to [-1, 1].
func (e *Extractor) Extract(samples []float64) (*Matrix, error) {
	winSamples := e.windowSamples()
	shiftSamples := e.shiftSamples()
	if winSamples <= 0 || shiftSamples <= 0 {
		return nil, fmt.Errorf("%w: mfcc window parameters produce non-positive sample counts", errs.ErrConfig)
	}

	emphasized := preEmphasize(samples, e.emphasis)
	frameCount := 0
	if len(emphasized) >= winSamples {
		frameCount = (len(emphasized)-winSamples)/shiftSamples + 1
	}
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: audio too short to produce a single MFCC frame", errs.ErrFormat)
	}

	hamming := make([]float64, winSamples)
	for i := range hamming {
		hamming[i] = 1.0
	}
	window.Hamming(hamming)

	data := mat.NewDense(e.nCoeffs, frameCount, nil)
	spectrum := make([]float64, winSamples)
	melLog := make([]float64, e.nFilters)
	cepstral := make([]float64, e.nFilters)

	for frame := 0; frame < frameCount; frame++ {
		start := frame * shiftSamples
		logEnergy := frameLogEnergy(emphasized[start : start+winSamples])

		for i := 0; i < winSamples; i++ {
			spectrum[i] = emphasized[start+i] * hamming[i]
		}
		power := powerSpectrum(e.fft, spectrum, e.fftOrder)
		melLog = e.fb.apply(power, 1.0, -50.0)
		e.dct.Transform(cepstral, melLog)

		data.Set(0, frame, logEnergy)
		for c := 1; c < e.nCoeffs; c++ {
			data.Set(c, frame, cepstral[c])
		}
	}

	return NewMatrix(data), nil
}

func preEmphasize(samples []float64, alpha float64) []float64 {
	if len(samples) == 0 {
		return samples
	}
	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - alpha*samples[i-1]
	}
	return out
}

func frameLogEnergy(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	if sum <= 0 {
		return -50.0
	}
	return math.Log(sum)
}

// powerSpectrum zero-pads frame to fftOrder if it is shorter (or
// truncates it to its first fftOrder samples if it is longer), runs a
// real FFT and returns |X[k]|^2 for the non-redundant half of the
// spectrum.
func powerSpectrum(fft *fourier.FFT, frame []float64, fftOrder int) []float64 {
	padded := frame
	if len(frame) != fftOrder {
		padded = make([]float64, fftOrder)
		copy(padded, frame)
	}
	coeffs := fft.Coefficients(nil, padded)
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		power[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return power
}
