// Package config defines the typed RuntimeConfiguration surface read by
// the MFCC extractor, VAD, DTW aligner, boundary adjuster and task
// executor, plus the ambient keys (logging, temp root, input caps) read
// by the rest of the module.
package config

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/naglis/aeneas-sub000/errs"
	"github.com/naglis/aeneas-sub000/timeval"
)

// RuntimeConfiguration is the full set of tunables the core reads. It is
// a plain struct, not a generic string-keyed map, so that every key has a
// fixed type and a documented default.
type RuntimeConfiguration struct {
	SampleRate int `yaml:"sample_rate"`

	MFCCFilters         int     `yaml:"mfcc_filters"`
	MFCCSize            int     `yaml:"mfcc_size"`
	MFCCFFTOrder        int     `yaml:"mfcc_fft_order"`
	MFCCLowerFrequency  float64 `yaml:"mfcc_lower_frequency"`
	MFCCUpperFrequency  float64 `yaml:"mfcc_upper_frequency"`
	MFCCEmphasisFactor  float64 `yaml:"mfcc_emphasis_factor"`
	MFCCWindowLength    string  `yaml:"mfcc_window_length"`
	MFCCWindowShift     string  `yaml:"mfcc_window_shift"`
	MFCCMaskNonspeech   bool    `yaml:"mfcc_mask_nonspeech"`

	DTWAlgorithm string `yaml:"dtw_algorithm"`
	DTWMargin    string `yaml:"dtw_margin"`

	VADLogEnergyThreshold  float64 `yaml:"vad_log_energy_threshold"`
	VADMinNonspeechLength  string  `yaml:"vad_min_nonspeech_length"`
	VADExtendSpeechBefore  string  `yaml:"vad_extend_speech_before"`
	VADExtendSpeechAfter   string  `yaml:"vad_extend_speech_after"`

	ABANoZeroDuration      string `yaml:"aba_no_zero_duration"`
	ABANonspeechTolerance  string `yaml:"aba_nonspeech_tolerance"`

	SafetyChecks bool `yaml:"safety_checks"`

	LogLevel         string `yaml:"log_level"`
	TempRoot         string `yaml:"temp_root"`
	MaxFragmentCount int    `yaml:"max_fragment_count"`
	MaxAudioLength   string `yaml:"max_audio_length"`
}

// Default returns the documented default configuration.
func Default() RuntimeConfiguration {
	return RuntimeConfiguration{
		SampleRate: 16000,

		MFCCFilters:        40,
		MFCCSize:           13,
		MFCCFFTOrder:       512,
		MFCCLowerFrequency: 133.3333,
		MFCCUpperFrequency: 6855.4976,
		MFCCEmphasisFactor: 0.97,
		MFCCWindowLength:   "0.100",
		MFCCWindowShift:    "0.040",
		MFCCMaskNonspeech:  false,

		DTWAlgorithm: "stripe",
		DTWMargin:    "60.000",

		VADLogEnergyThreshold: 0.699,
		VADMinNonspeechLength: "0.500",
		VADExtendSpeechBefore: "0.000",
		VADExtendSpeechAfter:  "0.000",

		ABANoZeroDuration:     "0.040",
		ABANonspeechTolerance: "0.080",

		SafetyChecks: true,

		LogLevel:         "info",
		TempRoot:         "",
		MaxFragmentCount: 0,
		MaxAudioLength:   "0.000",
	}
}

// Load decodes a YAML document on top of Default() — an omitted key
// keeps its default, present keys override it — then validates the
// result.
func Load(r io.Reader) (RuntimeConfiguration, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return RuntimeConfiguration{}, fmt.Errorf("%w: decoding configuration: %v", errs.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return RuntimeConfiguration{}, err
	}
	return cfg, nil
}

var allowedDTWAlgorithms = map[string]bool{"exact": true, "stripe": true}

// Validate collects every out-of-range value or unrecognized enum
// member, rather than stopping at the first — a config author fixing one
// typo should see every other problem in the same run.
func (c RuntimeConfiguration) Validate() error {
	var problems []string

	if c.SampleRate <= 0 {
		problems = append(problems, "sample_rate must be positive")
	}
	if c.MFCCFilters <= 0 {
		problems = append(problems, "mfcc_filters must be positive")
	}
	if c.MFCCSize <= 0 || c.MFCCSize > c.MFCCFilters {
		problems = append(problems, "mfcc_size must be positive and at most mfcc_filters")
	}
	if c.MFCCFFTOrder <= 0 || c.MFCCFFTOrder&(c.MFCCFFTOrder-1) != 0 {
		problems = append(problems, "mfcc_fft_order must be a positive power of two")
	}
	if c.MFCCLowerFrequency < 0 || c.MFCCLowerFrequency >= c.MFCCUpperFrequency {
		problems = append(problems, "mfcc_lower_frequency must be non-negative and below mfcc_upper_frequency")
	}
	if c.MFCCEmphasisFactor < 0 || c.MFCCEmphasisFactor >= 1 {
		problems = append(problems, "mfcc_emphasis_factor must be in [0, 1)")
	}
	if !allowedDTWAlgorithms[c.DTWAlgorithm] {
		problems = append(problems, fmt.Sprintf("dtw_algorithm %q is not one of exact, stripe", c.DTWAlgorithm))
	}
	if c.VADLogEnergyThreshold < 0 || c.VADLogEnergyThreshold > 1 {
		problems = append(problems, "vad_log_energy_threshold must be in [0, 1]")
	}

	for _, pair := range []struct {
		name  string
		value string
	}{
		{"mfcc_window_length", c.MFCCWindowLength},
		{"mfcc_window_shift", c.MFCCWindowShift},
		{"dtw_margin", c.DTWMargin},
		{"vad_min_nonspeech_length", c.VADMinNonspeechLength},
		{"vad_extend_speech_before", c.VADExtendSpeechBefore},
		{"vad_extend_speech_after", c.VADExtendSpeechAfter},
		{"aba_no_zero_duration", c.ABANoZeroDuration},
		{"aba_nonspeech_tolerance", c.ABANonspeechTolerance},
		{"max_audio_length", c.MaxAudioLength},
	} {
		if _, err := timeval.FromString(pair.value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", pair.name, err))
		}
	}

	windowLength, errWL := timeval.FromString(c.MFCCWindowLength)
	windowShift, errWS := timeval.FromString(c.MFCCWindowShift)
	if errWL == nil && errWS == nil {
		if windowLength.Lte(timeval.Zero) || windowShift.Lte(timeval.Zero) {
			problems = append(problems, "mfcc_window_length and mfcc_window_shift must be positive")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// TimeValue helpers decode the string-valued duration keys lazily, since
// RuntimeConfiguration itself must remain YAML-serializable with plain
// scalar field types.

func (c RuntimeConfiguration) WindowLength() timeval.TimeValue {
	return timeval.MustFromString(c.MFCCWindowLength)
}

func (c RuntimeConfiguration) WindowShift() timeval.TimeValue {
	return timeval.MustFromString(c.MFCCWindowShift)
}

func (c RuntimeConfiguration) DTWMarginValue() timeval.TimeValue {
	return timeval.MustFromString(c.DTWMargin)
}

func (c RuntimeConfiguration) VADMinNonspeechLengthValue() timeval.TimeValue {
	return timeval.MustFromString(c.VADMinNonspeechLength)
}

func (c RuntimeConfiguration) VADExtendSpeechBeforeValue() timeval.TimeValue {
	return timeval.MustFromString(c.VADExtendSpeechBefore)
}

func (c RuntimeConfiguration) VADExtendSpeechAfterValue() timeval.TimeValue {
	return timeval.MustFromString(c.VADExtendSpeechAfter)
}

func (c RuntimeConfiguration) ABANoZeroDurationValue() timeval.TimeValue {
	return timeval.MustFromString(c.ABANoZeroDuration)
}

func (c RuntimeConfiguration) ABANonspeechToleranceValue() timeval.TimeValue {
	return timeval.MustFromString(c.ABANonspeechTolerance)
}
