// Package errs defines the error taxonomy shared across the alignment
// engine. Each kind is a sentinel value matched with errors.Is; callers
// attach detail with fmt.Errorf("...: %w", errs.ErrInput).
package errs

import "errors"

var (
	// ErrInput covers: text file empty, audio file missing, fragment
	// count exceeds configured cap, audio length exceeds cap.
	ErrInput = errors.New("input error")

	// ErrFormat covers: audio decoder cannot interpret the container,
	// MFCC cannot be computed because window parameters yield no frames.
	ErrFormat = errors.New("format error")

	// ErrConfig covers: unknown algorithm, out-of-range parameter,
	// conflicting parameters.
	ErrConfig = errors.New("config error")

	// ErrAlgorithmFailure covers: both DTW variants failed to produce a
	// path. Should not occur on valid inputs.
	ErrAlgorithmFailure = errors.New("algorithm failure")

	// ErrInvariantViolation covers: a post-run safety check found
	// overlapping or out-of-order fragments.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrResource covers: a temp file or synthesis output could not be
	// written.
	ErrResource = errors.New("resource error")
)
