package model

import "errors"

var (
	// ErrData means no usable input rows were found. It is fatal for a run.
	ErrData = errors.New("no usable market data")

	// ErrInsufficientData means a period lacks qualifying assets or a complete
	// lookback window. The period is skipped.
	ErrInsufficientData = errors.New("insufficient data for period")

	// ErrNoCandidates is the universe-level flavour of ErrInsufficientData.
	ErrNoCandidates = wrapKind{ErrInsufficientData, "no candidate assets"}

	// ErrNonConvergence means the optimizer did not satisfy its optimality
	// conditions within tolerance. The period is skipped.
	ErrNonConvergence = errors.New("optimizer did not converge")

	// ErrMissingPrice means a selected asset had no price at entry or exit.
	ErrMissingPrice = errors.New("missing price")
)

// Skippable reports whether err only invalidates the current period.
func Skippable(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrNonConvergence) ||
		errors.Is(err, ErrMissingPrice)
}

// wrapKind is a named error that also matches its parent kind with errors.Is.
type wrapKind struct {
	parent error
	msg    string
}

func (e wrapKind) Error() string { return e.msg }

func (e wrapKind) Unwrap() error { return e.parent }
