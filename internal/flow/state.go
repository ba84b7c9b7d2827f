// Package flow implements the money-moving workflows: two-phase transactions,
// currency exchanges, and provider deposit monitoring. Each flow instance is
// a small state machine advanced by discrete events; all writes happen
// server-side through the api client.
package flow

import "errors"

// Step is the position of a flow instance in its state machine. A flow may
// return from StepConfirm/StepPreview to StepForm on cancel, but never leaves
// StepSuccess except through Reset.
type Step int

const (
	StepForm Step = iota
	StepConfirm
	StepPreview
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepForm:
		return "form"
	case StepConfirm:
		return "confirm"
	case StepPreview:
		return "preview"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidState rejects an operation issued outside the step that
	// permits it, e.g. confirming a flow that is still on the form.
	ErrInvalidState = errors.New("operation not valid in current step")

	// ErrBusy rejects re-entrant submission while a network call for the
	// same flow instance is outstanding.
	ErrBusy = errors.New("request already in flight")

	// ErrAmountTooSmall rejects amounts below the minimum currency unit
	// before any network call is made.
	ErrAmountTooSmall = errors.New("amount must be at least 0.01")

	// ErrSameCurrency rejects exchanges between identical currencies.
	ErrSameCurrency = errors.New("source and target currencies must differ")

	// ErrNoConversion means no preview could be derived: both or neither
	// amount was set, or a currency is missing from the rate table.
	ErrNoConversion = errors.New("no conversion for given amounts")
)
