package domain

import "errors"

var (
	// ErrFetch indicates the dataset could not be retrieved.
	ErrFetch = errors.New("fetch dataset")

	// ErrParse indicates the dataset text has no usable structure.
	ErrParse = errors.New("parse dataset")

	// ErrNoValidData indicates no row survived filtering for the requested month.
	ErrNoValidData = errors.New("no valid data")

	// ErrOutOfRange indicates a year/month that cannot map to a rainfall column.
	ErrOutOfRange = errors.New("month out of range")

	// ErrSuperseded indicates a newer generation started before this one finished.
	ErrSuperseded = errors.New("generation superseded")

	// ErrInvalidGradient indicates a gradient definition that cannot be built.
	ErrInvalidGradient = errors.New("invalid gradient")
)

// Error kinds reported to clients.
const (
	KindFetch           = "fetch"
	KindParse           = "parse"
	KindNoValidData     = "no_valid_data"
	KindOutOfRange      = "out_of_range"
	KindSuperseded      = "superseded"
	KindInvalidGradient = "invalid_gradient"
	KindInternal        = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrNoValidData):
		return KindNoValidData
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrSuperseded):
		return KindSuperseded
	case errors.Is(err, ErrInvalidGradient):
		return KindInvalidGradient
	default:
		return KindInternal
	}
}
