package apperrors

import "errors"

// Standardized Engine Errors
var (
	ErrDataUnavailable  = errors.New("historical data unavailable")
	ErrInsufficientBars = errors.New("not enough data points")
	ErrBarAlignment     = errors.New("bar alignment lookup failed")
	ErrPersistence      = errors.New("trade persistence failed")
	ErrUnknownScanner   = errors.New("unknown scanner")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrSessionFinished  = errors.New("session already finished")
)
