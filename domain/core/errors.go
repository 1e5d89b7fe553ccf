package core

import (
	"errors"
	"fmt"
)

// Engine conditions. The reduction engine never returns these; they describe
// how an input was narrowed so callers can report it.
var (
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrEmptyInput        = errors.New("empty input")
	ErrThresholdTooSmall = errors.New("threshold too small")
	ErrInvalidWindow     = errors.New("inverted reconstruction window")
	ErrWindowTooLarge    = errors.New("reconstruction window too large")
)

// Worker errors
var (
	ErrQueueClosed   = errors.New("worker queue closed")
	ErrUnknownWorker = errors.New("unknown worker")
)

// NewInvalidTimestampError records the position and raw token that was dropped.
func NewInvalidTimestampError(index int, token any) error {
	return fmt.Errorf("%w at index %d: %v", ErrInvalidTimestamp, index, token)
}

// NewThresholdError reports a threshold that could not be honoured as given.
func NewThresholdError(threshold, valid int) error {
	return fmt.Errorf("%w: threshold %d for %d valid points", ErrThresholdTooSmall, threshold, valid)
}

// NewWindowError reports an inverted window.
func NewWindowError(start, end int64) error {
	return fmt.Errorf("%w: start %d > end %d", ErrInvalidWindow, start, end)
}

// IsInputCondition reports whether err is one of the engine's degrade-gracefully conditions.
func IsInputCondition(err error) bool {
	return errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrThresholdTooSmall) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrWindowTooLarge)
}
