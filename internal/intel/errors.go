package intel

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a source whose lookup was abandoned because the caller's context ended.
var ErrCancelled = errors.New("recommendation cancelled")

// ValidationError rejects malformed input before any computation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DataUnavailableError reports that a backing store could not be read.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedRecordError describes a historical record that cannot take part in scoring.
type MalformedRecordError struct {
	DecisionID uint
	Reason     string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed decision %d: %s", e.DecisionID, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
