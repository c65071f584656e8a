package dataset

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable matches every *DataUnavailableError via errors.Is.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError indicates the source could not be read or does not
// satisfy the column contract. It is fatal for the session.
type DataUnavailableError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e == nil {
		return ErrDataUnavailable.Error()
	}
	msg := "data unavailable"
	if e.Source != "" {
		msg = fmt.Sprintf("data unavailable (%s)", e.Source)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func unavailable(source, reason string, err error) error {
	return &DataUnavailableError{Source: source, Reason: reason, Err: err}
}
