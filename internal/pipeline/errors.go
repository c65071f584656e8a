package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparsableHeight matches every *UnparsableHeightError.
	ErrUnparsableHeight = errors.New("unparsable height")
	// ErrUnknownColumn matches every *UnknownColumnError.
	ErrUnknownColumn = errors.New("unknown column")
)

// UnparsableHeightError reports a height cell without a leading integer token.
type UnparsableHeightError struct {
	ID  string // record identifier, empty when parsing a bare string
	Raw string
	Err error
}

func (e *UnparsableHeightError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("unparsable height %q for record %s", e.Raw, e.ID)
	}
	return fmt.Sprintf("unparsable height %q", e.Raw)
}

func (e *UnparsableHeightError) Unwrap() error { return e.Err }

func (e *UnparsableHeightError) Is(target error) bool { return target == ErrUnparsableHeight }

// UnknownColumnError indicates a projection asked for a column outside the schema.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }
