package models

import "errors"

var (
	// ErrMissingField reports a required value absent from a person's record.
	ErrMissingField = errors.New("missing field")
	// ErrValue reports a cell that could not be converted to its type.
	ErrValue = errors.New("invalid value")
)
