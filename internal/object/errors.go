package object

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField matches any *MissingFieldError via errors.Is.
	ErrMissingField = errors.New("object: missing required field")

	// ErrInvalidValue matches any *ValueError via errors.Is.
	ErrInvalidValue = errors.New("object: invalid value")
)

// MissingFieldError reports a required identity field (bucket or key) absent
// from a decoded document or constructor call.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("object: missing required field %q", e.Field)
}

// Is makes errors.Is(err, ErrMissingField) hold.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// ValueError reports a value that cannot be interpreted as the expected
// structured form.
type ValueError struct {
	Reason string
	Err    error
}

func (e *ValueError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return "object: invalid value: " + e.Reason
	}
	return fmt.Sprintf("object: invalid value: %s: %v", e.Reason, e.Err)
}

func (e *ValueError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidValue) hold.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// InvariantError is the panic value used when an encode step that cannot
// fail for validated input does fail. It is never returned as an error.
type InvariantError struct {
	Op  string
	Err error
}

func (e *InvariantError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("object: internal invariant violated in %s: %v", e.Op, e.Err)
}

func (e *InvariantError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
