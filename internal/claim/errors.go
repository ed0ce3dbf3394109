package claim

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Validation failures. Every error returned by this package wraps exactly one
// of these so callers can branch with errors.Is.
var (
	ErrMissingField    = errors.New("missing required parameters")
	ErrInvalidAddress  = errors.New("invalid address format")
	ErrExpiredDeadline = errors.New("deadline has expired")
	ErrInvalidNumber   = errors.New("invalid numeric field")
	ErrFieldOutOfRange = errors.New("field out of range")
)

// MissingFieldError names every required field that was absent.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// AddressError carries the rejected recipient.
type AddressError struct {
	Address string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidAddress, e.Address)
}

func (e *AddressError) Unwrap() error { return ErrInvalidAddress }

// DeadlineError reports the deadline and the clock reading it was compared to.
type DeadlineError struct {
	Deadline    string
	CurrentTime int64
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("%s: deadline %s <= current time %d", ErrExpiredDeadline, e.Deadline, e.CurrentTime)
}

func (e *DeadlineError) Unwrap() error { return ErrExpiredDeadline }

// NumberError names a field whose value is not a canonical unsigned integer.
type NumberError struct {
	Field string
	Value Numeric
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("%s: %s=%s", ErrInvalidNumber, e.Field, e.Value.Raw)
}

func (e *NumberError) Unwrap() error { return ErrInvalidNumber }

// RangeError names a field that does not fit the width of a binary encoding.
type RangeError struct {
	Field string
	Value string
	Bits  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s=%s exceeds %d bits", ErrFieldOutOfRange, e.Field, e.Value, e.Bits)
}

func (e *RangeError) Unwrap() error { return ErrFieldOutOfRange }
