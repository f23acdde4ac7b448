package commands

import "fmt"

// FormatError is returned when a raw value cannot be converted to the requested type
type FormatError struct {
	Value string
	Type  Type
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, e.Type, e.Err)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Value, e.Type)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned when no converter is registered for a type
type UnsupportedTypeError struct {
	Type Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no converter registered for %s", e.Type)
}

func formatError(value string, t Type, err error) error {
	return &FormatError{Value: value, Type: t, Err: err}
}
