package fieldcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow is returned when a value does not fit its declared length
	// and the field does not allow truncation.
	ErrOverflow = errors.New("value exceeds field length")

	// ErrUntransliterable is returned by a strict codec when text contains
	// characters with no ASCII equivalent.
	ErrUntransliterable = errors.New("value contains characters with no ASCII equivalent")

	// ErrUnknownUnit is returned for weight units the codec cannot convert.
	ErrUnknownUnit = errors.New("unknown weight unit")
)

// FieldError describes a value that could not be encoded for a named field.
type FieldError struct {
	Field  string
	Value  string
	MaxLen int
	Err    error
}

func (e *FieldError) Error() string {
	if e.MaxLen > 0 {
		return fmt.Sprintf("field %s: %v (max %d, value %q)", e.Field, e.Err, e.MaxLen, e.Value)
	}
	return fmt.Sprintf("field %s: %v (value %q)", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }
