package binding

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownField is wrapped by a ValidationError for a write to a name
// the schema does not declare as a settable field.
var ErrUnknownField = errors.New("unknown field")

// ValidationError reports a rejected field value. The field keeps the
// value it held before the write.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %v", e.Value, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Positive rejects integers below 1.
func Positive[O any](_ *O, v any) error {
	if i, _ := v.(int); i < 1 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

// NonNegative rejects integers below 0.
func NonNegative[O any](_ *O, v any) error {
	if i, _ := v.(int); i < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// OneOf returns a validator accepting only the listed strings.
func OneOf[O any](allowed ...string) func(*O, any) error {
	return func(_ *O, v any) error {
		s, _ := v.(string)
		if !slices.Contains(allowed, s) {
			return fmt.Errorf("must be one of %v", allowed)
		}
		return nil
	}
}
