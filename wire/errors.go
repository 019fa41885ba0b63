package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Structural decode errors raised by the codec package. They live here,
// next to FieldError, so both schema-declaration and decode failures share
// one error vocabulary.
var (
	ErrNonMatchingLength       = errors.New("wire: non matching data length")
	ErrNonMatchingPackedLength = errors.New("wire: non-matching packed length")
	ErrGroupUnsupported        = errors.New("wire: SGROUP/EGROUP wire types are not supported")
)

// FieldError decorates an error with the dotted path of record fields it
// occurred under, e.g. "input.target_location.latitude".
type FieldError struct {
	FieldPath []string
	Err       error
}

func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapFieldError prepends fieldName to err's field path, creating a
// FieldError if err isn't already one.
func WrapFieldError(err error, fieldName string) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FieldError); ok {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}
	return &FieldError{FieldPath: []string{fieldName}, Err: err}
}
