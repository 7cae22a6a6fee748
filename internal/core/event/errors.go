package event

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrTypeMismatch is returned when a payload is extracted as the wrong variant.
var ErrTypeMismatch = errors.New("event payload type mismatch")

// TypeMismatchError describes a failed payload extraction.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("event payload: want %s, got %s", e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// Extract returns the payload as T or a *TypeMismatchError.
func Extract[T any](v Variant) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		got := "nil"
		if v != nil {
			got = reflect.TypeOf(v).String()
		}
		return zero, &TypeMismatchError{
			Want: reflect.TypeOf((*T)(nil)).Elem().String(),
			Got:  got,
		}
	}
	return t, nil
}

// MustExtract is Extract for handlers whose payload contract is fixed.
// It panics on mismatch.
func MustExtract[T any](v Variant) T {
	t, err := Extract[T](v)
	if err != nil {
		panic(err)
	}
	return t
}
