package wire

import (
	"errors"
	"fmt"
	"testing"
)

func TestFieldErrorPath(t *testing.T) {
	base := fmt.Errorf("unexpected value type for latitude: expected i32, got varint")
	err := WrapFieldError(base, "latitude")
	err = WrapFieldError(err, "target_location")
	err = WrapFieldError(err, "input")

	if _, ok := err.(*FieldError); !ok {
		t.Fatalf("WrapFieldError did not return *FieldError")
	}
	want := "input.target_location.latitude"
	got := fmt.Sprint(err)
	if got != want+": "+base.Error() {
		t.Errorf("Error() = %q, want prefix %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Errorf("errors.Is(err, base) = false, want true (Unwrap chain broken)")
	}
}

func TestWrapFieldErrorNil(t *testing.T) {
	if WrapFieldError(nil, "x") != nil {
		t.Errorf("WrapFieldError(nil, ...) should return nil")
	}
}
