package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeHelpers(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{NotFoundf("asset %q missing", "s3://a"), ErrCodeNotFound},
		{ValidationErrorf("order_by", "bad attribute"), ErrCodeValidation},
		{Conflictf("marker already consumed"), ErrCodeConflict},
		{StorageError(errors.New("disk full")), ErrCodeStorage},
	}
	for _, tc := range cases {
		if IsNotFound(tc.err) != (tc.code == ErrCodeNotFound) {
			t.Errorf("IsNotFound(%v) wrong", tc.err)
		}
		if IsValidation(tc.err) != (tc.code == ErrCodeValidation) {
			t.Errorf("IsValidation(%v) wrong", tc.err)
		}
		if IsConflict(tc.err) != (tc.code == ErrCodeConflict) {
			t.Errorf("IsConflict(%v) wrong", tc.err)
		}
	}
}

func TestErrorHelpers_HandleWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer context: %w", NotFoundf("missing"))
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors carry no code")
	}
	if IsNotFound(nil) {
		t.Error("nil is not an error")
	}
}

func TestError_MessageFormat(t *testing.T) {
	withField := ValidationErrorf("order_by", "bad attribute")
	if withField.Error() != "VALIDATION: order_by: bad attribute" {
		t.Errorf("got %q", withField.Error())
	}
	plain := NotFoundf("missing")
	if plain.Error() != "NOT_FOUND: missing" {
		t.Errorf("got %q", plain.Error())
	}

	cause := errors.New("disk full")
	storage := StorageError(cause)
	if !errors.Is(storage, cause) {
		t.Error("storage errors must unwrap to their cause")
	}
}
