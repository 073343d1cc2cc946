package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("User", "u-1")

	if err.Error() != "User not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to match")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}

	wrapped := fmt.Errorf("resolve owner: %w", err)
	nf, ok := AsNotFound(wrapped)
	if !ok {
		t.Fatal("expected AsNotFound to unwrap")
	}
	if nf.Kind != "User" || nf.ID != "u-1" {
		t.Errorf("unexpected fields %+v", nf)
	}

	if IsTransient(err) {
		t.Error("not found must not be transient")
	}
	if Classify(err) != ErrorInvalid {
		t.Errorf("expected invalid class, got %s", Classify(err))
	}
	if _, ok := AsNotFound(ErrInvalidData); ok {
		t.Error("unrelated error must not match")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"no connection", ErrNoConnection, true},
		{"rate limited", ErrRateLimited, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"not found", NotFound("Event", "e-1"), false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsTransient(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"invalid data", ErrInvalidData, false},
		{"fatal in message", fmt.Errorf("fatal system error occurred"), true},
		{"panic in message", fmt.Errorf("panic: system failure"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsFatal(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"parsing failed", ErrParsingFailed, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsInvalid(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"transient", ErrConnectionLost, ErrorTransient},
		{"fatal", ErrMissingConfig, ErrorFatal},
		{"invalid", ErrParsingFailed, ErrorInvalid},
		{"not found", NotFound("Location", "l-9"), ErrorInvalid},
		{"unknown", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestClassifiedError_NoMessage(t *testing.T) {
	inner := fmt.Errorf("inner failure")
	ce := &ClassifiedError{Class: ErrorFatal, Err: inner}

	if ce.Error() != "inner failure" {
		t.Errorf("expected inner message, got %q", ce.Error())
	}
	if !errors.Is(ce, inner) {
		t.Error("expected Unwrap to expose inner error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "Store", "AddUser", "insert") != nil {
		t.Error("wrapping nil must return nil")
	}

	err := Wrap(ErrInvalidData, "Store", "LoadFixture", "decode")
	want := "Store.LoadFixture: decode failed: invalid data format"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, ErrInvalidData) {
		t.Error("expected wrapped error to match sentinel")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.wrap(nil, "c", "m", "a") != nil {
				t.Fatal("wrapping nil must return nil")
			}

			err := test.wrap(base, "Bus", "Start", "connect")
			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ClassifiedError, got %T", err)
			}
			if ce.Class != test.class {
				t.Errorf("expected class %s, got %s", test.class, ce.Class)
			}
			if ce.Component != "Bus" || ce.Operation != "Start" {
				t.Errorf("unexpected context %s.%s", ce.Component, ce.Operation)
			}
			if !strings.HasPrefix(err.Error(), "Bus.Start: connect failed") {
				t.Errorf("unexpected message %q", err.Error())
			}
			if !errors.Is(err, base) {
				t.Error("expected chain to include base error")
			}
		})
	}
}
