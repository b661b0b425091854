// Copyright (c) 2025 A Bit of Help, Inc.

package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestOperationError(t *testing.T) {
	baseErr := errors.New("test error")
	oe := NewOperationError(ErrIOFailure, "open_input", "test-file.txt", baseErr)

	if oe.Operation != "open_input" {
		t.Errorf("Expected Operation to be %s, got %s", "open_input", oe.Operation)
	}
	if oe.Path != "test-file.txt" {
		t.Errorf("Expected Path to be %s, got %s", "test-file.txt", oe.Path)
	}
	if oe.Time.IsZero() {
		t.Error("Expected Time to be set")
	}

	msg := oe.Error()
	if !strings.Contains(msg, "open_input test-file.txt") || !strings.Contains(msg, "test error") {
		t.Errorf("Unexpected error string: %q", msg)
	}

	if !errors.Is(oe, ErrIOFailure) {
		t.Error("Expected error to match ErrIOFailure")
	}
	if !errors.Is(oe, baseErr) {
		t.Error("Expected error to keep the cause in its chain")
	}
}

func TestOperationError_NoCause(t *testing.T) {
	oe := NewOperationError(ErrPathTraversal, "validate_entry", "../evil", nil)
	if oe.Unwrap() != ErrPathTraversal {
		t.Errorf("Expected Unwrap() to return the sentinel, got %v", oe.Unwrap())
	}

	noPath := NewOperationError(ErrInvalidConfig, "validate_options", "", nil)
	if strings.Contains(noPath.Error(), "  ") {
		t.Errorf("Unexpected double space in %q", noPath.Error())
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
		expected  bool
	}{
		{"NotFound", NotFound("stat", "x", os.ErrNotExist), IsNotFoundError, true},
		{"NotFound keeps os cause", NotFound("stat", "x", os.ErrNotExist), func(err error) bool { return errors.Is(err, os.ErrNotExist) }, true},
		{"Unsupported", Unsupported("classify", "x", nil), IsUnsupportedError, true},
		{"IO", IO("write", "x", errors.New("disk full")), IsIOError, true},
		{"Corrupt", Corrupt("decode", "x", nil), IsCorruptStreamError, true},
		{"Traversal", Traversal("extract", "../x"), IsPathTraversalError, true},
		{"Config", InvalidConfig("validate", errors.New("level 0")), IsConfigError, true},
		{"Canceled sentinel", Canceled("copy", "x", context.Canceled), IsCancellationError, true},
		{"Deadline", context.DeadlineExceeded, IsCancellationError, true},
		{"Wrapped IO", fmt.Errorf("wrapped: %w", ErrIOFailure), IsIOError, true},
		{"Other error is not IO", errors.New("some other error"), IsIOError, false},
		{"IO is not corrupt", IO("write", "x", nil), IsCorruptStreamError, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.predicate(tc.err); got != tc.expected {
				t.Errorf("predicate(%v) = %v, expected %v", tc.err, got, tc.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{nil, KindUnknown},
		{errors.New("plain"), KindUnknown},
		{NotFound("stat", "x", nil), KindNotFound},
		{Unsupported("classify", "x", nil), KindUnsupported},
		{IO("read", "x", nil), KindIO},
		{Corrupt("decode", "x", nil), KindCorruptStream},
		{Traversal("extract", "/etc/passwd"), KindPathTraversal},
		{InvalidConfig("validate", nil), KindInvalidConfig},
		{IO("copy", "x", context.Canceled), KindCanceled},
	}

	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %s, expected %s", tc.err, got, tc.kind)
		}
	}
}
