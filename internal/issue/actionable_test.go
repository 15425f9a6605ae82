// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name: "operation only",
			err: &ActionableError{
				Operation: "bundle packages",
			},
			expected: "failed to bundle packages",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "bundle packages",
				Resource:  "./shop",
			},
			expected: "failed to bundle packages: ./shop",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "read lock file",
				Cause:     errors.New("unexpected end of JSON input"),
			},
			expected: "failed to read lock file: unexpected end of JSON input",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "bundle packages",
				Resource:  "./shop",
				Cause:     errors.New("no module found at path acme/missing"),
			},
			expected: "failed to bundle packages: ./shop: no module found at path acme/missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ActionableError{
		Operation: "test",
		Cause:     cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap() should return the cause error")
	}

	errNoCause := &ActionableError{Operation: "test"}
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := &ActionableError{
		Operation: "test",
		Cause:     cause,
	}

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions are listed",
			err: &ActionableError{
				Operation: "bundle packages",
				Suggestions: []string{
					"Run 'composer install' to populate the vendor tree",
					"Use 'magepack list' to inspect what a pattern resolves to",
				},
			},
			contains: []string{
				"failed to bundle packages",
				"• Run 'composer install' to populate the vendor tree",
				"• Use 'magepack list' to inspect what a pattern resolves to",
			},
		},
		{
			name: "non-verbose omits the error chain",
			err: &ActionableError{
				Operation: "bundle packages",
				Cause:     errors.New("disk full"),
			},
			verbose:  false,
			excludes: []string{"Error chain:"},
		},
		{
			name: "verbose appends the error chain",
			err: &ActionableError{
				Operation: "bundle packages",
				Cause:     errors.New("disk full"),
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. disk full",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() missing %q in:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format() should not contain %q in:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	cause := errors.New("boom")

	err := NewErrorContext().
		WithOperation("bundle packages").
		WithResource("./shop").
		WithSuggestion("Check the base path").
		Wrap(cause).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil with an operation set")
	}
	if err.Operation != "bundle packages" || err.Resource != "./shop" {
		t.Errorf("Build() = %+v", err)
	}
	if len(err.Suggestions) != 1 {
		t.Errorf("got %d suggestions, want 1", len(err.Suggestions))
	}
	if !errors.Is(err, cause) {
		t.Error("Build() lost the wrapped cause")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	if err := NewErrorContext().WithResource("./shop").Build(); err != nil {
		t.Errorf("Build() = %v, want nil without an operation", err)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want nil without an operation", err)
	}
}
