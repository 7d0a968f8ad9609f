package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewAtlasError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "atlas generate"}}
	drilldowns := []Drilldown{{Label: "Entry points", Query: "atlas entrypoints"}}

	err := NewAtlasError(UnknownRoot, "module 'x' not found", cause, fixes, drilldowns)

	if err.Code != UnknownRoot {
		t.Errorf("Code = %v, want %v", err.Code, UnknownRoot)
	}
	if err.Message != "module 'x' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "module 'x' not found")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
	if len(err.Drilldowns) != 1 {
		t.Errorf("len(Drilldowns) = %d, want 1", len(err.Drilldowns))
	}
}

func TestAtlasError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      MalformedBlueprint,
			message:   "blueprint is not valid JSON",
			cause:     errors.New("unexpected EOF"),
			wantParts: []string{"MALFORMED_BLUEPRINT", "blueprint is not valid JSON", "unexpected EOF"},
		},
		{
			name:      "without cause",
			code:      UnknownSymbol,
			message:   "Symbol 'foo' not found",
			cause:     nil,
			wantParts: []string{"UNKNOWN_SYMBOL", "Symbol 'foo' not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAtlasError(tt.code, tt.message, tt.cause, nil, nil)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestAtlasError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAtlasError(InternalError, "something went wrong", cause, nil, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := NewAtlasError(Cancelled, "generation cancelled", nil, nil, nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestAtlasError_WithDetails(t *testing.T) {
	err := Newf(IncompatibleVersion, "blueprint version %s is newer than %s", "9.0", "1.0")
	result := err.WithDetails(map[string]string{"found": "9.0"})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestCodeAndIs(t *testing.T) {
	base := New(IncompatibleVersion, "too new", nil)
	wrapped := fmt.Errorf("loading artifact: %w", base)

	if got := Code(wrapped); got != IncompatibleVersion {
		t.Errorf("Code(wrapped) = %v, want %v", got, IncompatibleVersion)
	}
	if !Is(wrapped, IncompatibleVersion) {
		t.Error("Is(wrapped, IncompatibleVersion) = false, want true")
	}
	if Is(wrapped, MalformedBlueprint) {
		t.Error("Is(wrapped, MalformedBlueprint) = true, want false")
	}
	if Is(nil, InternalError) {
		t.Error("Is(nil, ...) should be false")
	}
	if got := Code(errors.New("plain")); got != InternalError {
		t.Errorf("Code(plain) = %v, want %v", got, InternalError)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{IncompatibleVersion, false, 1},
		{MalformedBlueprint, false, 1},
		{BlueprintMissing, false, 1},
		{UnknownRoot, false, 1},
		{UnknownSymbol, true, 0},
		{Cancelled, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		IncompatibleVersion,
		MalformedBlueprint,
		BlueprintMissing,
		UnknownRoot,
		UnknownSymbol,
		InvalidFacts,
		InvalidArgument,
		Cancelled,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
