package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// IncompatibleVersion indicates a Blueprint written by a newer engine
	IncompatibleVersion ErrorCode = "INCOMPATIBLE_VERSION"
	// MalformedBlueprint indicates a structurally invalid Blueprint document
	MalformedBlueprint ErrorCode = "MALFORMED_BLUEPRINT"
	// BlueprintMissing indicates no Blueprint artifact was found or loaded
	BlueprintMissing ErrorCode = "BLUEPRINT_MISSING"
	// UnknownRoot indicates a dependency-tree root absent from the Blueprint
	UnknownRoot ErrorCode = "UNKNOWN_ROOT"
	// UnknownSymbol indicates a symbol id absent from the Blueprint
	UnknownSymbol ErrorCode = "UNKNOWN_SYMBOL"
	// InvalidFacts indicates extracted facts violating Blueprint invariants
	InvalidFacts ErrorCode = "INVALID_FACTS"
	// InvalidArgument indicates a malformed query parameter
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// Cancelled indicates the operation was cancelled between phases
	Cancelled ErrorCode = "CANCELLED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Drilldown represents a suggested follow-up query
type Drilldown struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

// AtlasError represents an engine error with code, message, and suggestions
type AtlasError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	Drilldowns     []Drilldown `json:"drilldowns,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewAtlasError creates a new AtlasError
func NewAtlasError(code ErrorCode, message string, cause error, suggestedFixes []FixAction, drilldowns []Drilldown) *AtlasError {
	return &AtlasError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
		Drilldowns:     drilldowns,
	}
}

// New creates an AtlasError carrying the default fixes for its code.
func New(code ErrorCode, message string, cause error) *AtlasError {
	return NewAtlasError(code, message, cause, GetSuggestedFixes(code), nil)
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *AtlasError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AtlasError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AtlasError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AtlasError) WithDetails(details interface{}) *AtlasError {
	e.Details = details
	return e
}

// WithDrilldowns attaches follow-up queries to the error
func (e *AtlasError) WithDrilldowns(drilldowns ...Drilldown) *AtlasError {
	e.Drilldowns = append(e.Drilldowns, drilldowns...)
	return e
}

// Code returns the code of the first AtlasError in err's chain, or
// InternalError when there is none.
func Code(err error) ErrorCode {
	var ae *AtlasError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var ae *AtlasError
	return stderrors.As(err, &ae) && ae.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IncompatibleVersion: {
		{
			Type:        RunCommand,
			Command:     "atlas generate",
			Safe:        true,
			Description: "Regenerate the Blueprint with this engine version",
		},
	},
	MalformedBlueprint: {
		{
			Type:        RunCommand,
			Command:     "atlas generate",
			Safe:        true,
			Description: "Regenerate the Blueprint artifact",
		},
	},
	BlueprintMissing: {
		{
			Type:        RunCommand,
			Command:     "atlas generate --facts <facts.json>",
			Safe:        true,
			Description: "Generate a Blueprint from extracted facts",
		},
	},
	UnknownRoot: {
		{
			Type:        RunCommand,
			Command:     "atlas entrypoints",
			Safe:        true,
			Description: "List detected entry points to pick a root",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
