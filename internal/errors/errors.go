package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SpecInvalid indicates an artifact failed schema validation
	SpecInvalid ErrorCode = "SPEC_INVALID"
	// EntryNotFound indicates the entry file or directory does not exist
	EntryNotFound ErrorCode = "ENTRY_NOT_FOUND"
	// PackageLoadFailed indicates no package could be loaded from the entry
	PackageLoadFailed ErrorCode = "PACKAGE_LOAD_FAILED"
	// CacheIO indicates the spec cache could not be read or written
	CacheIO ErrorCode = "CACHE_IO"
	// SandboxUnavailable indicates the selected sandbox backend cannot run
	SandboxUnavailable ErrorCode = "SANDBOX_UNAVAILABLE"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InvalidRequest indicates a malformed request body or argument
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Tool        string        `json:"tool,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// DoccovError is an error with a stable code, message and suggested fixes.
type DoccovError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        any         `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a DoccovError carrying the default fixes for code.
func New(code ErrorCode, message string, cause error) *DoccovError {
	return &DoccovError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
		cause:          cause,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *DoccovError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *DoccovError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DoccovError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *DoccovError) WithDetails(details any) *DoccovError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first DoccovError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var de *DoccovError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var de *DoccovError
	return stderrors.As(err, &de) && de.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SpecInvalid: {
		{
			Type:        RunCommand,
			Command:     "doccov spec --no-cache",
			Safe:        true,
			Description: "Regenerate the spec from source",
		},
	},
	CacheIO: {
		{
			Type:        RunCommand,
			Command:     "doccov cache clear",
			Safe:        true,
			Description: "Remove the spec cache and re-extract",
		},
	},
	SandboxUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "go",
			Description: "Install a Go toolchain, or select the container backend with DOCCOV_SANDBOX_BACKEND=container",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".doccov/config.json",
			Description: "Fix the reported configuration field",
		},
		{
			Type:        RunCommand,
			Command:     "doccov config init --force",
			Description: "Rewrite the configuration with defaults",
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
