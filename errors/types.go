package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Discovery errors
	ErrCodeProbeFailed        ErrorCode = "PROBE_FAILED"
	ErrCodeLocatorFailed      ErrorCode = "LOCATOR_FAILED"
	ErrCodeResolveFailed      ErrorCode = "RESOLVE_FAILED"
	ErrCodeExecutableNotFound ErrorCode = "EXECUTABLE_NOT_FOUND"

	// Transport errors
	ErrCodeMalformedFrame   ErrorCode = "TRANSPORT_MALFORMED"
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
	ErrCodeMethodNotFound   ErrorCode = "METHOD_NOT_FOUND"

	// Command execution errors
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// FinderError represents a structured error with context
type FinderError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *FinderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FinderError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *FinderError) WithDetail(key string, value interface{}) *FinderError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON renders the error for verbose CLI output.
func (e *FinderError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new FinderError
func New(code ErrorCode, message string) *FinderError {
	return &FinderError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FinderError
func Wrap(err error, code ErrorCode, message string) *FinderError {
	return &FinderError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether any error in err's chain is a FinderError with code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the first FinderError code found in the chain.
func GetCode(err error) ErrorCode {
	for err != nil {
		if fe, ok := err.(*FinderError); ok {
			return fe.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
