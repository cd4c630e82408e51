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

	// Process manager errors
	ErrCodeManagerUnavailable ErrorCode = "MANAGER_UNAVAILABLE"
	ErrCodeSessionVanished    ErrorCode = "SESSION_VANISHED"
	ErrCodeCaptureTimeout     ErrorCode = "CAPTURE_TIMEOUT"
	ErrCodeCreateConflict     ErrorCode = "CREATE_CONFLICT"
	ErrCodeCommandFailed      ErrorCode = "COMMAND_FAILED"

	// Persistence errors
	ErrCodeMetadataCorrupt ErrorCode = "METADATA_CORRUPT"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// HiveError represents a structured error with context
type HiveError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *HiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HiveError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *HiveError) WithDetail(key string, value interface{}) *HiveError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *HiveError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new HiveError
func New(code ErrorCode, message string) *HiveError {
	return &HiveError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a HiveError
func Wrap(err error, code ErrorCode, message string) *HiveError {
	return &HiveError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific HiveError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	hiveErr, ok := err.(*HiveError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return hiveErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	hiveErr, ok := err.(*HiveError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return hiveErr.Code
}
