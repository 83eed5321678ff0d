package tools

import (
	"errors"
	"fmt"
	"strings"
)

// Common error variables for tool operations.
var (
	// ErrInvalidDefinition indicates a tool definition is missing required fields
	ErrInvalidDefinition = errors.New("invalid tool definition")

	// ErrMissingName indicates a registration without a tool name
	ErrMissingName = errors.New("tool name is required")

	// ErrDuplicateName indicates a tool name was registered more than once
	ErrDuplicateName = errors.New("duplicate tool name")

	// ErrToolNotFound indicates a requested tool doesn't exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrValidationFailed indicates the provided parameters do not match the schema
	ErrValidationFailed = errors.New("parameter validation failed")

	// ErrTimeout indicates tool execution exceeded its timeout
	ErrTimeout = errors.New("execution timeout")

	// ErrExecutionFailed indicates the tool's own logic returned an error or panicked
	ErrExecutionFailed = errors.New("execution failed")

	// ErrCancelled indicates the caller cancelled the execution
	ErrCancelled = errors.New("execution cancelled")

	// ErrRateLimited indicates the tool's rate limit was exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrorType categorizes tool errors.
type ErrorType string

const (
	// ErrorTypeInvalidDefinition is raised by the Define* builders
	ErrorTypeInvalidDefinition ErrorType = "invalid_definition"

	// ErrorTypeMissingName is raised by Registry.Register
	ErrorTypeMissingName ErrorType = "missing_name"

	// ErrorTypeDuplicateName is logged (never returned) on overwrite
	ErrorTypeDuplicateName ErrorType = "duplicate_name"

	// ErrorTypeNotFound indicates lookup failures
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeValidation indicates parameter validation errors
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeTimeout indicates timeout errors
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeExecution indicates runtime execution errors
	ErrorTypeExecution ErrorType = "execution"

	// ErrorTypeCancellation indicates cancellation errors
	ErrorTypeCancellation ErrorType = "cancellation"

	// ErrorTypeRateLimit indicates rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeHook indicates a before-execute hook rejected the call
	ErrorTypeHook ErrorType = "hook"
)

var sentinelByType = map[ErrorType]error{
	ErrorTypeInvalidDefinition: ErrInvalidDefinition,
	ErrorTypeMissingName:       ErrMissingName,
	ErrorTypeDuplicateName:     ErrDuplicateName,
	ErrorTypeNotFound:          ErrToolNotFound,
	ErrorTypeValidation:        ErrValidationFailed,
	ErrorTypeTimeout:           ErrTimeout,
	ErrorTypeExecution:         ErrExecutionFailed,
	ErrorTypeCancellation:      ErrCancelled,
	ErrorTypeRateLimit:         ErrRateLimited,
}

// ToolError represents a detailed error from tool operations.
type ToolError struct {
	// Type categorizes the error
	Type ErrorType

	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// ToolName identifies the tool that caused the error
	ToolName string

	// Details provides additional error context
	Details map[string]interface{}

	// Cause is the underlying error, if any
	Cause error
}

// NewToolError creates a new tool error.
func NewToolError(errType ErrorType, code, message string) *ToolError {
	return &ToolError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.ToolName != "" {
		parts = append(parts, fmt.Sprintf("tool %q", e.ToolName))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Cause))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is matches the package sentinel for the error's type, or another ToolError
// with the same type and code.
func (e *ToolError) Is(target error) bool {
	if target == nil {
		return false
	}

	if sentinel, ok := sentinelByType[e.Type]; ok && sentinel == target {
		return true
	}

	if targetErr, ok := target.(*ToolError); ok {
		return e.Type == targetErr.Type && e.Code == targetErr.Code
	}

	return false
}

// WithToolName adds a tool name to the error.
func (e *ToolError) WithToolName(name string) *ToolError {
	e.ToolName = name
	return e
}

// WithCause adds an underlying cause to the error.
func (e *ToolError) WithCause(cause error) *ToolError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error.
func (e *ToolError) WithDetail(key string, value interface{}) *ToolError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func newValidationError(path, message string) *ValidationError {
	return &ValidationError{
		Path:    path,
		Message: message,
	}
}

// PartialError is returned by a tool that produced only part of its work.
// The engine reports it with status "partial".
type PartialError struct {
	Message string
}

func (e *PartialError) Error() string {
	return e.Message
}

// NewPartialError creates a PartialError with a formatted message.
func NewPartialError(format string, args ...interface{}) *PartialError {
	return &PartialError{Message: fmt.Sprintf(format, args...)}
}

func invalidDefinition(name, format string, args ...interface{}) *ToolError {
	return NewToolError(ErrorTypeInvalidDefinition, "INVALID_DEFINITION", fmt.Sprintf(format, args...)).
		WithToolName(name)
}

// errorTypeOf returns the ErrorType of err, defaulting to execution.
func errorTypeOf(err error) ErrorType {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Type
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorTypeValidation
	}
	return ErrorTypeExecution
}
