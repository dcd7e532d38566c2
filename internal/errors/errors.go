// Package errors defines the structured error surface shared by the
// walletgate core. Every failure crossing a component boundary is a
// *GateError carrying a stable code, the component that produced it, and a
// diagnostic context map. Callers discriminate on Code; Context is opaque
// diagnostic payload and never contains secrets.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// GateError is a structured error type with context.
type GateError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *GateError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *GateError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *GateError) Is(target error) bool {
	var t *GateError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *GateError) WithContext(key string, value interface{}) *GateError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *GateError) WithComponent(component string) *GateError {
	e.Component = component

	return e
}

// Data returns the error in the wire shape consumed by other subsystems:
// the component plus every context entry, keyed as documented. The returned
// map is a copy; mutating it does not affect the error.
func (e *GateError) Data() map[string]interface{} {
	data := make(map[string]interface{}, len(e.Context)+1)
	if e.Component != "" {
		data["component"] = e.Component
	}
	for k, v := range e.Context {
		data[k] = v
	}

	return data
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *GateError {
	return &GateError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *GateError {
	return &GateError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewRateLimitError creates an admission-denied error.
func NewRateLimitError(code, message string) *GateError {
	return &GateError{
		Type:        ErrorTypeRateLimit,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewTransportError creates a transport error.
func NewTransportError(code, message string, cause error) *GateError {
	return &GateError{
		Type:        ErrorTypeTransport,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *GateError {
	return &GateError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *GateError {
	return &GateError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Recoverable
	}

	return false
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Type == ErrorTypeSecurity
	}

	return false
}

// CodeOf returns the structured code of err, or "" for non-GateError values.
func CodeOf(err error) string {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}

	return ""
}

// Common error codes.
const (
	// Origin validation failures.
	ErrCodeOriginMismatch = "origin_mismatch"
	ErrCodeOriginRequired = "origin_required"

	// Admission denials.
	ErrCodeRateLimited  = "rate_limit"
	ErrCodeBurstLimited = "burst_limit"
	ErrCodeBlocked      = "blocked"

	// Transport and config.
	ErrCodeTransportState  = "transport_state"
	ErrCodeTransportClosed = "transport_closed"
	ErrCodeDialFailed      = "dial_failed"
	ErrCodeConfigInvalid   = "config_invalid"
	ErrCodeInternalError   = "internal"
)

// Helper functions for common errors

// ErrOriginMismatch creates an origin mismatch security error.
func ErrOriginMismatch(claimed, trusted string) *GateError {
	return NewSecurityError(
		ErrCodeOriginMismatch,
		fmt.Sprintf("origin mismatch: claimed %q, trusted %q", claimed, trusted),
	)
}

// ErrOriginRequired creates a missing-origin security error.
func ErrOriginRequired() *GateError {
	return NewSecurityError(ErrCodeOriginRequired, "origin claim required but not present")
}
