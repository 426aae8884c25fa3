package errors

import (
	"fmt"
	"maps"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Retryable tells clients and the pipeline that the same request may
	// succeed later.
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New creates an error whose retryability follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

// build is New with the code's catalog status and optional details given
// as alternating keys and values.
func build(code ErrorCode, message string, kv ...any) *AppError {
	e := New(code, message, StatusOf(code))
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

// Availability.

func ServiceUnavailable(service string) *AppError {
	return build(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service), "service", service)
}

func ConnectionFailed(service string) *AppError {
	return build(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s.", service), "service", service)
}

func Timeout(operation string) *AppError {
	return build(ErrCodeTimeout,
		fmt.Sprintf("%s took too long.", operation), "operation", operation)
}

func RateLimited() *AppError {
	return build(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// Resources.

// NotFound names the missing resource, and its id when known.
func NotFound(resource, id string) *AppError {
	if id == "" {
		return build(ErrCodeNotFound,
			fmt.Sprintf("The requested %s was not found.", resource), "resource", resource)
	}
	return build(ErrCodeNotFound,
		fmt.Sprintf("%s %s was not found.", resource, id), "resource", resource, "id", id)
}

func AlreadyExists(resource string) *AppError {
	return build(ErrCodeAlreadyExists,
		fmt.Sprintf("A %s with these details already exists.", resource), "resource", resource)
}

func Conflict(reason string) *AppError {
	return build(ErrCodeConflict, reason)
}

// VersionConflict is returned for writes that carried a stale version.
func VersionConflict(resource, id string, expected int) *AppError {
	return build(ErrCodeVersionConflict,
		fmt.Sprintf("%s %s was modified concurrently.", resource, id),
		"resource", resource, "id", id, "expected_version", expected)
}

// Input.

func InvalidInput(field, reason string) *AppError {
	e := build(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func Validation(message string) *AppError {
	return build(ErrCodeInvalidInput, message)
}

func MissingField(field string) *AppError {
	return build(ErrCodeMissingField, "Missing required field: "+field, "field", field)
}

// PayloadTooLarge reports the limit in whole megabytes.
func PayloadTooLarge(limit int64) *AppError {
	return build(ErrCodePayloadTooLarge,
		fmt.Sprintf("File too large. Maximum size: %dMB", limit>>20), "limit_bytes", limit)
}

func UnsupportedMedia(mimeType string) *AppError {
	return build(ErrCodeUnsupportedMedia,
		"Unsupported audio format. Use MP3, WAV or OGG.", "mime_type", mimeType)
}

// Authentication.

func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return build(ErrCodeUnauthorized, reason)
}

func TokenExpired() *AppError {
	return build(ErrCodeTokenExpired, "Your session has expired. Please log in again.")
}

func InvalidToken() *AppError {
	return build(ErrCodeInvalidToken, "Invalid authentication token.")
}

// Providers.

// Configuration reports a missing setting, usually a provider credential.
func Configuration(setting string) *AppError {
	return build(ErrCodeConfiguration,
		setting+" is not configured", "setting", setting)
}

func ProviderError(provider string, cause error) *AppError {
	return build(ErrCodeProvider,
		provider+" returned an error", "provider", provider).WithCause(cause)
}

// ProviderTimeout is the bounded wait on a provider elapsing.
func ProviderTimeout(provider string, after time.Duration) *AppError {
	return build(ErrCodeProviderTimeout,
		fmt.Sprintf("%s did not respond within %s", provider, after),
		"provider", provider, "timeout", after.String())
}

// Internal.

func Internal(cause error) *AppError {
	return build(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return build(ErrCodeDatabaseError, "A database error occurred.").WithCause(cause)
}

func StorageError(operation string, cause error) *AppError {
	return build(ErrCodeStorageError,
		fmt.Sprintf("Audio storage failed to %s.", operation), "operation", operation).WithCause(cause)
}
