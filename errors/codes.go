package errors

import "net/http"

// ErrorCode is the machine-readable code sent to API clients.
type ErrorCode string

// Availability. Callers may retry these.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Resources.
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	// ErrCodeVersionConflict marks a write that carried a stale version.
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"
)

// Input.
const (
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
)

// Authentication.
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// External providers.
const (
	// ErrCodeConfiguration means a required setting, usually a credential,
	// is missing.
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeProvider        ErrorCode = "PROVIDER_ERROR"
	ErrCodeProviderTimeout ErrorCode = "PROVIDER_TIMEOUT"
)

// Internal failures.
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeStorageError  ErrorCode = "STORAGE_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var catalog = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},

	ErrCodeNotFound:        {http.StatusNotFound, false},
	ErrCodeAlreadyExists:   {http.StatusConflict, false},
	ErrCodeConflict:        {http.StatusConflict, false},
	ErrCodeVersionConflict: {http.StatusConflict, true},

	ErrCodeInvalidInput:     {http.StatusBadRequest, false},
	ErrCodeMissingField:     {http.StatusBadRequest, false},
	ErrCodePayloadTooLarge:  {http.StatusRequestEntityTooLarge, false},
	ErrCodeUnsupportedMedia: {http.StatusUnsupportedMediaType, false},

	ErrCodeUnauthorized: {http.StatusUnauthorized, false},
	ErrCodeTokenExpired: {http.StatusUnauthorized, false},
	ErrCodeInvalidToken: {http.StatusUnauthorized, false},

	ErrCodeConfiguration:   {http.StatusInternalServerError, false},
	ErrCodeProvider:        {http.StatusBadGateway, false},
	ErrCodeProviderTimeout: {http.StatusGatewayTimeout, true},

	ErrCodeInternal:      {http.StatusInternalServerError, false},
	ErrCodeDatabaseError: {http.StatusInternalServerError, true},
	ErrCodeStorageError:  {http.StatusInternalServerError, true},
}

// IsRetryableCode reports whether an operation failing with code may
// succeed if repeated.
func IsRetryableCode(code ErrorCode) bool {
	return catalog[code].retryable
}

// StatusOf returns the HTTP status for code, 500 for unknown codes.
func StatusOf(code ErrorCode) int {
	if info, ok := catalog[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
