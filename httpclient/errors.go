package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	ErrCodeTimeout    ErrorCode = iota // request or dial timeout
	ErrCodeConnection                  // refused, DNS, reset, open circuit
	ErrCodeAuth                        // 401, 403
	ErrCodeNotFound                    // 404
	ErrCodeRateLimit                   // 429
	ErrCodeValidation                  // other 4xx, or a request that could not be built
	ErrCodeServer                      // 5xx
)

var codeNames = [...]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// Error is a classified HTTP client error. StatusCode is zero when the
// request never got a response.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: true, Err: err}
}

// NewTimeoutError wraps err as a retryable timeout.
func NewTimeoutError(err error) *Error { return wrap(ErrCodeTimeout, err) }

// NewConnectionError wraps err as a retryable transport failure.
func NewConnectionError(err error) *Error { return wrap(ErrCodeConnection, err) }

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// statusCodes maps the statuses with their own code. Anything else falls
// back to its class.
var statusCodes = map[int]ErrorCode{
	http.StatusUnauthorized:    ErrCodeAuth,
	http.StatusForbidden:       ErrCodeAuth,
	http.StatusNotFound:        ErrCodeNotFound,
	http.StatusTooManyRequests: ErrCodeRateLimit,
}

// ClassifyStatusCode returns nil for 2xx and a typed error otherwise.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	code, ok := statusCodes[statusCode]
	if !ok {
		code = ErrCodeServer
		if statusCode >= 400 && statusCode < 500 {
			code = ErrCodeValidation
		}
	}
	return &Error{
		StatusCode: statusCode,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  code == ErrCodeRateLimit || statusCode >= 500,
		Body:       body,
	}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func is(code ErrorCode) func(error) bool {
	return func(err error) bool {
		e, ok := asError(err)
		return ok && e.Code == code
	}
}

// Predicates over wrapped *Error values.
var (
	IsTimeout     = is(ErrCodeTimeout)
	IsConnection  = is(ErrCodeConnection)
	IsAuth        = is(ErrCodeAuth)
	IsNotFound    = is(ErrCodeNotFound)
	IsRateLimit   = is(ErrCodeRateLimit)
	IsServerError = is(ErrCodeServer)
)

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	e, ok := asError(err)
	return ok && e.Retryable
}
