package httpclient

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusBadRequest, ErrCodeValidation, false},
		{http.StatusUnauthorized, ErrCodeAuth, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{http.StatusBadGateway, ErrCodeServer, true},
	}
	for _, tt := range tests {
		e := ClassifyStatusCode(tt.status, []byte("body"))
		if e == nil {
			t.Fatalf("%d: expected error", tt.status)
		}
		if e.Code != tt.code || e.Retryable != tt.retryable {
			t.Errorf("%d: got %s retryable=%v", tt.status, e.Code, e.Retryable)
		}
		if string(e.Body) != "body" {
			t.Errorf("%d: body not kept", tt.status)
		}
	}
	if ClassifyStatusCode(http.StatusCreated, nil) != nil {
		t.Error("2xx should not be an error")
	}
}

func TestError_UnwrapAndString(t *testing.T) {
	root := errors.New("dial tcp: connection refused")
	err := NewConnectionError(root)
	if !errors.Is(err, root) {
		t.Error("expected cause to unwrap")
	}
	if err.Error() != "httpclient: connection: dial tcp: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if got := ClassifyStatusCode(500, nil).Error(); got != "httpclient: server (HTTP 500): HTTP 500" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrCodeRateLimit.String() != "rate_limit" || ErrorCode(99).String() != "unknown" {
		t.Error("unexpected code names")
	}
}

func TestAuth_Apply(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	BasicAuth("user", "pass").apply(req)
	if u, p, ok := req.BasicAuth(); !ok || u != "user" || p != "pass" {
		t.Errorf("basic auth not applied")
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com", nil)
	APIKeyAuthHeader("k", "").apply(req)
	if req.Header.Get("X-API-Key") != "k" {
		t.Error("api key should default to X-API-Key")
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com", nil)
	CustomAuth(func(r *http.Request) { r.Header.Set("X-Sig", "1") }).apply(req)
	if req.Header.Get("X-Sig") != "1" {
		t.Error("custom auth not applied")
	}

	var none *AuthConfig
	none.apply(req)
	if none.Scheme() != "none" || BearerAuth("t").Scheme() != "bearer" {
		t.Error("unexpected auth scheme names")
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := escapeQuotes(`a"b\c`); got != `a\"b\\c` {
		t.Errorf("escapeQuotes = %q", got)
	}
}
