package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/fernandomesquita/stenopro/version"
)

// Request describes an outbound HTTP request.
type Request struct {
	Method string
	// Path is appended to the client's BaseURL. It may be a full URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts io.Reader, []byte, string, *MultipartBody or any value
	// that is JSON-encoded.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r Request) url(base string) string {
	if base == "" || strings.HasPrefix(r.Path, "http://") || strings.HasPrefix(r.Path, "https://") {
		return r.Path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
}

// build turns r into an *http.Request. Header precedence, lowest first:
// User-Agent, client defaults, request headers, then the body's content type
// when none was given.
func (r Request) build(ctx context.Context, cfg *Config) (*http.Request, error) {
	body, contentType, err := encodeBody(r.Body)
	if err != nil {
		return nil, NewValidationError("encode body: " + err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.url(cfg.BaseURL), body)
	if err != nil {
		return nil, NewValidationError("create request: " + err.Error())
	}

	if len(r.Query) > 0 {
		q := req.URL.Query()
		for k, v := range r.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("User-Agent", version.UserAgent())
	for _, hs := range []map[string]string{cfg.Headers, r.Headers} {
		for k, v := range hs {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	auth := cfg.Auth
	if r.Auth != nil {
		auth = r.Auth
	}
	auth.apply(req)
	return req, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}
