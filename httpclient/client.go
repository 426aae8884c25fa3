package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fernandomesquita/stenopro/resilience"
)

// Client sends requests through, outermost first: retry, rate limiter,
// circuit breaker and an instrumented transport. Every layer is optional
// except the transport.
type Client struct {
	http   *http.Client
	config Config
	cb     *resilience.CircuitBreaker
	rl     *resilience.RateLimiter
}

// New creates a client. Each outbound request is a client span in the
// active trace.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(cfg.BaseURL, *cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Do executes req and reads the whole response. A non-2xx response comes
// back together with a classified *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry == nil {
		return c.attempt(ctx, req)
	}
	return resilience.Retry(ctx, *c.config.Retry, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, req)
	})
}

// DoJSON executes req and decodes a successful JSON response into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil || out == nil || len(resp.Body) == 0 {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Code: ErrCodeServer, Message: "decode response: " + err.Error(), Body: resp.Body, Err: err}
	}
	return nil
}

// Unwrap returns the underlying *http.Client.
func (c *Client) Unwrap() *http.Client { return c.http }

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, NewTimeoutError(err)
		}
	}
	if c.cb == nil {
		return c.send(ctx, req)
	}

	var resp *Response
	var sendErr error
	err := c.cb.Execute(func() error {
		resp, sendErr = c.send(ctx, req)
		return sendErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, NewConnectionError(err)
	}
	return resp, sendErr
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := req.build(ctx, &c.config)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if err := ClassifyStatusCode(resp.StatusCode, body); err != nil {
		return out, err
	}
	return out, nil
}

// transportError treats an expired context or a network timeout as a
// timeout and anything else as a connection failure.
func transportError(ctx context.Context, err error) *Error {
	var netErr net.Error
	if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}
