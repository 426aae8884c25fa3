package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/provider"
)

// ErrNoDialect is returned by NewWithDialect for a nil dialect.
var ErrNoDialect = errors.New("llm: dialect is required")

// Adapter is a config-driven LLM client that works with any provider via a
// Dialect.
type Adapter struct {
	name          string
	client        *httpclient.Client
	dialect       Dialect
	model         string
	temp          float64
	maxTokens     int
	apiKey        string
	credentialEnv string
}

var (
	_ Provider                   = (*Adapter)(nil)
	_ provider.CredentialChecker = (*Adapter)(nil)
)

// New creates an adapter using the dialect registered under cfg.Dialect.
func New(cfg Config) (*Adapter, error) {
	dialect, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(dialect, cfg)
}

// NewWithDialect creates an adapter with an explicit dialect instance.
func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = dialect.Name()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range dialect.Headers() {
		headers[k] = v
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    dialect.Auth(cfg.APIKey),
		Headers: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create http client: %w", err)
	}

	return &Adapter{
		name:          cfg.Name,
		client:        client,
		dialect:       dialect,
		model:         cfg.Model,
		temp:          cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		apiKey:        cfg.APIKey,
		credentialEnv: cfg.CredentialEnv,
	}, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.name }

// IsAvailable reports whether the provider can take requests. Providers
// with a health endpoint are probed; the others only need a credential.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if a.CheckCredentials() != nil {
		return false
	}
	hp := a.dialect.HealthPath()
	if hp == "" {
		return true
	}
	_, err := a.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: hp})
	return err == nil
}

// CheckCredentials fails when the dialect needs an API key and none is set.
func (a *Adapter) CheckCredentials() error {
	if a.credentialEnv != "" && strings.TrimSpace(a.apiKey) == "" {
		return apperrors.Configuration(a.credentialEnv)
	}
	return nil
}

// Execute sends a completion request and returns the full response.
//
// Transport failures are returned as *httpclient.Error. Error responses
// from the provider become PROVIDER_ERROR app errors carrying the provider's
// own message; the *httpclient.Error stays reachable through errors.As.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := a.CheckCredentials(); err != nil {
		return nil, err
	}
	a.applyDefaults(&req)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   a.dialect.ChatPath(),
		Body:   body,
	})
	if err != nil {
		return nil, a.wrapError(err)
	}

	result, err := a.dialect.ParseResponse(resp.Body)
	if err != nil {
		return nil, apperrors.ProviderError(a.name, fmt.Errorf("parse response: %w", err))
	}
	if result.Usage.TotalTokens == 0 {
		result.Usage.TotalTokens = result.Usage.PromptTokens + result.Usage.CompletionTokens
	}
	return result, nil
}

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}

func (a *Adapter) wrapError(err error) error {
	var httpErr *httpclient.Error
	if !errors.As(err, &httpErr) || httpErr.StatusCode == 0 {
		return err
	}
	msg := a.dialect.ParseError(httpErr.Body)
	if msg == "" {
		msg = httpErr.Message
	}
	appErr := apperrors.ProviderError(a.name, httpErr).WithDetail("status", httpErr.StatusCode)
	appErr.Message = fmt.Sprintf("%s request failed: %s", a.name, msg)
	return appErr
}

// ParseJSONErrorMessage reads the common {"error":{"message":...}} and
// {"error":"..."} error body shapes.
func ParseJSONErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil {
		return flat.Error
	}
	return ""
}
