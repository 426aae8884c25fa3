// Package anthropic provides the Anthropic Messages API dialect for the llm
// adapter.
//
// Importing the package registers the "anthropic" dialect.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/llm"
)

const (
	// DialectName is the registered name of the Anthropic dialect.
	DialectName = "anthropic"

	// CredentialEnv is the environment variable holding the API key.
	CredentialEnv = "ANTHROPIC_API_KEY"

	DefaultBaseURL    = "https://api.anthropic.com"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 16000
	DefaultAPIVersion = "2023-06-01"
)

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// Dialect maps completions onto POST /v1/messages.
type Dialect struct {
	// APIVersion overrides the anthropic-version header.
	APIVersion string
}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string       { return DialectName }
func (Dialect) ChatPath() string   { return "/v1/messages" }
func (Dialect) HealthPath() string { return "" }

func (Dialect) Auth(apiKey string) *httpclient.AuthConfig {
	return httpclient.APIKeyAuthHeader(apiKey, "x-api-key")
}

func (d Dialect) Headers() map[string]string {
	version := d.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return map[string]string{"anthropic-version": version}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Temperature float64       `json:"temperature"`
	Messages    []llm.Message `json:"messages"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// BuildRequest fills max_tokens with DefaultMaxTokens when unset, since the
// Messages API requires it.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("anthropic: at least one message is required")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return messagesRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
		Messages:    req.Messages,
	}, nil
}

// ParseResponse joins the text blocks of the reply. A reply without any
// text block is an error.
func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: decode messages response: %w", err)
	}
	var sb strings.Builder
	found := false
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		found = true
		sb.WriteString(block.Text)
	}
	if !found {
		return nil, fmt.Errorf("anthropic: response has no text content")
	}
	return &llm.CompletionResponse{
		Content:    sb.String(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// ParseError reads {"type":"error","error":{"type":...,"message":...}}.
func (Dialect) ParseError(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error.Message == "" {
		return ""
	}
	if resp.Error.Type != "" {
		return resp.Error.Type + ": " + resp.Error.Message
	}
	return resp.Error.Message
}
