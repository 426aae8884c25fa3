// Package ollama provides the Ollama dialect for the llm adapter.
//
// Importing the package registers the "ollama" dialect.
package ollama

import (
	"encoding/json"
	"fmt"

	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/llm"
)

const (
	// DialectName is the registered name of the Ollama dialect.
	DialectName = "ollama"

	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1"
)

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// Dialect maps completions onto Ollama's native /api/chat endpoint.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string       { return DialectName }
func (Dialect) ChatPath() string   { return "/api/chat" }
func (Dialect) HealthPath() string { return "/api/tags" }

// Auth returns nil; a local Ollama takes no credential.
func (Dialect) Auth(string) *httpclient.AuthConfig { return nil }

func (Dialect) Headers() map[string]string { return nil }

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []llm.Message  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// BuildRequest prepends the system prompt as a system message and always
// asks for a non-streamed reply.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)

	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		opts = nil
	}
	return chatRequest{Model: req.Model, Messages: msgs, Options: opts}, nil
}

func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode chat response: %w", err)
	}
	return &llm.CompletionResponse{
		Content:    resp.Message.Content,
		Model:      resp.Model,
		StopReason: resp.DoneReason,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		},
	}, nil
}

func (Dialect) ParseError(body []byte) string { return llm.ParseJSONErrorMessage(body) }
