package llm

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role" yaml:"role"` // "user", "assistant"
	Content string `json:"content" yaml:"content"`
}

// CompletionRequest is the universal input for all LLM providers.
type CompletionRequest struct {
	// Model overrides the adapter's default model.
	Model string `json:"model,omitempty"`
	// Messages is the conversation history.
	Messages []Message `json:"messages"`
	// SystemPrompt is sent as the provider's system instruction.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Temperature controls randomness. Zero means the adapter default.
	Temperature float64 `json:"temperature,omitempty"`
	// MaxTokens limits the response length. 0 means the adapter default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionResponse is the universal output from all LLM providers.
type CompletionResponse struct {
	// Content is the generated text.
	Content string `json:"content"`
	// Model is the model that produced the response.
	Model string `json:"model"`
	// StopReason is the provider's reason for ending generation, if reported.
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UserMessage is shorthand for a single user turn.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}
