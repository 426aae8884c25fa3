package llm

import "github.com/fernandomesquita/stenopro/provider"

// Provider is a chat completion backend.
type Provider = provider.RequestResponse[CompletionRequest, *CompletionResponse]

// NewRegistry creates a registry of LLM backends.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
