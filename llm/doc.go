// Package llm provides a config-driven chat completion adapter built on the
// shared httpclient.
//
// The adapter works with any provider through the Dialect pattern, similar to
// how database/sql works with driver packages. A Dialect maps the universal
// [CompletionRequest] and [CompletionResponse] to and from one provider's JSON
// format; the [Adapter] handles transport, auth and error mapping.
//
// Dialect packages register themselves on import:
//
//	import _ "github.com/fernandomesquita/stenopro/llm/anthropic"
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "anthropic",
//	    BaseURL: "https://api.anthropic.com",
//	    Model:   "claude-sonnet-4-20250514",
//	    APIKey:  key,
//	})
//
// The Adapter implements provider.RequestResponse, so the provider package
// middleware (logging, tracing, timeout, resilience) applies to it directly.
package llm
