// Package provider is the generic provider framework used by the
// speech-to-text and language-model backends.
//
// A backend implements RequestResponse[I, O]. Cross-cutting behavior is
// layered on with Middleware and composed with Chain:
//
//	p := provider.Chain(
//	    provider.WithLogging[Req, *Resp](log),
//	    provider.WithTracing[Req, *Resp]("stenopro"),
//	    provider.WithTimeout[Req, *Resp](10*time.Minute, toTimeoutErr),
//	    provider.WithResilience[Req, *Resp]("groq", cfg),
//	)(raw)
//
// Backends are registered in a Registry by name and selected from
// configuration. Adapt maps a backend's types onto a domain interface.
package provider
