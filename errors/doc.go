// Package errors provides the structured error type shared by every layer of
// the service: stores, provider clients, the processing pipeline and the HTTP
// API. Errors carry a machine-readable code, an HTTP status and a retryable
// flag, and render to clients as RFC 7807 style bodies.
package errors
