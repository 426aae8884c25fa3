// Package server runs the HTTP API: a Gin engine behind an h2c handler so
// browsers on HTTP/2 proxies and plain HTTP/1.1 clients share one port.
//
// The standard middleware stack is applied with ApplyMiddleware, in order:
// recovery, request ID, CORS, body size limit, request logging, optional
// rate limiting and optional bearer authentication. Default endpoints
// (/health, /livez, /readyz, /version, /info, /metrics) are registered with
// RegisterDefaultEndpoints and never require a token.
//
// Handlers reply through RespondOK, RespondCreated and RespondWithError so
// every success is {"data": ...} and every failure is {"error": {...}}.
package server
