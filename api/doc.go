// Package api exposes transcriptions, the glossary and prompts over HTTP.
//
// Handlers translate requests into store and pipeline calls and answer with
// the server package's envelopes: {"data": ...} on success and
// {"error": {...}} built from app errors on failure.
package api
