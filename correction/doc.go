// Package correction turns a raw transcript into edited parliamentary
// shorthand notes by prompting an LLM backend.
//
// The prompt is the system prompt followed by the raw transcript, the
// glossary block when there are glossary entries, and fixed task
// instructions that require the reply to end with [EndMarker].
package correction
