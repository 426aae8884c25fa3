// Package transcription defines the speech-to-text provider contract.
//
// A backend is a provider.RequestResponse[Request, *Response]. Backends are
// registered by name and wrapped with Wrap, which adds logging, tracing, the
// transcription timeout and retry.
//
//   - transcription/groq: Groq's hosted Whisper (OpenAI-compatible API)
//   - transcription/whisper: a self-hosted faster-whisper HTTP sidecar
package transcription
