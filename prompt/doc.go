// Package prompt stores versioned system prompts for the correction stage and
// reusable prompt templates that seed a transcription's custom prompt.
package prompt
