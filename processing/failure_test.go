package processing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantPrefix string
	}{
		{
			name:       "missing credential",
			err:        apperrors.Configuration("ANTHROPIC_API_KEY"),
			wantKind:   KindConfiguration,
			wantPrefix: "Configuration error: ANTHROPIC_API_KEY is not configured",
		},
		{
			name:       "missing audio",
			err:        apperrors.NotFound("audio file", "a.mp3"),
			wantKind:   KindNotFound,
			wantPrefix: "Not found:",
		},
		{
			name:       "provider deadline",
			err:        apperrors.ProviderTimeout("anthropic", 5*time.Minute).WithCause(context.DeadlineExceeded),
			wantKind:   KindProviderTimeout,
			wantPrefix: "Provider timeout: anthropic did not respond within 5m0s",
		},
		{
			name:       "bare deadline",
			err:        fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantKind:   KindProviderTimeout,
			wantPrefix: "Provider timeout:",
		},
		{
			name:       "connection refused",
			err:        &httpclient.Error{Code: httpclient.ErrCodeConnection, Message: "dial tcp: connection refused"},
			wantKind:   KindNetwork,
			wantPrefix: "Network error:",
		},
		{
			name:       "client timeout",
			err:        &httpclient.Error{Code: httpclient.ErrCodeTimeout, Message: "request timed out"},
			wantKind:   KindNetwork,
			wantPrefix: "Network error:",
		},
		{
			name:       "provider rejected request",
			err:        apperrors.ProviderError("groq", &httpclient.Error{StatusCode: 400, Code: httpclient.ErrCodeValidation, Message: "bad file"}),
			wantKind:   KindProvider,
			wantPrefix: "Provider error:",
		},
		{
			name:       "provider wrapping network",
			err:        apperrors.ProviderError("groq", &httpclient.Error{Code: httpclient.ErrCodeConnection, Message: "reset"}),
			wantKind:   KindNetwork,
			wantPrefix: "Network error:",
		},
		{
			name:       "rate limited",
			err:        apperrors.RateLimited(),
			wantKind:   KindProvider,
			wantPrefix: "Provider error:",
		},
		{
			name:       "anything else",
			err:        errors.New("disk on fire"),
			wantKind:   KindUnknown,
			wantPrefix: "disk on fire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.err)
			if f.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", f.Kind, tt.wantKind)
			}
			if len(f.Message) < len(tt.wantPrefix) || f.Message[:len(tt.wantPrefix)] != tt.wantPrefix {
				t.Errorf("message = %q, want prefix %q", f.Message, tt.wantPrefix)
			}
		})
	}
}

func TestClassify_Stage(t *testing.T) {
	f := Classify(inStage(StageCorrect, errors.New("boom")))
	if f.Stage != StageCorrect {
		t.Errorf("stage = %q", f.Stage)
	}
	if f.Message != "boom" {
		t.Errorf("message = %q, stage prefix must not leak", f.Message)
	}
	if inStage(StageCorrect, nil) != nil {
		t.Error("inStage(nil) must be nil")
	}
}
