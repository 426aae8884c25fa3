package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
)

// echoDialect is a minimal dialect speaking {"prompt":...} / {"text":...}.
type echoDialect struct{}

func (echoDialect) Name() string       { return "echo" }
func (echoDialect) ChatPath() string   { return "/chat" }
func (echoDialect) HealthPath() string { return "/health" }
func (echoDialect) Auth(key string) *httpclient.AuthConfig {
	return httpclient.BearerAuth(key)
}
func (echoDialect) Headers() map[string]string { return map[string]string{"X-Dialect": "echo"} }

func (echoDialect) BuildRequest(req CompletionRequest) (any, error) {
	return map[string]any{
		"model":       req.Model,
		"system":      req.SystemPrompt,
		"prompt":      req.Messages[len(req.Messages)-1].Content,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}, nil
}

func (echoDialect) ParseResponse(body []byte) (*CompletionResponse, error) {
	var out struct {
		Text string `json:"text"`
		In   int    `json:"in"`
		Out  int    `json:"out"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &CompletionResponse{Content: out.Text, Usage: Usage{PromptTokens: out.In, CompletionTokens: out.Out}}, nil
}

func (echoDialect) ParseError(body []byte) string { return ParseJSONErrorMessage(body) }

func newEchoAdapter(t *testing.T, url, key, credEnv string) *Adapter {
	t.Helper()
	a, err := NewWithDialect(echoDialect{}, Config{
		BaseURL:       url,
		Model:         "m1",
		Temperature:   0.1,
		MaxTokens:     50,
		APIKey:        key,
		CredentialEnv: credEnv,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAdapter_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" || r.Header.Get("X-Dialect") != "echo" {
			t.Errorf("missing headers: %v", r.Header)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "m1" || body["temperature"] != 0.1 || body["max_tokens"] != float64(50) {
			t.Errorf("defaults not applied: %v", body)
		}
		_, _ = w.Write([]byte(`{"text":"` + body["prompt"].(string) + `!","in":3,"out":4}`))
	}))
	defer srv.Close()

	a := newEchoAdapter(t, srv.URL, "k", "ECHO_KEY")
	if a.Name() != "echo" {
		t.Errorf("name = %q", a.Name())
	}
	got, err := Complete(context.Background(), a, "sys", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi!" {
		t.Errorf("content = %q", got)
	}

	resp, _ := a.Execute(context.Background(), CompletionRequest{Messages: UserMessage("x")})
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestAdapter_MissingCredential(t *testing.T) {
	a := newEchoAdapter(t, "http://unused.invalid", "", "ECHO_KEY")
	err := a.CheckCredentials()
	if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := a.Execute(context.Background(), CompletionRequest{Messages: UserMessage("x")}); !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("execute should fail before any call, got %v", err)
	}
	if a.IsAvailable(context.Background()) {
		t.Error("adapter without credential should not be available")
	}

	keyless := newEchoAdapter(t, "http://unused.invalid", "", "")
	if keyless.CheckCredentials() != nil {
		t.Error("dialects without a credential env never fail the check")
	}
}

func TestAdapter_ErrorBodyBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := newEchoAdapter(t, srv.URL, "k", "").Execute(context.Background(), CompletionRequest{Messages: UserMessage("x")})
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	if appErr.Message != "echo request failed: invalid x-api-key" {
		t.Errorf("message = %q", appErr.Message)
	}
	if !httpclient.IsAuth(err) {
		t.Error("http error should stay reachable through the chain")
	}
}

func TestAdapter_HealthPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if !newEchoAdapter(t, srv.URL, "k", "").IsAvailable(context.Background()) {
		t.Error("expected adapter to be available")
	}
}

func TestNewWithDialect_Validation(t *testing.T) {
	if _, err := NewWithDialect(nil, Config{}); err != ErrNoDialect {
		t.Errorf("expected ErrNoDialect, got %v", err)
	}
	if _, err := NewWithDialect(echoDialect{}, Config{Model: "m"}); err == nil {
		t.Error("expected error for missing base url")
	}
}

func TestDialectRegistry(t *testing.T) {
	RegisterDialect("echo-test", echoDialect{})
	d, err := GetDialect("echo-test")
	if err != nil || d.Name() != "echo" {
		t.Fatalf("GetDialect = %v, %v", d, err)
	}
	if _, err := GetDialect("missing"); err == nil {
		t.Error("expected error for unknown dialect")
	}
	found := false
	for _, n := range Dialects() {
		if n == "echo-test" {
			found = true
		}
	}
	if !found {
		t.Error("registered dialect not listed")
	}
}

func TestParseJSONErrorMessage(t *testing.T) {
	tests := map[string]string{
		`{"error":{"message":"nested"}}`: "nested",
		`{"error":"flat"}`:               "flat",
		`not json`:                       "",
	}
	for body, want := range tests {
		if got := ParseJSONErrorMessage([]byte(body)); got != want {
			t.Errorf("ParseJSONErrorMessage(%s) = %q, want %q", body, got, want)
		}
	}
}
