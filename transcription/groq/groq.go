package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/transcription"
)

// ProviderName is the registered name of the Groq backend.
const ProviderName = "groq"

// CredentialEnv is the environment variable holding the API key.
const CredentialEnv = "GROQ_API_KEY"

// Provider transcribes audio with Groq's OpenAI-compatible
// /audio/transcriptions endpoint.
type Provider struct {
	cfg    transcription.GroqConfig
	client *httpclient.Client
}

var (
	_ transcription.Provider     = (*Provider)(nil)
	_ provider.CredentialChecker = (*Provider)(nil)
)

// New creates a Groq provider whose uploads may take up to timeout. A
// missing API key is reported by CheckCredentials, not here.
func New(cfg transcription.GroqConfig, timeout time.Duration) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a registry factory for cfg.
func Factory(cfg transcription.GroqConfig, timeout time.Duration) provider.Factory[transcription.Provider] {
	return func() (transcription.Provider, error) { return New(cfg, timeout) }
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether a key is configured.
func (p *Provider) IsAvailable(_ context.Context) bool { return p.cfg.APIKey != "" }

// CheckCredentials fails with a configuration error when no key is set.
func (p *Provider) CheckCredentials() error {
	if p.cfg.APIKey == "" {
		return apperrors.Configuration(CredentialEnv)
	}
	return nil
}

// Execute uploads the audio file and returns the verbose transcription.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if err := p.CheckCredentials(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, apperrors.NotFound("audio file", filepath.Base(req.AudioPath)).WithCause(err)
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	language := p.cfg.Language
	if req.Language != "" {
		language = req.Language
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.AudioPath)
	}

	body := &httpclient.MultipartBody{
		Fields: map[string]string{
			"model":           model,
			"language":        language,
			"response_format": "verbose_json",
			"temperature":     strconv.FormatFloat(p.cfg.Temperature, 'f', -1, 64),
		},
		Files: []httpclient.FileField{{
			FieldName:   "file",
			FileName:    fileName,
			ContentType: req.ContentType,
			Open:        func() (io.ReadCloser, error) { return os.Open(req.AudioPath) },
		}},
	}

	var out verboseResponse
	err := p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/transcriptions",
		Body:   body,
	}, &out)
	if err != nil {
		return nil, wrapError(err)
	}
	return out.toResponse(), nil
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (v verboseResponse) toResponse() *transcription.Response {
	resp := &transcription.Response{Text: v.Text, Language: v.Language, Duration: v.Duration}
	for _, s := range v.Segments {
		resp.Segments = append(resp.Segments, transcription.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return resp
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// wrapError keeps transport failures as they are and turns HTTP failures
// into provider errors carrying Groq's own message.
func wrapError(err error) error {
	var httpErr *httpclient.Error
	if !errors.As(err, &httpErr) || httpErr.StatusCode == 0 {
		return err
	}
	msg := httpErr.Message
	var body errorBody
	if json.Unmarshal(httpErr.Body, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	appErr := apperrors.ProviderError(ProviderName, httpErr).WithDetail("status", httpErr.StatusCode)
	appErr.Message = fmt.Sprintf("Groq transcription failed: %s", msg)
	return appErr
}
