package whisper

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/transcription"
)

// ProviderName is the registered name of the Whisper sidecar backend.
const ProviderName = "whisper"

// Provider implements transcription.Provider using a faster-whisper HTTP sidecar.
type Provider struct {
	cfg    transcription.WhisperConfig
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

// New creates a Whisper sidecar provider.
func New(cfg transcription.WhisperConfig, timeout time.Duration) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{BaseURL: cfg.URL, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a registry factory for cfg.
func Factory(cfg transcription.WhisperConfig, timeout time.Duration) provider.Factory[transcription.Provider] {
	return func() (transcription.Provider, error) { return New(cfg, timeout) }
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the sidecar answers its health endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil
}

// Execute sends the audio file to the sidecar's /transcribe endpoint.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, apperrors.NotFound("audio file", filepath.Base(req.AudioPath)).WithCause(err)
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.AudioPath)
	}

	fields := map[string]string{"model": model}
	if lang != "" {
		fields["language"] = lang
	}

	var out whisperResponse
	err := p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    fileName,
				ContentType: req.ContentType,
				Open:        func() (io.ReadCloser, error) { return os.Open(req.AudioPath) },
			}},
		},
	}, &out)
	if err != nil {
		if httpclient.IsConnection(err) || httpclient.IsTimeout(err) {
			return nil, err
		}
		return nil, apperrors.ProviderError(ProviderName, err)
	}
	return out.toResponse(), nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func (w whisperResponse) toResponse() *transcription.Response {
	resp := &transcription.Response{Text: w.Text, Language: w.Language, Duration: w.Duration}
	for _, seg := range w.Segments {
		resp.Segments = append(resp.Segments, transcription.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return resp
}
