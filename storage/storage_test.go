package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
)

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"Sessão Plenária 01.MP3": "sess_o_plen_ria_01.mp3",
		"a  b__c.wav":            "a_b_c.wav",
		"../../etc/passwd":       "passwd",
		`C:\audio\x.ogg`:         "x.ogg",
		"":                       "audio",
		"***":                    "audio",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAudioKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := AudioKey(now, "Reunião.mp3"); got != "1700000000123_reuni_o.mp3" {
		t.Errorf("AudioKey = %q", got)
	}
}

type recordingStore struct {
	Storage
	key  string
	data string
	err  error
}

func (r *recordingStore) Upload(_ context.Context, key string, rd io.Reader) error {
	b, _ := io.ReadAll(rd)
	r.key, r.data = key, string(b)
	return r.err
}

func TestSaveAudio(t *testing.T) {
	s := &recordingStore{}
	key, err := SaveAudio(context.Background(), s, time.UnixMilli(5), "A.mp3", strings.NewReader("ID3"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "5_a.mp3" || s.key != key || s.data != "ID3" {
		t.Errorf("saved %q as %q (%q)", s.data, s.key, key)
	}

	s.err = errors.New("disk full")
	_, err = SaveAudio(context.Background(), s, time.UnixMilli(5), "A.mp3", strings.NewReader("ID3"))
	if !apperrors.HasCode(err, apperrors.ErrCodeStorageError) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "x..y"} {
		if ValidateKey(bad) == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	if err := ValidateKey("1700_a.mp3"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Provider != ProviderLocal || cfg.Local.BasePath != "./uploads" {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	s3cfg := Config{Provider: ProviderS3}
	s3cfg.ApplyDefaults()
	if err := s3cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Errorf("expected bucket error, got %v", err)
	}

	if err := (&Config{Provider: "ftp"}).Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}
