package transcription

import (
	"testing"
	"time"
)

func TestResponse_DurationSeconds(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want int
	}{
		{"reported", Response{Duration: 12.4}, 12},
		{"rounded up", Response{Duration: 11.6}, 12},
		{"from segments", Response{Segments: []Segment{{End: 3}, {End: 9.7}}}, 10},
		{"nothing", Response{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.DurationSeconds(); got != tt.want {
				t.Errorf("DurationSeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Provider != "groq" || c.Timeout != 10*time.Minute {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.Groq.Model != "whisper-large-v3" || c.Groq.Language != "pt" {
		t.Errorf("unexpected groq defaults %+v", c.Groq)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	c.Provider = "deepgram"
	if err := c.Validate(); err == nil {
		t.Error("unknown provider should not validate")
	}
}
