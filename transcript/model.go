package transcript

import "time"

// Transcription is one uploaded recording and the texts derived from it.
type Transcription struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;default:1" json:"userId"`

	Title         string `gorm:"size:255;not null" json:"title"`
	Room          string `gorm:"size:100;index" json:"room,omitempty"`
	AudioURL      string `gorm:"size:512;not null;default:''" json:"audioUrl"`
	AudioFilename string `gorm:"size:255;not null" json:"audioFilename"`

	DurationSeconds *int    `json:"durationSeconds"`
	RawText         *string `json:"rawText"`
	CorrectedText   *string `json:"correctedText"`
	FinalText       *string `json:"finalText"`
	CustomPrompt    *string `json:"customPrompt"`

	Status          Status  `gorm:"size:20;not null;default:uploading;index" json:"status"`
	ProgressMessage string  `gorm:"size:255" json:"progressMessage"`
	ProgressPercent int     `gorm:"not null;default:0" json:"progressPercent"`
	ErrorMessage    *string `json:"errorMessage"`

	ProcessingStartedAt   *time.Time `json:"processingStartedAt"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name shared with the SQL migrations.
func (Transcription) TableName() string { return "transcriptions" }

// HasFinalText reports whether the editable text has content.
func (t *Transcription) HasFinalText() bool {
	return t.FinalText != nil && *t.FinalText != ""
}

// Text returns the best available text: final, then corrected, then raw.
func (t *Transcription) Text() string {
	for _, s := range []*string{t.FinalText, t.CorrectedText, t.RawText} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}
