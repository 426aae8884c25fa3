package transcript

import "fmt"

// Status is the lifecycle state of a transcription.
type Status string

const (
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusCorrecting   Status = "correcting"
	StatusReady        Status = "ready"
	StatusArchived     Status = "archived"
	StatusError        Status = "error"
)

// Progress is the percent and message shown for a status.
type Progress struct {
	Percent int
	Message string
}

var progressTable = map[Status]Progress{
	StatusUploading:    {0, "Uploading audio…"},
	StatusTranscribing: {33, "Transcribing audio…"},
	StatusCorrecting:   {66, "Correcting text…"},
	StatusReady:        {100, "Done"},
	StatusArchived:     {100, "Archived"},
	StatusError:        {0, "Processing failed"},
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusUploading, StatusTranscribing, StatusCorrecting, StatusReady, StatusArchived, StatusError}
}

// ProgressOf returns the progress row for s.
func ProgressOf(s Status) Progress {
	return progressTable[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := progressTable[s]
	return ok
}

// InFlight reports whether a run is advancing a record in this status.
func (s Status) InFlight() bool {
	return s == StatusUploading || s == StatusTranscribing || s == StatusCorrecting
}

// Terminal reports whether only reprocess can move a record out of s.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError || s == StatusArchived
}

// ParseStatus validates a status name.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}
