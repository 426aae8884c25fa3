package processing

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
)

// Kind is the classification of a failed run.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindNotFound        Kind = "not_found"
	KindNetwork         Kind = "network"
	KindProviderTimeout Kind = "provider_timeout"
	KindProvider        Kind = "provider"
	KindUnknown         Kind = "unknown"
)

// Pipeline stages.
const (
	StagePrepare    = "prepare"
	StageTranscribe = "transcribe"
	StageCorrect    = "correct"
)

// Failure is a classified run error. Message is what gets persisted as the
// record's errorMessage.
type Failure struct {
	Kind    Kind
	Stage   string
	Message string
}

// StageError tags an error with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

func inStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

var kindPrefix = map[Kind]string{
	KindConfiguration:   "Configuration error",
	KindNotFound:        "Not found",
	KindNetwork:         "Network error",
	KindProviderTimeout: "Provider timeout",
	KindProvider:        "Provider error",
}

// withCause lists the kinds whose message carries the underlying error.
var withCause = map[Kind]bool{KindNetwork: true, KindProvider: true, KindUnknown: true}

// Classify maps err to a failure kind by type, never by message text.
func Classify(err error) Failure {
	f := Failure{Kind: kindOf(err), Message: err.Error()}

	var se *StageError
	if errors.As(err, &se) {
		f.Stage = se.Stage
	}

	detail := err.Error()
	if se != nil {
		detail = se.Err.Error()
	}
	if app, ok := apperrors.AsAppError(err); ok {
		detail = app.Message
		if app.Cause != nil && withCause[f.Kind] {
			detail = fmt.Sprintf("%s: %v", app.Message, app.Cause)
		}
	}
	if prefix, ok := kindPrefix[f.Kind]; ok {
		f.Message = prefix + ": " + detail
	} else {
		f.Message = detail
	}
	return f
}

func kindOf(err error) Kind {
	var app *apperrors.AppError
	if errors.As(err, &app) {
		switch app.Code {
		case apperrors.ErrCodeConfiguration:
			return KindConfiguration
		case apperrors.ErrCodeNotFound:
			return KindNotFound
		case apperrors.ErrCodeProviderTimeout, apperrors.ErrCodeTimeout:
			return KindProviderTimeout
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindProviderTimeout
	}

	var hc *httpclient.Error
	if errors.As(err, &hc) {
		switch hc.Code {
		case httpclient.ErrCodeTimeout, httpclient.ErrCodeConnection:
			return KindNetwork
		default:
			return KindProvider
		}
	}

	if app != nil {
		switch app.Code {
		case apperrors.ErrCodeProvider, apperrors.ErrCodeRateLimited:
			return KindProvider
		case apperrors.ErrCodeConnectionFailed, apperrors.ErrCodeServiceUnavailable:
			return KindNetwork
		}
	}
	return KindUnknown
}
