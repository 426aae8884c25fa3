package logger

import (
	"time"
)

// Standard field keys used across the service.
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldTraceID         = "trace_id"
	FieldTranscriptionID = "transcription_id"
	FieldStage           = "stage"
	FieldStatus          = "status"
	FieldProvider        = "provider"
	FieldOperation       = "operation"
	FieldError           = "error"
	FieldDuration        = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
