package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldMode is the structured log field key for the submission mode.
	FieldMode = "mode"
	// FieldEndpoint is the structured log field key for the service endpoint URL.
	FieldEndpoint = "endpoint"
	// FieldAttempt is the structured log field key for the submission attempt id.
	FieldAttempt = "attempt_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SubmissionFields describes which endpoint a submission goes to.
func SubmissionFields(mode, endpoint string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMode, Value: mode},
		StringField{Key: FieldEndpoint, Value: endpoint},
	)
}

func WithSubmissionFields(logger *zap.Logger, mode, endpoint string) *zap.Logger {
	return WithFields(logger, SubmissionFields(mode, endpoint)...)
}

// AttemptFields tags entries of one submission attempt.
func AttemptFields(attemptID, mode string) []zap.Field {
	return StringFields(
		StringField{Key: FieldAttempt, Value: attemptID},
		StringField{Key: FieldMode, Value: mode},
	)
}

func WithAttemptFields(logger *zap.Logger, attemptID, mode string) *zap.Logger {
	return WithFields(logger, AttemptFields(attemptID, mode)...)
}
