package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared by the matching, tracking and AI components.
const (
	FieldApplicationID = "application_id"
	FieldJobKey        = "job_key"
	FieldProfileID     = "profile_id"
	FieldJobProvider   = "provider"
	FieldStatus        = "status"

	FieldAIProvider = "ai_provider"
	FieldAIModel    = "ai_model"
)

const ellipsis = "..."

type StringField struct {
	Key   string
	Value string
}

// StringFields trims keys and values and drops pairs where either is empty.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		key, value := strings.TrimSpace(f.Key), strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to l. A nil l becomes a no-op logger, so components
// can take an optional logger without checking it.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ApplicationFields describes an application in log entries. Empty values are dropped.
func ApplicationFields(applicationID, jobKey, profileID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldApplicationID, Value: applicationID},
		StringField{Key: FieldJobKey, Value: jobKey},
		StringField{Key: FieldProfileID, Value: profileID},
	)
}

func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldAIProvider, Value: provider},
		StringField{Key: FieldAIModel, Value: model},
	)
}

// WithAI tags every entry of l with the AI provider and model.
func WithAI(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, AIFields(provider, model)...)
}

// Preview logs at most limit runes of text under key. Prompts and model answers
// can be long; a non-positive limit logs nothing but the key.
func Preview(key, text string, limit int) zap.Field {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return zap.String(key, "")
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return zap.String(key, text)
	}
	return zap.String(key, string(runes[:limit])+ellipsis)
}
