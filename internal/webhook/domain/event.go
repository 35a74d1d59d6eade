// Package domain defines the webhook event envelope and processing outcomes.
package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Event is a parsed webhook delivery. Data resolves to the nested "data"
// object when present, otherwise the top-level payload, matching what the
// provider sends for both shapes.
type Event struct {
	Type    string
	Payload map[string]any
	Data    map[string]any
}

// Delivery carries the verified request envelope. ID and Timestamp come
// from the standard-webhooks headers and make redelivered events
// distinguishable from genuinely new ones.
type Delivery struct {
	ID        string
	Timestamp string
	Body      []byte
}

// Outcome classifies what processing did with a delivery. Every outcome is
// acknowledged with HTTP 200 so the provider does not retry events we
// deliberately did not apply.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeUnknown Outcome = "unknown_type"
)

var (
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrMissingEventType = errors.New("missing_event_type")
)

// Parse decodes the delivery body into an event envelope.
func Parse(body []byte) (Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Event{}, ErrInvalidPayload
	}

	eventType, _ := payload["type"].(string)
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return Event{}, ErrMissingEventType
	}

	data := payload
	if nested, ok := payload["data"].(map[string]any); ok {
		data = nested
	}

	return Event{
		Type:    eventType,
		Payload: payload,
		Data:    data,
	}, nil
}

// String returns the string field at key, or "" when absent.
func String(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// Map returns the nested object at key, or an empty map when absent.
func Map(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Int64 returns the numeric field at key truncated to int64, or 0.
func Int64(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the boolean field at key, or false.
func Bool(data map[string]any, key string) bool {
	if b, ok := data[key].(bool); ok {
		return b
	}
	return false
}

// Time parses the RFC 3339 field at key, or returns nil.
func Time(data map[string]any, key string) *time.Time {
	raw := String(data, key)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
