package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// emptyPlaceholders is the stored form of a notification without placeholders.
// It is never stored as NULL so that decoding is always total.
const emptyPlaceholders = "{}"

// QueuedNotification is a deferred message for a user who was not connected
// when the event happened. It is technology-agnostic and does not contain any DB tags.
type QueuedNotification struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	MessageKey string // Key of the localized template, e.g. "watchlist.listing ended".

	// Placeholders is the compact JSON object of placeholder name -> value.
	Placeholders string

	CreatedAt time.Time
}

// NewQueuedNotification is a factory function that assigns a fresh ID and encodes the placeholders.
func NewQueuedNotification(userID uuid.UUID, messageKey string, placeholders map[string]string) (*QueuedNotification, error) {
	payload, err := EncodePlaceholders(placeholders)
	if err != nil {
		return nil, err
	}
	return &QueuedNotification{
		ID:           uuid.New(),
		UserID:       userID,
		MessageKey:   messageKey,
		Placeholders: payload,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// PlaceholderValues decodes the stored placeholders. A malformed payload yields an empty map.
func (n *QueuedNotification) PlaceholderValues() map[string]string {
	return DecodePlaceholders(n.Placeholders)
}

// EncodePlaceholders serializes placeholders to a JSON object. An empty or nil map becomes "{}".
func EncodePlaceholders(placeholders map[string]string) (string, error) {
	if len(placeholders) == 0 {
		return emptyPlaceholders, nil
	}
	b, err := json.Marshal(placeholders)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePlaceholders parses a payload produced by EncodePlaceholders.
// Empty, null and unparseable payloads all decode to an empty, non-nil map.
func DecodePlaceholders(payload string) map[string]string {
	out := make(map[string]string)
	if payload == "" {
		return out
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil || out == nil {
		return make(map[string]string)
	}
	return out
}
