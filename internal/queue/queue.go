package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TypeReportSubmitted carries a report id; the worker runs the selfie check.
const TypeReportSubmitted = "report.submitted"

// DefaultKey is the Redis list used when none is configured.
const DefaultKey = "satpam:reports"

// ErrMalformed is returned for payloads that are not a message envelope.
var ErrMalformed = errors.New("malformed queue payload")

// Message is one unit of background work.
type Message struct {
	Type        string    `json:"type"`
	Subject     string    `json:"subject"`
	PublishedAt time.Time `json:"published_at"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// Age is how long the message waited since it was published.
func (m Message) Age(now time.Time) time.Duration {
	if m.PublishedAt.IsZero() {
		return 0
	}
	return now.Sub(m.PublishedAt)
}

func stamp(msg Message) Message {
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now().UTC()
	}
	return msg
}

func encode(msg Message) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return string(b), nil
}

func decode(s string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(s), &msg); err != nil || msg.Type == "" {
		return Message{}, ErrMalformed
	}
	return msg, nil
}
