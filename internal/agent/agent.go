// Package agent defines the external agent capability consumed by the
// session runner: text prompt in, event sequence out. The runner never
// inspects event internals; it asks each event for an optional text payload.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoEvents is returned by adapters whose invocation produced an empty
// event sequence.
var ErrNoEvents = errors.New("agent returned no events")

// Agent is an opaque external collaborator. Invoke blocks until the full
// event sequence is available or ctx is done.
type Agent interface {
	Name() string
	Invoke(ctx context.Context, prompt string) ([]Event, error)
}

// Event is one unit of an agent's reply. TextPayload reports the event's
// textual content, if any; shape-specific extraction lives in the event
// implementation, not in the consumer.
type Event interface {
	TextPayload() (string, bool)
}

// Part is one segment of structured event content.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content holds role plus ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Message is the standard event emitted by the bundled adapters. Either the
// direct Text field or the nested Content may carry the payload.
type Message struct {
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
	Content   *Content  `json:"content,omitempty"`
}

// TextPayload prefers the direct text field, then the first non-empty
// content part.
func (m Message) TextPayload() (string, bool) {
	if t := strings.TrimSpace(m.Text); t != "" {
		return t, true
	}
	if m.Content != nil {
		for _, p := range m.Content.Parts {
			if t := strings.TrimSpace(p.Text); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// ExtractText scans events newest to oldest and returns the first text
// payload found, or "" when no event carries text.
func ExtractText(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if text, ok := events[i].TextPayload(); ok {
			return text
		}
	}
	return ""
}
