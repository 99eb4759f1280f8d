package tickets

import (
	"fmt"
	"strings"
)

// ClosedMarker is appended to a ticket channel topic when the ticket is
// closed.
const ClosedMarker = "_CLOSED"

// Topic is the state a ticket channel encodes in its topic string.
//
// Grammar:
//
//	topic   = label "-" ownerID [ "_CLOSED" ]
//	label   = any text, may itself contain hyphens
//	ownerID = decimal snowflake (digits only)
//
// The owner id is always the final hyphen-delimited field, so labels
// like "Group - Verify my group" survive the round trip.
type Topic struct {
	Label   string
	OwnerID string
	Closed  bool
}

// Encode serializes the topic for storage in the channel metadata.
func (t Topic) Encode() string {
	s := t.Label + "-" + t.OwnerID
	if t.Closed {
		s += ClosedMarker
	}
	return s
}

// MalformedTopicError is returned when a channel topic cannot be decoded
// into a Topic.
type MalformedTopicError struct {
	Raw string
}

func (e *MalformedTopicError) Error() string {
	return fmt.Sprintf("tickets: malformed ticket topic %q", e.Raw)
}

// ParseTopic decodes a channel topic string.
func ParseTopic(raw string) (Topic, error) {
	s := raw
	closed := strings.HasSuffix(s, ClosedMarker)
	if closed {
		s = strings.TrimSuffix(s, ClosedMarker)
	}

	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return Topic{}, &MalformedTopicError{Raw: raw}
	}

	label, owner := s[:idx], s[idx+1:]
	if !isSnowflake(owner) {
		return Topic{}, &MalformedTopicError{Raw: raw}
	}

	return Topic{Label: label, OwnerID: owner, Closed: closed}, nil
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
