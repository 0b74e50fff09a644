// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedMessage is matched by every *MalformedError.
var ErrMalformedMessage = errors.New("malformed message")

// Author identifies who sent a message.
type Author struct {
	ID    int64  // stable account id
	Name  string // display name
	Email string
}

// Reaction is one emoji reaction applied to a message.
type Reaction struct {
	Emoji  string
	UserID int64
}

// Message is a read-only snapshot of one chat message.
type Message struct {
	ID        int64
	Author    Author
	Timestamp time.Time
	Stream    string
	Topic     string
	Body      string
	Reactions []Reaction

	// Invalidated is set during intake when a reviewer applied the stream's
	// invalid marker.
	Invalidated bool
}

// MalformedError reports which message broke the input contract and how.
type MalformedError struct {
	MessageID int64
	Field     string
	Reason    string // "missing" or "duplicate"
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed message %d: %s %s", e.MessageID, e.Reason, e.Field)
}

// Unwrap lets errors.Is match ErrMalformedMessage.
func (e *MalformedError) Unwrap() error { return ErrMalformedMessage }

// Validate checks the fields a tally depends on.
func (m Message) Validate() error {
	missing := func(field string) error {
		return &MalformedError{MessageID: m.ID, Field: field, Reason: "missing"}
	}
	switch {
	case m.ID == 0:
		return missing("id")
	case m.Author.ID == 0:
		return missing("author.id")
	case m.Author.Name == "":
		return missing("author.name")
	case m.Timestamp.IsZero():
		return missing("timestamp")
	}
	return nil
}

// MarkedBy reports whether a user accepted by isReviewer reacted with emoji.
func (m Message) MarkedBy(emoji string, isReviewer func(userID int64) bool) bool {
	for _, r := range m.Reactions {
		if r.Emoji == emoji && isReviewer(r.UserID) {
			return true
		}
	}
	return false
}
