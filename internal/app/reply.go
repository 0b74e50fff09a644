package app

import (
	"errors"
	"fmt"

	"github.com/okian/tallybot/internal/domain/model"
)

// ReplyKind tells what a reply carries.
type ReplyKind string

const (
	ReplyVerbose ReplyKind = "verbose"
	ReplyTable   ReplyKind = "table"
	ReplyUsage   ReplyKind = "usage"
	ReplyError   ReplyKind = "error"
	ReplyCleared ReplyKind = "cleared"
)

// Reply is what the bot sends back. Chunks is Text split for delivery.
type Reply struct {
	Kind   ReplyKind `json:"kind"`
	Text   string    `json:"text"`
	Chunks []string  `json:"chunks"`
}

const usageText = `No stream matched your message. Either mention me in a message in the
class stream you are interested in, or send me a private message containing
the short specifier (e.g. "sp23") or the full name of the class stream.

Members get their own count of on-time and valid submissions. Reviewers get
verbose counts for every member whose name contains the rest of the message,
or a CSV table of all members when no name matches.`

const unexpectedText = "There was an unexpected problem. Please try again, or reach out to a moderator."

// failureText is the reply sent for err.
func failureText(err error) (ReplyKind, string) {
	var malformed *model.MalformedError
	switch {
	case errors.Is(err, ErrNoStream):
		return ReplyUsage, usageText
	case errors.Is(err, ErrUnknownStream):
		return ReplyError, "That stream is not configured for tallying."
	case errors.Is(err, ErrUnknownRequester):
		return ReplyError, "I could not find your account in this organization."
	case errors.As(err, &malformed):
		return ReplyError, fmt.Sprintf("Cannot tally: message %d has a bad %s (%s).",
			malformed.MessageID, malformed.Field, malformed.Reason)
	default:
		return ReplyError, unexpectedText
	}
}
