package model

import "time"

// Kinds of inbound bot messages.
const (
	KindStream  = "stream"
	KindPrivate = "private"
)

// Inbound is a message addressed to the bot: a stream mention or a private
// message.
type Inbound struct {
	ID        int64     `json:"id" validate:"required"`
	Kind      string    `json:"type" validate:"oneof=stream private"`
	SenderID  int64     `json:"sender_id" validate:"required"`
	Stream    string    `json:"stream,omitempty" validate:"required_if=Kind stream"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
