package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/domain/model"
)

// A user is an organization account.
type user struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64  `bun:",pk"`
	FullName      string `bun:"full_name,notnull"`
	Email         string `bun:"email"`
	DeliveryEmail string `bun:"delivery_email"`
	Role          int    `bun:"role,notnull"`
}

// A message is a stream message.
type message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        int64      `bun:",pk"`
	SenderID  int64      `bun:"sender_id,notnull"`
	Stream    string     `bun:"stream,notnull"`
	Subject   string     `bun:"subject"`
	Content   string     `bun:"content"`
	SentAt    time.Time  `bun:"sent_at,notnull"`
	Sender    *user      `bun:"rel:belongs-to,join:sender_id=id"`
	Reactions []reaction `bun:"rel:has-many,join:id=message_id"`
}

// A reaction is an emoji applied to a message by a user.
type reaction struct {
	bun.BaseModel `bun:"table:reactions,alias:r"`

	MessageID int64  `bun:"message_id,pk"`
	UserID    int64  `bun:"user_id,pk"`
	EmojiName string `bun:"emoji_name,pk"`
}

func (u user) DirectoryUser() directory.User {
	return directory.User{
		ID:            u.ID,
		Name:          u.FullName,
		Email:         u.Email,
		DeliveryEmail: u.DeliveryEmail,
		Role:          u.Role,
	}
}

func fromDirectoryUser(u directory.User) user {
	return user{
		ID:            u.ID,
		FullName:      u.Name,
		Email:         u.Email,
		DeliveryEmail: u.DeliveryEmail,
		Role:          u.Role,
	}
}

// DomainMessage converts m. A message whose sender row is missing keeps
// only the sender id, which the tally rejects as malformed.
func (m message) DomainMessage() model.Message {
	out := model.Message{
		ID:        m.ID,
		Author:    model.Author{ID: m.SenderID},
		Timestamp: m.SentAt,
		Stream:    m.Stream,
		Topic:     m.Subject,
		Body:      m.Content,
	}
	if m.Sender != nil {
		out.Author = m.Sender.DirectoryUser().Author()
	}
	if len(m.Reactions) > 0 {
		out.Reactions = make([]model.Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			out.Reactions[i] = model.Reaction{Emoji: r.EmojiName, UserID: r.UserID}
		}
	}
	return out
}

func fromDomainMessage(m model.Message) (message, []reaction) {
	rows := make([]reaction, len(m.Reactions))
	for i, r := range m.Reactions {
		rows[i] = reaction{MessageID: m.ID, UserID: r.UserID, EmojiName: r.Emoji}
	}
	return message{
		ID:       m.ID,
		SenderID: m.Author.ID,
		Stream:   m.Stream,
		Subject:  m.Topic,
		Content:  m.Body,
		SentAt:   m.Timestamp,
	}, rows
}
