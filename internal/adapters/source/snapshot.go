package source

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/domain/model"
)

type snapshotReaction struct {
	Emoji  string `yaml:"emoji"`
	UserID int64  `yaml:"user_id"`
}

type snapshotMessage struct {
	ID          int64              `yaml:"id"`
	SenderID    int64              `yaml:"sender_id"`
	SenderName  string             `yaml:"sender_name"`
	SenderEmail string             `yaml:"sender_email"`
	Stream      string             `yaml:"stream"`
	Topic       string             `yaml:"topic"`
	Content     string             `yaml:"content"`
	Timestamp   time.Time          `yaml:"timestamp"`
	Reactions   []snapshotReaction `yaml:"reactions"`
}

type snapshotFile struct {
	Users    []directory.User  `yaml:"users"`
	Messages []snapshotMessage `yaml:"messages"`
}

// Snapshot serves users and messages from a YAML export. It implements both
// Source and directory.Directory.
type Snapshot struct {
	*directory.Static
	messages []model.Message
}

// OpenSnapshot reads the YAML snapshot at path.
func OpenSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f)
}

// LoadSnapshot decodes a YAML snapshot. Message senders missing from the
// user list keep the sender_name and sender_email given on the message.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var file snapshotFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	users := make(map[int64]directory.User, len(file.Users))
	for _, u := range file.Users {
		users[u.ID] = u
	}

	seen := make(map[int64]bool, len(file.Messages))
	msgs := make([]model.Message, 0, len(file.Messages))
	for _, sm := range file.Messages {
		if seen[sm.ID] {
			return nil, fmt.Errorf("%w: message %d listed twice", ErrInvalidSnapshot, sm.ID)
		}
		seen[sm.ID] = true

		author := model.Author{ID: sm.SenderID, Name: sm.SenderName, Email: sm.SenderEmail}
		if u, ok := users[sm.SenderID]; ok {
			author = u.Author()
		}
		m := model.Message{
			ID:        sm.ID,
			Author:    author,
			Timestamp: sm.Timestamp,
			Stream:    sm.Stream,
			Topic:     sm.Topic,
			Body:      sm.Content,
		}
		for _, r := range sm.Reactions {
			m.Reactions = append(m.Reactions, model.Reaction{Emoji: r.Emoji, UserID: r.UserID})
		}
		msgs = append(msgs, m)
	}
	slices.SortFunc(msgs, func(a, b model.Message) int { return cmp.Compare(a.ID, b.ID) })

	return &Snapshot{Static: directory.NewStatic(file.Users), messages: msgs}, nil
}

// FetchMessages returns the messages of scope.Stream ordered by id.
func (s *Snapshot) FetchMessages(ctx context.Context, scope Scope) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.Message
	for _, m := range s.messages {
		if m.Stream == scope.Stream {
			out = append(out, m)
		}
	}
	return out, nil
}

// Streams lists the distinct stream names in the snapshot.
func (s *Snapshot) Streams() []string {
	var out []string
	for _, m := range s.messages {
		if !slices.Contains(out, m.Stream) {
			out = append(out, m.Stream)
		}
	}
	slices.Sort(out)
	return out
}
