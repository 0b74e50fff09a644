// Package directory looks up organization users and decides who reviews.
package directory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/okian/tallybot/internal/domain/model"
)

// ErrUserNotFound is returned when an id has no directory entry.
var ErrUserNotFound = errors.New("user not found")

// Organization roles, lower is more privileged.
const (
	RoleOwner     = 100
	RoleAdmin     = 200
	RoleModerator = 300
	RoleMember    = 400
	RoleGuest     = 600
)

// User is one organization account.
type User struct {
	ID            int64  `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Email         string `yaml:"email" json:"email"`
	DeliveryEmail string `yaml:"delivery_email" json:"delivery_email"`
	Role          int    `yaml:"role" json:"role"`
}

// Author converts u to the identity used on messages. The delivery email is
// preferred because the organization email is often a generated alias.
func (u User) Author() model.Author {
	email := u.DeliveryEmail
	if email == "" {
		email = u.Email
	}
	return model.Author{ID: u.ID, Name: u.Name, Email: email}
}

// Directory lists organization users.
type Directory interface {
	Users(ctx context.Context) ([]User, error)
	User(ctx context.Context, id int64) (User, error)
}

// Static is a fixed in-memory directory.
type Static struct {
	users []User
	byID  map[int64]User
}

// NewStatic creates a directory over users. Later duplicates win.
func NewStatic(users []User) *Static {
	s := &Static{byID: make(map[int64]User, len(users))}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	for _, u := range s.byID {
		s.users = append(s.users, u)
	}
	slices.SortFunc(s.users, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	return s
}

// Users returns every user ordered by id.
func (s *Static) Users(_ context.Context) ([]User, error) {
	return slices.Clone(s.users), nil
}

// User returns the user with id.
func (s *Static) User(_ context.Context, id int64) (User, error) {
	u, ok := s.byID[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return u, nil
}
