package replay

import (
	"cmp"
	"slices"
	"time"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/config"
	"github.com/okian/tallybot/internal/domain/model"
)

// Plan builds one private tally request per user and stream, addressed by
// the stream specifier or, when a stream has none, by its name. Ids are
// assigned from baseID in user then stream order.
func Plan(users []directory.User, streams []config.Stream, baseID int64) []model.Inbound {
	users = slices.Clone(users)
	slices.SortFunc(users, func(a, b directory.User) int { return cmp.Compare(a.ID, b.ID) })

	now := time.Now().UTC()
	out := make([]model.Inbound, 0, len(users)*len(streams))
	id := baseID
	for _, u := range users {
		for _, s := range streams {
			content := s.StreamSpecifier
			if content == "" {
				content = s.StreamName
			}
			out = append(out, model.Inbound{
				ID:        id,
				Kind:      model.KindPrivate,
				SenderID:  u.ID,
				Content:   content,
				Timestamp: now,
			})
			id++
		}
	}
	return out
}

// requesters returns the distinct senders of reqs with their request counts.
func requesters(reqs []model.Inbound) map[int64]int {
	out := make(map[int64]int)
	for _, r := range reqs {
		out[r.SenderID]++
	}
	return out
}
