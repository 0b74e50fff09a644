// Package access decides which tally output a requester may see.
package access

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/internal/domain/report"
	"github.com/okian/tallybot/internal/domain/tally"
)

// Role of a requester.
type Role string

const (
	RoleMember   Role = "member"
	RoleReviewer Role = "reviewer"
)

// Kind of view a decision grants.
type Kind string

const (
	KindVerbose Kind = "verbose"
	KindTable   Kind = "table"
)

// Request is one visibility question.
type Request struct {
	Requester model.Author
	Role      Role
	Query     string
}

// Decision is the output a requester may see. Reports is set for verbose
// views, Rows for table views.
type Decision struct {
	Kind    Kind
	Reports []tally.Report
	Rows    []report.Row
}

var folder = cases.Fold()

// Normalize case-folds s, drops punctuation and symbols, and trims space.
func Normalize(s string) string {
	s = folder.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Decide applies the visibility rules:
//   - a member sees only their own report, verbosely;
//   - a reviewer whose query matches some member names sees those reports;
//   - otherwise a reviewer gets the table of every member.
//
// Members are the roster plus every author in res. Members without a report
// are shown with a count of zero.
func Decide(req Request, roster []model.Author, res tally.Result) Decision {
	if req.Role != RoleReviewer {
		rep, ok := res[req.Requester.ID]
		if !ok {
			rep = tally.Report{Author: req.Requester}
		}
		return Decision{Kind: KindVerbose, Reports: []tally.Report{rep}}
	}

	members := union(roster, res)
	if q := Normalize(req.Query); q != "" {
		var matched []tally.Report
		for _, m := range members {
			if strings.Contains(Normalize(m.Name), q) {
				matched = append(matched, reportFor(m, res))
			}
		}
		if len(matched) > 0 {
			return Decision{Kind: KindVerbose, Reports: matched}
		}
	}

	rows := make([]report.Row, len(members))
	for i, m := range members {
		rows[i] = report.Row{Name: m.Name, Identifier: Identifier(m), Count: reportFor(m, res).Count}
	}
	return Decision{Kind: KindTable, Rows: rows}
}

// Identifier is the stable identifier shown in tables: email when known,
// account id otherwise.
func Identifier(a model.Author) string {
	if a.Email != "" {
		return a.Email
	}
	return strconv.FormatInt(a.ID, 10)
}

func reportFor(a model.Author, res tally.Result) tally.Report {
	rep := res[a.ID]
	rep.Author = a
	return rep
}

// union merges roster and result authors by id, ordered by name then id.
// Roster details win over message details.
func union(roster []model.Author, res tally.Result) []model.Author {
	byID := make(map[int64]model.Author, len(roster)+len(res))
	for id, rep := range res {
		byID[id] = rep.Author
	}
	for _, a := range roster {
		byID[a.ID] = a
	}
	out := make([]model.Author, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Author) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}
