// Package tally computes per-author participation credit from a snapshot
// of messages and a labeling scheme.
package tally

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/okian/tallybot/internal/domain/label"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/pkg/logger"
	"github.com/okian/tallybot/pkg/metrics"
)

// Status classifies one (message, label) match.
type Status string

// Statuses, from least to most preferred when several messages match the
// same (author, label).
const (
	Late        Status = "late"
	Invalidated Status = "invalidated"
	Credited    Status = "credited"
)

func (s Status) rank() int {
	switch s {
	case Credited:
		return 2
	case Invalidated:
		return 1
	}
	return 0
}

// Entry is the outcome for one label of one author.
type Entry struct {
	Label           label.Label
	Status          Status
	SourceMessageID int64
}

// Report is one author's credit. Credited and Rejected are ordered by label
// deadline, then label text.
type Report struct {
	Author   model.Author
	Credited []Entry
	Rejected []Entry
	Count    int
}

// Late returns rejected entries that missed the deadline.
func (r Report) Late() []Entry { return r.rejectedWith(Late) }

// Invalid returns rejected entries a reviewer marked invalid.
func (r Report) Invalid() []Entry { return r.rejectedWith(Invalidated) }

func (r Report) rejectedWith(s Status) []Entry {
	var out []Entry
	for _, e := range r.Rejected {
		if e.Status == s {
			out = append(out, e)
		}
	}
	return out
}

// Result maps author id to report.
type Result map[int64]Report

// Reports returns every report ordered by author name, then id.
func (r Result) Reports() []Report {
	out := make([]Report, 0, len(r))
	for _, rep := range r {
		out = append(out, rep)
	}
	slices.SortFunc(out, func(a, b Report) int {
		return cmp.Or(cmp.Compare(a.Author.Name, b.Author.Name), cmp.Compare(a.Author.ID, b.Author.ID))
	})
	return out
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped candidates.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine tallies credit. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	log logger.Logger
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logger.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type key struct {
	author int64
	label  string
}

// Tally classifies every labelled topic in msgs and folds the matches into
// one report per author. Every author in msgs gets a report. Any malformed
// or duplicated message fails the whole run with a *model.MalformedError.
func (e *Engine) Tally(ctx context.Context, msgs []model.Message, scheme label.Scheme) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTallyDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := validate(msgs); err != nil {
		metrics.RecordMalformedMessage()
		metrics.RecordTallyRun("error")
		return nil, err
	}

	// Earliest first, so the first entry kept for a key is the earliest of
	// its class.
	ordered := slices.Clone(msgs)
	slices.SortFunc(ordered, func(a, b model.Message) int {
		return cmp.Or(a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.ID, b.ID))
	})

	authors := make(map[int64]model.Author)
	best := make(map[key]Entry)
	for _, m := range ordered {
		if _, ok := authors[m.Author.ID]; !ok {
			authors[m.Author.ID] = m.Author
		}
		for raw := range scheme.Candidates(m.Topic) {
			l, err := scheme.Resolve(raw)
			if err != nil {
				e.skip(ctx, m, raw, err)
				continue
			}
			metrics.RecordLabelResolved()
			entry := Entry{Label: l, Status: classify(m, l), SourceMessageID: m.ID}
			k := key{author: m.Author.ID, label: l.Text()}
			if prev, ok := best[k]; !ok || entry.Status.rank() > prev.Status.rank() {
				best[k] = entry
			}
		}
	}

	res := make(Result, len(authors))
	for id, a := range authors {
		res[id] = Report{Author: a}
	}
	for k, entry := range best {
		rep := res[k.author]
		if entry.Status == Credited {
			rep.Credited = append(rep.Credited, entry)
		} else {
			rep.Rejected = append(rep.Rejected, entry)
		}
		res[k.author] = rep
		metrics.RecordCreditEntry(string(entry.Status))
	}
	for id, rep := range res {
		slices.SortFunc(rep.Credited, byLabel)
		slices.SortFunc(rep.Rejected, byLabel)
		rep.Count = len(rep.Credited)
		res[id] = rep
	}

	metrics.RecordMessagesScanned(len(msgs))
	metrics.RecordReportsProduced(len(res))
	metrics.RecordTallyRun("ok")
	return res, nil
}

func (e *Engine) skip(ctx context.Context, m model.Message, raw string, err error) {
	metrics.RecordLabelUnrecognized()
	if errors.Is(err, label.ErrUnrecognized) {
		e.log.Debug(ctx, "skipping unrecognized label",
			logger.Int64("message_id", m.ID), logger.String("candidate", raw), logger.Error(err))
		return
	}
	e.log.Warn(ctx, "label resolution failed",
		logger.Int64("message_id", m.ID), logger.String("candidate", raw), logger.Error(err))
}

// classify applies invalidated > late > credited.
func classify(m model.Message, l label.Label) Status {
	switch {
	case m.Invalidated:
		return Invalidated
	case m.Timestamp.After(l.Deadline()):
		return Late
	}
	return Credited
}

func byLabel(a, b Entry) int {
	return label.Compare(a.Label, b.Label)
}

func validate(msgs []model.Message) error {
	seen := make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return &model.MalformedError{MessageID: m.ID, Field: "id", Reason: "duplicate"}
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
