// Package label defines assignment labels and the schemes that find them in
// message text.
package label

import (
	"iter"
	"time"
)

// Label is an assignment token paired with its deadline. The zero value is
// not a valid label; labels are produced by a Scheme.
type Label struct {
	text     string
	deadline time.Time
}

// Make builds a label. Scheme implementations outside this package use it to
// produce their labels; text should already be canonical.
func Make(text string, deadline time.Time) Label {
	return Label{text: text, deadline: deadline}
}

// Text returns the canonical label text, e.g. "w3thu".
func (l Label) Text() string { return l.text }

// Deadline returns the instant after which a submission is late.
func (l Label) Deadline() time.Time { return l.deadline }

// IsZero reports whether l is the zero Label.
func (l Label) IsZero() bool { return l.text == "" && l.deadline.IsZero() }

func (l Label) String() string { return l.text }

// Before orders labels by deadline, then text.
func (l Label) Before(o Label) bool {
	if !l.deadline.Equal(o.deadline) {
		return l.deadline.Before(o.deadline)
	}
	return l.text < o.text
}

// Compare orders labels for slices.SortFunc: deadline first, then text.
func Compare(a, b Label) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

// Scheme finds raw label candidates in text and resolves them.
//
// Candidates must be finite and restartable: ranging over the returned
// sequence twice yields the same candidates. Resolve returns an error
// wrapping ErrUnrecognized for candidates that are not labels of the scheme.
type Scheme interface {
	Candidates(text string) iter.Seq[string]
	Resolve(raw string) (Label, error)
}

// Enumerator is implemented by schemes with a closed, listable label set.
type Enumerator interface {
	// Labels returns every label of the scheme ordered by deadline.
	Labels() []Label
}
