package label

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"
)

// TableParams configures a Table scheme.
type TableParams struct {
	// Labels maps label text to an RFC3339 deadline.
	Labels map[string]time.Time `mapstructure:"labels" validate:"required,min=1"`
}

// Table resolves "[<label>]" topic tokens through a fixed label table.
type Table struct {
	labels map[string]Label
}

// NewTable decodes params and builds a Table scheme.
func NewTable(params map[string]any) (*Table, error) {
	var p TableParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewTableFromParams(p)
}

// NewTableFromParams builds a Table scheme. Two entries that normalize to
// the same text are rejected.
func NewTableFromParams(p TableParams) (*Table, error) {
	t := &Table{labels: make(map[string]Label, len(p.Labels))}
	for raw, deadline := range p.Labels {
		text := Normalize(raw)
		if text == "" {
			return nil, fmt.Errorf("%w: empty label", ErrInvalidParams)
		}
		if _, dup := t.labels[text]; dup {
			return nil, fmt.Errorf("%w: label %q listed twice", ErrInvalidParams, text)
		}
		t.labels[text] = Label{text: text, deadline: deadline}
	}
	return t, nil
}

// Candidates yields the trimmed inner text of every bracket pair in text.
func (t *Table) Candidates(text string) iter.Seq[string] {
	return bracketCandidates(text)
}

// Resolve looks raw up after normalization.
func (t *Table) Resolve(raw string) (Label, error) {
	l, ok := t.labels[Normalize(raw)]
	if !ok {
		return Label{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
	}
	return l, nil
}

// Labels lists the table ordered by deadline.
func (t *Table) Labels() []Label {
	out := slices.Collect(maps.Values(t.labels))
	slices.SortFunc(out, Compare)
	return out
}
