// Package report renders tally results for delivery to a requester.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/tallybot/internal/domain/tally"
)

const defaultNoun = "RQ"

// TableHeader is the fixed first row of every table export.
var TableHeader = []string{"name", "identifier", "count"}

// Row is one member line of a table export.
type Row struct {
	Name       string
	Identifier string
	Count      int
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithNoun sets the unit name used in verbose blocks, e.g. "RQ".
func WithNoun(noun string) Option {
	return func(f *Formatter) {
		if noun = strings.TrimSpace(noun); noun != "" {
			f.noun = noun
		}
	}
}

// Formatter renders verbose blocks and table exports.
type Formatter struct {
	noun string
}

// NewFormatter creates a formatter.
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{noun: defaultNoun}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Verbose renders one report:
//
//	Current RQ Count: 2
//	On-time and Valid RQs: w1mon, w1wed
//	Late RQs: w2mon
//	Invalid RQs: w2wed
//
// Empty sections are omitted.
func (f *Formatter) Verbose(r tally.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current %s Count: %d", f.noun, r.Count)
	f.section(&b, "On-time and Valid", r.Credited)
	f.section(&b, "Late", r.Late())
	f.section(&b, "Invalid", r.Invalid())
	return b.String()
}

func (f *Formatter) section(b *strings.Builder, title string, entries []tally.Entry) {
	if len(entries) == 0 {
		return
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Label.Text()
	}
	fmt.Fprintf(b, "\n%s %ss: %s", title, f.noun, strings.Join(texts, ", "))
}

// VerboseMany renders each report under its author's name, separated by a
// blank line.
func (f *Formatter) VerboseMany(reports []tally.Report) string {
	blocks := make([]string, len(reports))
	for i, r := range reports {
		blocks[i] = r.Author.Name + "\n" + f.Verbose(r)
	}
	return strings.Join(blocks, "\n\n")
}

// Table renders rows as CSV under TableHeader, in the given order.
func (f *Formatter) Table(rows []Row) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TableHeader); err != nil {
		return "", fmt.Errorf("report.Table: %w", err)
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Name, r.Identifier, strconv.Itoa(r.Count)}); err != nil {
			return "", fmt.Errorf("report.Table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("report.Table: %w", err)
	}
	return buf.String(), nil
}

// Chunk splits text into pieces of at most maxLines lines each, keeping
// line endings. A non-positive maxLines yields a single chunk.
func Chunk(text string, maxLines int) []string {
	if text == "" {
		return nil
	}
	if maxLines <= 0 {
		return []string{text}
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	chunks := make([]string, 0, (len(lines)+maxLines-1)/maxLines)
	for i := 0; i < len(lines); i += maxLines {
		end := min(i+maxLines, len(lines))
		chunks = append(chunks, strings.Join(lines[i:end], ""))
	}
	return chunks
}
