package label

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	bracketToken  = regexp.MustCompile(`\[([^\[\]]*)\]`)
	standardLabel = regexp.MustCompile(`^w(\d+)(mon|tue|wed|thu|fri)$`)
)

var weekdayOffset = map[string]int{"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4}

// StandardParams configures a Standard scheme.
type StandardParams struct {
	// StartDate is the Monday of week 1, YYYY-MM-DD.
	StartDate string `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	// DueTime is the due hour after midnight, fractional hours allowed.
	DueTime float64 `mapstructure:"due_time" validate:"gte=0,lte=24"`
	// MaxWeek is the last week of the term.
	MaxWeek int `mapstructure:"max_week" validate:"required,gte=1"`
	// DueDays lists the weekdays on which work is due.
	DueDays []string `mapstructure:"due_days" validate:"required,min=1,dive,oneof=mon tue wed thu fri"`
	// Exceptions lists labels with nothing due.
	Exceptions []string `mapstructure:"exceptions"`
	// Gaps lists calendar weeks skipped by the week numbering.
	Gaps []int `mapstructure:"gaps" validate:"dive,gte=1"`
	// Location is the IANA time zone of the term calendar.
	Location string `mapstructure:"location"`
}

// Standard recognizes "[w<week><day>]" topic tokens and computes deadlines
// from a term calendar: w1mon is StartDate at DueTime, each week adds seven
// days, and every gap at or before a week pushes it one calendar week later.
type Standard struct {
	start      time.Time // midnight of StartDate in the term location
	due        time.Duration
	maxWeek    int
	dueDays    map[string]bool
	exceptions map[string]bool
	gaps       []int
}

// NewStandard decodes params and builds a Standard scheme.
func NewStandard(params map[string]any) (*Standard, error) {
	var p StandardParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewStandardFromParams(p)
}

// NewStandardFromParams builds a Standard scheme from decoded parameters.
func NewStandardFromParams(p StandardParams) (*Standard, error) {
	loc := time.UTC
	if p.Location != "" {
		l, err := time.LoadLocation(p.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: location: %w", ErrInvalidParams, err)
		}
		loc = l
	}
	start, err := time.ParseInLocation(dateLayout, p.StartDate, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date: %w", ErrInvalidParams, err)
	}

	s := &Standard{
		start:      start,
		due:        time.Duration(p.DueTime * float64(time.Hour)),
		maxWeek:    p.MaxWeek,
		dueDays:    make(map[string]bool, len(p.DueDays)),
		exceptions: make(map[string]bool, len(p.Exceptions)),
		gaps:       slices.Sorted(slices.Values(p.Gaps)),
	}
	for _, d := range p.DueDays {
		s.dueDays[d] = true
	}
	for _, e := range p.Exceptions {
		s.exceptions[canonical(Normalize(e))] = true
	}
	return s, nil
}

// canonical strips zero padding from the week of a standard label text.
// Other text is returned unchanged.
func canonical(text string) string {
	m := standardLabel.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	week, err := strconv.Atoi(m[1])
	if err != nil {
		return text
	}
	return "w" + strconv.Itoa(week) + m[2]
}

// Candidates yields the trimmed inner text of every bracket pair in text.
func (s *Standard) Candidates(text string) iter.Seq[string] {
	return bracketCandidates(text)
}

func bracketCandidates(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for {
			loc := bracketToken.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(strings.TrimSpace(rest[loc[2]:loc[3]])) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Resolve maps a raw candidate such as "W3Thu" to its label.
func (s *Standard) Resolve(raw string) (Label, error) {
	text := Normalize(raw)
	m := standardLabel.FindStringSubmatch(text)
	if m == nil {
		return Label{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
	}
	week, err := strconv.Atoi(m[1])
	if err != nil || week < 1 {
		return Label{}, fmt.Errorf("%w: %q: bad week", ErrUnrecognized, raw)
	}
	if week > s.maxWeek {
		return Label{}, fmt.Errorf("%w: %q: week %d after last week %d", ErrUnrecognized, raw, week, s.maxWeek)
	}
	if !s.dueDays[m[2]] {
		return Label{}, fmt.Errorf("%w: %q: nothing due on %s", ErrUnrecognized, raw, m[2])
	}
	// Zero-padded weeks name the same assignment: w01mon is w1mon.
	text = "w" + strconv.Itoa(week) + m[2]
	if s.exceptions[text] {
		return Label{}, fmt.Errorf("%w: %q: listed as an exception", ErrUnrecognized, raw)
	}
	return Label{text: text, deadline: s.deadline(week, weekdayOffset[m[2]])}, nil
}

func (s *Standard) deadline(week, day int) time.Time {
	for _, g := range s.gaps {
		if week >= g {
			week++
		}
	}
	// Fields are normalized on the wall clock, so the due time holds across DST.
	y, m, d := s.start.Date()
	return time.Date(y, m, d+7*(week-1)+day, 0, 0, 0, int(s.due), s.start.Location())
}

// Labels lists every label of the term ordered by deadline.
func (s *Standard) Labels() []Label {
	days := make([]string, 0, len(s.dueDays))
	for d := range s.dueDays {
		days = append(days, d)
	}
	var out []Label
	for week := 1; week <= s.maxWeek; week++ {
		for _, day := range days {
			text := "w" + strconv.Itoa(week) + day
			if s.exceptions[text] {
				continue
			}
			out = append(out, Label{text: text, deadline: s.deadline(week, weekdayOffset[day])})
		}
	}
	slices.SortFunc(out, Compare)
	return out
}
