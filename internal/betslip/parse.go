package betslip

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ContractVersion identifies the labelled-answer layout the scanner prompt
// asks for and Extract understands.
const ContractVersion = "v1"

// Delimiter separates the model commentary from the labelled answer
const Delimiter = "##############"

// ErrMissingDelimiter means the model output does not follow the answer contract
var ErrMissingDelimiter = errors.New("model output has no answer delimiter")

var delimiterLine = regexp.MustCompile(`(?m)^[ \t]*#{5,}[ \t]*\r?$`)

// IDGenerator generates slip IDs for slips without one
type IDGenerator interface {
	Generate() string
}

// uuidGenerator returns the first 8 characters of a random UUID
type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()[:8]
}

// field ties a slip label to the record field it fills
type field struct {
	label   string
	pattern *regexp.Regexp
	target  func(*Record) *string
}

// labelPattern matches "Label: value" on its own line, tolerating markdown
// bullets and bold markers around the label.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t*\-]*` + regexp.QuoteMeta(label) + `[ \t*]*:[ \t*]*(\S.*?)[ \t\r]*$`)
}

func newField(label string, target func(*Record) *string) field {
	return field{label: label, pattern: labelPattern(label), target: target}
}

var fields = []field{
	newField("ID", func(r *Record) *string { return &r.ID }),
	newField("Date", func(r *Record) *string { return &r.Date }),
	newField("Time", func(r *Record) *string { return &r.Time }),
	newField("Country", func(r *Record) *string { return &r.Country }),
	newField("Match League", func(r *Record) *string { return &r.League }),
	newField("Home Team", func(r *Record) *string { return &r.Home }),
	newField("Away Team", func(r *Record) *string { return &r.Away }),
	newField("Staked Amount", func(r *Record) *string { return &r.StakedAmount }),
	newField("Potential Winning", func(r *Record) *string { return &r.PotentialWinning }),
	newField("Bet Option Staked", func(r *Record) *string { return &r.BetOption }),
	newField("Odds of Bet Option Staked", func(r *Record) *string { return &r.LegsOdds }),
	newField("Total Odds", func(r *Record) *string { return &r.TotalOdds }),
	newField("Bet Status", func(r *Record) *string { return &r.BetStatus }),
}

// Parser turns model output into Records
type Parser struct {
	ids IDGenerator
}

// NewParser creates a Parser generating UUID-based slip IDs
func NewParser() *Parser {
	return NewParserWithDeps(uuidGenerator{})
}

// NewParserWithDeps creates a Parser with a custom ID generator for testing
func NewParserWithDeps(ids IDGenerator) *Parser {
	return &Parser{ids: ids}
}

// Extract validates the answer contract and parses the labelled section
func (p *Parser) Extract(raw string) (Record, error) {
	_, answer, err := Split(raw)
	if err != nil {
		return Record{}, err
	}
	return p.Parse(answer), nil
}

// Split separates the model commentary from the labelled answer
func Split(raw string) (commentary, answer string, err error) {
	loc := delimiterLine.FindStringIndex(raw)
	if loc == nil {
		return "", "", ErrMissingDelimiter
	}
	commentary = raw[:loc[0]]
	answer = raw[loc[1]:]
	// a second delimiter closes the answer section
	if next := delimiterLine.FindStringIndex(answer); next != nil {
		answer = answer[:next[0]]
	}
	return strings.TrimSpace(commentary), strings.TrimSpace(answer), nil
}

// Parse reads every labelled field from text. It never fails: missing
// fields become NA.
func (p *Parser) Parse(text string) Record {
	var rec Record
	for _, f := range fields {
		value := NA
		if m := f.pattern.FindStringSubmatch(text); m != nil {
			value = m[1]
		}
		*f.target(&rec) = value
	}

	if rec.ID == NA {
		rec.ID = p.ids.Generate()
	}

	// single-leg slips quote one price for both
	if rec.TotalOdds == NA && rec.LegsOdds != NA && !strings.Contains(rec.LegsOdds, ";") {
		rec.TotalOdds = rec.LegsOdds
	}

	return rec
}
