// Package quickentry turns a single line of free text such as
// "12,50 Lebensmittel Kaffee heute" into an amount, a date, an optional
// category and a label.
//
// Extraction runs in a fixed order: amount, date, category. Each step cuts
// what it recognized out of the working text before the next one runs, and
// whatever is left becomes the label. Nothing here reads the clock; the
// caller supplies the reference time.
package quickentry

import (
	"strings"
	"time"

	"ausgaben/internal/core"
)

// Result is the outcome of parsing one line.
type Result struct {
	Amount    core.Money
	HasAmount bool // false means no amount was recognized, not zero
	Date      core.Date
	Category  string // empty when no category was mentioned
	Name      string
}

type Parser struct {
	tagger *Tagger
}

type Option func(*Parser)

// WithTagger replaces the default food-only tagger.
func WithTagger(t *Tagger) Option {
	return func(p *Parser) {
		if t != nil {
			p.tagger = t
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{tagger: DefaultTagger()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse extracts the fields from line relative to now. It returns false
// only when line is blank.
func (p *Parser) Parse(line string, now time.Time) (Result, bool) {
	if strings.TrimSpace(line) == "" {
		return Result{}, false
	}

	var res Result
	text := line
	res.Amount, res.HasAmount, text = ExtractAmount(text)
	res.Date, text = ResolveDate(text, now)
	res.Category, _, text = p.tagger.Extract(text)

	res.Name = strings.Join(strings.Fields(text), " ")
	if res.Name == "" {
		res.Name = core.Untitled
	}
	return res, true
}

// Parse runs a parser with the default tagger.
func Parse(line string, now time.Time) (Result, bool) {
	return NewParser().Parse(line, now)
}
