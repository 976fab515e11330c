package quickentry

import (
	"regexp"
	"strings"

	"ausgaben/internal/core"
)

// amountRe matches digits with an optional decimal separator, up to two
// decimals and an optional trailing euro sign.
var amountRe = regexp.MustCompile(`(\d+[.,]?\d{0,2})\s*€?`)

// ExtractAmount finds the leftmost amount token in text and converts it to
// cents. The matched span is replaced by a single space in the returned
// remainder. When nothing matches, or the token does not convert, ok is
// false and text is returned unchanged.
func ExtractAmount(text string) (amount core.Money, ok bool, remainder string) {
	loc := amountRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return core.Money{}, false, text
	}
	raw := text[loc[2]:loc[3]]
	cents, err := core.CentsFromDecimalString(strings.Trim(raw, " \t€"))
	if err != nil {
		return core.Money{}, false, text
	}
	return core.Money{Cents: cents}, true, text[:loc[0]] + " " + text[loc[1]:]
}
