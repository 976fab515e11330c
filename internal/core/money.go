// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and rendering cents the way a German-speaking user expects to read them.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	hundred   = decimal.NewFromInt(100)
	deDisplay = message.NewPrinter(language.German)
	euroSign  = deDisplay.Sprint(currency.Symbol(currency.EUR))
)

// CentsFromDecimalString converts a plain decimal string ("12.5", "12,50",
// "12.") to cents, rounding half away from zero. Negative values and values
// beyond the int64 cent range yield ErrInvalidAmount.
func CentsFromDecimalString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, ",", ".", 1)
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.IsNegative() || !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseAmount reads a user-typed amount such as "12,50 €", "€ 3.5" or "300".
//
// Whitespace and the euro sign are ignored, a decimal comma is accepted and
// anything after the leading number is dropped, so "12,50abc" reads as 1250.
// Negative or non-numeric input yields ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12,50 €") -> {1250}, nil
//	ParseAmount("3.5")     -> {350}, nil
//	ParseAmount("abc")     -> {}, ErrInvalidAmount
func ParseAmount(raw string) (Money, error) {
	t := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '€' {
			return -1
		}
		return r
	}, raw)
	t = strings.Replace(t, ",", ".", 1)

	// Keep the leading number only.
	end := 0
	seenDot := false
	for end < len(t) {
		c := t[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	cents, err := CentsFromDecimalString(t[:end])
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Euros returns the euro value as a decimal for display and export.
// Use cents for calculations.
func (m Money) Euros() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// CommaString renders the amount as a bare decimal with a comma separator,
// e.g. "12,5" for 1250 cents. It mirrors how amounts are typed back in.
func (m Money) CommaString() string {
	return strings.Replace(m.Euros().String(), ".", ",", 1)
}

func (m Money) String() string {
	return FormatEuro(m.Cents)
}

// FormatEuro renders cents in German notation, e.g. "1.234,50 €".
func FormatEuro(cents int64) string {
	fixed := decimal.New(cents, -2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(whole) + "," + frac + " " + euroSign
}

// groupThousands inserts a dot every three digits from the right.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
