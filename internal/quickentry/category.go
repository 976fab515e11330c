package quickentry

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ausgaben/internal/core"
)

// Tagger detects a category name mentioned in free text.
type Tagger struct {
	names    []string
	patterns []*regexp.Regexp
}

// DefaultTagger recognizes the food category keyword only.
func DefaultTagger() *Tagger {
	return NewTagger()
}

// NewTagger builds a tagger over the given category names. The food
// category is always included. Longer names are tried first so that
// "bio lebensmittel" wins over "lebensmittel".
func NewTagger(names ...string) *Tagger {
	seen := map[string]bool{core.FoodCategory: true}
	list := []string{core.FoodCategory}
	for _, n := range names {
		n = strings.Join(strings.Fields(core.NormalizeCategory(n)), " ")
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		list = append(list, n)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return utf8.RuneCountInString(list[i]) > utf8.RuneCountInString(list[j])
	})

	t := &Tagger{names: list, patterns: make([]*regexp.Regexp, len(list))}
	for i, n := range list {
		t.patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(n))
	}
	return t
}

// Names returns the recognized names, longest first.
func (t *Tagger) Names() []string {
	return append([]string(nil), t.names...)
}

// Extract returns the first recognized category name (lowercased) and the
// text with every whole-word occurrence of it replaced by a space. When no
// name matches, ok is false and text is returned unchanged.
func (t *Tagger) Extract(text string) (tag string, ok bool, remainder string) {
	for i, re := range t.patterns {
		spans := wordMatches(re, text)
		if len(spans) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, s := range spans {
			b.WriteString(text[last:s[0]])
			b.WriteByte(' ')
			last = s[1]
		}
		b.WriteString(text[last:])
		return t.names[i], true, b.String()
	}
	return "", false, text
}

// wordMatches returns the matches of re that are not glued to a letter,
// digit or underscore on either side.
func wordMatches(re *regexp.Regexp, text string) [][]int {
	var out [][]int
	for _, m := range re.FindAllStringIndex(text, -1) {
		if m[0] > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:m[0]])
			if isWordRune(r) {
				continue
			}
		}
		if m[1] < len(text) {
			r, _ := utf8.DecodeRuneInString(text[m[1]:])
			if isWordRune(r) {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
