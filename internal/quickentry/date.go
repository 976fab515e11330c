package quickentry

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ausgaben/internal/core"
)

var explicitDateRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)

// relativeDays maps day keywords to the number of days before now.
var relativeDays = map[string]int{
	"heute":      0,
	"gestern":    1,
	"vorgestern": 2,
}

// weekdays maps German weekday keywords to Monday=1 … Saturday=6, Sunday=0.
var weekdays = map[string]time.Weekday{
	"mo": time.Monday, "montag": time.Monday,
	"di": time.Tuesday, "dienstag": time.Tuesday,
	"mi": time.Wednesday, "mittwoch": time.Wednesday,
	"do": time.Thursday, "donnerstag": time.Thursday,
	"fr": time.Friday, "freitag": time.Friday,
	"sa": time.Saturday, "samstag": time.Saturday,
	"so": time.Sunday, "sonntag": time.Sunday,
}

// ResolveDate determines the date an entry refers to.
//
// An explicit D.M.YYYY token wins and is cut from the text. Otherwise every
// day keyword (heute, gestern, vorgestern, German weekday names and their
// two-letter abbreviations) is removed and the last one found decides the
// date. A weekday always resolves to a past day, never to today. Without
// either, the result is now's calendar date.
//
// ResolveDate panics if now is the zero time.
func ResolveDate(text string, now time.Time) (core.Date, string) {
	if now.IsZero() {
		panic("quickentry: ResolveDate called with zero reference time")
	}
	today := core.DateOf(now)

	if d, rest, ok := explicitDate(text); ok {
		return d, rest
	}

	tokens := strings.Fields(text)
	keep := make([]string, 0, len(tokens))
	var (
		resolved core.Date
		found    bool
	)
	for _, tok := range tokens {
		d, ok := keywordDate(strings.ToLower(tok), today)
		if !ok {
			keep = append(keep, tok)
			continue
		}
		resolved, found = d, true
	}
	if !found {
		return today, text
	}
	return resolved, strings.Join(keep, " ")
}

func explicitDate(text string) (core.Date, string, bool) {
	for _, m := range explicitDateRe.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if !core.ValidDate(year, month, day) {
			continue
		}
		return core.NewDate(year, time.Month(month), day), text[:m[0]] + " " + text[m[1]:], true
	}
	return core.Date{}, text, false
}

func keywordDate(tok string, today core.Date) (core.Date, bool) {
	if n, ok := relativeDays[tok]; ok {
		return today.AddDays(-n), true
	}
	target, ok := weekdays[tok]
	if !ok {
		return core.Date{}, false
	}
	back := (int(today.Weekday()) - int(target) + 7) % 7
	if back == 0 {
		back = 7
	}
	return today.AddDays(-back), true
}
