package quickentry

import (
	"strings"
	"testing"
	"time"
)

// friday is 2024-03-15, a Friday.
var friday = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestExtractAmount(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		cents  int64
		ok     bool
		remain string
	}{
		{"comma and euro sign", "12,50 €", 1250, true, ""},
		{"no amount", "kein betrag hier", 0, false, "kein betrag hier"},
		{"single decimal", "3.5 kaffee", 350, true, "kaffee"},
		{"integer", "100 Bus", 10000, true, "Bus"},
		{"glued euro sign", "Kino 7€", 700, true, "Kino"},
		{"first match only", "Bus 4,20 Kino 7", 420, true, "Bus Kino 7"},
		{"trailing separator", "12. Brot", 1200, true, "Brot"},
		{"too large for cents", "100000000000000000 Haus", 0, false, "100000000000000000 Haus"},
		{"far too large", "99999999999999999999 Auto", 0, false, "99999999999999999999 Auto"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok, rest := ExtractAmount(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if m.Cents != tc.cents {
				t.Fatalf("cents = %d, want %d", m.Cents, tc.cents)
			}
			if got := strings.Join(strings.Fields(rest), " "); got != tc.remain {
				t.Fatalf("remainder = %q, want %q", got, tc.remain)
			}
		})
	}
}

func TestExtractAmountLeavesTextUntouchedWithoutMatch(t *testing.T) {
	in := "  nur   text "
	if _, ok, rest := ExtractAmount(in); ok || rest != in {
		t.Fatalf("got ok=%v rest=%q", ok, rest)
	}
}

func TestResolveDate(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   string
		remain string
	}{
		{"explicit short", "15.3.2024", "2024-03-15", ""},
		{"explicit padded", "Kino 01.02.2023 abends", "2023-02-01", "Kino abends"},
		{"heute", "heute", "2024-03-15", ""},
		{"gestern", "gestern", "2024-03-14", ""},
		{"vorgestern", "Vorgestern Pizza", "2024-03-13", "Pizza"},
		{"monday abbreviation", "mo", "2024-03-11", ""},
		{"monday full", "Montag", "2024-03-11", ""},
		{"same weekday goes back a week", "fr", "2024-03-08", ""},
		{"sunday", "sonntag Brunch", "2024-03-10", "Brunch"},
		{"thursday", "do", "2024-03-14", ""},
		{"empty defaults to now", "", "2024-03-15", ""},
		{"no keyword", "Kaffee Kuchen", "2024-03-15", "Kaffee Kuchen"},
		{"last keyword wins", "heute Essen gestern", "2024-03-14", "Essen"},
		{"keyword must be a whole token", "Montagsmaler", "2024-03-15", "Montagsmaler"},
		{"invalid calendar day is ignored", "31.2.2024 Kino", "2024-03-15", "31.2.2024 Kino"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, rest := ResolveDate(tc.in, friday)
			if d.ISO() != tc.want {
				t.Fatalf("date = %s, want %s", d.ISO(), tc.want)
			}
			if got := strings.Join(strings.Fields(rest), " "); got != tc.remain {
				t.Fatalf("remainder = %q, want %q", got, tc.remain)
			}
		})
	}
}

func TestResolveDateUsesLocalCalendarDay(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	lateEvening := time.Date(2024, time.March, 15, 23, 45, 0, 0, berlin)
	d, _ := ResolveDate("", lateEvening)
	if d.ISO() != "2024-03-15" {
		t.Fatalf("date = %s, want the local calendar day", d.ISO())
	}
}

func TestResolveDatePanicsOnZeroNow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero reference time")
		}
	}()
	ResolveDate("heute", time.Time{})
}

func TestDefaultTagger(t *testing.T) {
	tg := DefaultTagger()
	cases := []struct {
		in     string
		tag    string
		ok     bool
		remain string
	}{
		{"Lebensmittel Kaffee", "lebensmittel", true, "Kaffee"},
		{"LEBENSMITTEL Brot lebensmittel", "lebensmittel", true, "Brot"},
		{"Lebensmittelmarkt", "", false, "Lebensmittelmarkt"},
		{"Bus Ticket", "", false, "Bus Ticket"},
		{"Brot (lebensmittel)", "lebensmittel", true, "Brot ( )"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			tag, ok, rest := tg.Extract(tc.in)
			if tag != tc.tag || ok != tc.ok {
				t.Fatalf("Extract = %q, %v; want %q, %v", tag, ok, tc.tag, tc.ok)
			}
			if got := strings.Join(strings.Fields(rest), " "); got != tc.remain {
				t.Fatalf("remainder = %q, want %q", got, tc.remain)
			}
		})
	}
}

func TestNewTaggerLongestMatchFirst(t *testing.T) {
	tg := NewTagger("Bus", "Bio Lebensmittel", "bus", "  ")
	names := tg.Names()
	if len(names) != 3 || names[0] != "bio lebensmittel" {
		t.Fatalf("Names() = %v", names)
	}

	tag, ok, rest := tg.Extract("bio Lebensmittel Käse")
	if !ok || tag != "bio lebensmittel" {
		t.Fatalf("Extract = %q, %v", tag, ok)
	}
	if strings.TrimSpace(rest) != "Käse" {
		t.Fatalf("remainder = %q", rest)
	}

	tag, ok, _ = tg.Extract("Lebensmittel Käse")
	if !ok || tag != "lebensmittel" {
		t.Fatalf("food keyword should always be known, got %q, %v", tag, ok)
	}
}

func TestNewTaggerUnicodeBoundaries(t *testing.T) {
	tg := NewTagger("bus")
	if _, ok, _ := tg.Extract("Äbus"); ok {
		t.Fatalf("match glued to a non-ASCII letter should be rejected")
	}
	if _, ok, _ := tg.Extract("Busfahrt"); ok {
		t.Fatalf("prefix match should be rejected")
	}
	tag, ok, rest := tg.Extract("Ticket, Bus!")
	if !ok || tag != "bus" || strings.Join(strings.Fields(rest), " ") != "Ticket, !" {
		t.Fatalf("Extract = %q, %v, %q", tag, ok, rest)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		cents    int64
		hasAmt   bool
		date     string
		category string
		label    string
	}{
		{"full line", "12,50 Lebensmittel Kaffee heute", 1250, true, "2024-03-15", "lebensmittel", "Kaffee"},
		{"residual text kept", "100 Bus", 10000, true, "2024-03-15", "", "Bus"},
		{"no amount", "Kaffee gestern", 0, false, "2024-03-14", "", "Kaffee"},
		{"only amount", "4,20", 420, true, "2024-03-15", "", "(untitled)"},
		{"explicit date after amount", "5 Kino 1.3.2024", 500, true, "2024-03-01", "", "Kino"},
		{"whitespace collapsed", "  3.5   Brot \t mo  ", 350, true, "2024-03-11", "", "Brot"},
		{"overflowing amount is no amount", "100000000000000000 Haus", 0, false, "2024-03-15", "", "100000000000000000 Haus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := Parse(tc.in, friday)
			if !ok {
				t.Fatalf("Parse returned no result")
			}
			if res.HasAmount != tc.hasAmt || res.Amount.Cents != tc.cents {
				t.Fatalf("amount = %d (has=%v), want %d (has=%v)", res.Amount.Cents, res.HasAmount, tc.cents, tc.hasAmt)
			}
			if res.Date.ISO() != tc.date {
				t.Fatalf("date = %s, want %s", res.Date.ISO(), tc.date)
			}
			if res.Category != tc.category {
				t.Fatalf("category = %q, want %q", res.Category, tc.category)
			}
			if res.Name != tc.label {
				t.Fatalf("name = %q, want %q", res.Name, tc.label)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		if _, ok := Parse(in, friday); ok {
			t.Fatalf("Parse(%q) should return no result", in)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser(WithTagger(NewTagger("Bus")))
	a, _ := p.Parse("2,80 bus gestern", friday)
	b, _ := p.Parse("2,80 bus gestern", friday)
	if a != b {
		t.Fatalf("repeated parse differs: %+v vs %+v", a, b)
	}
	if a.Category != "bus" || a.Name != "(untitled)" {
		t.Fatalf("got %+v", a)
	}
}
