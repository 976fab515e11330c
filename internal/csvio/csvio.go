// Package csvio reads and writes the expense interchange format: a CSV or
// TSV file with a header row naming the columns name, amount, date and,
// optionally, category and note.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ausgaben/internal/core"
)

// Header is the column order written by Write.
var Header = []string{"name", "amount", "date", "category", "note"}

var ErrMissingColumns = errors.New("headers required: name, amount, date (optional: category, note)")

var germanDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)

// Row is one expense line. Category is the raw name and may be empty.
type Row struct {
	Name     string
	Amount   core.Money
	Date     core.Date
	Category string
	Note     string
}

// ReadResult holds the accepted rows and how many data rows were dropped.
type ReadResult struct {
	Rows    []Row
	Skipped int
}

// Read parses an import file. The file is tab separated when filename ends
// in ".tsv" or the first line contains a tab. Rows whose amount or date
// cannot be read are skipped and counted.
func Read(r io.Reader, filename string) (ReadResult, error) {
	br := bufio.NewReader(r)
	first, _ := br.Peek(4096)
	firstLine, _, _ := strings.Cut(string(first), "\n")

	cr := csv.NewReader(br)
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") || strings.Contains(firstLine, "\t") {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return ReadResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	records = dropBlank(records)
	if len(records) == 0 {
		return ReadResult{}, nil
	}

	idx := make(map[string]int)
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	for _, required := range []string{"name", "amount", "date"} {
		if _, ok := idx[required]; !ok {
			return ReadResult{}, ErrMissingColumns
		}
	}
	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var res ReadResult
	for _, rec := range records[1:] {
		amount, err := core.ParseAmount(col(rec, "amount"))
		if err != nil {
			res.Skipped++
			continue
		}
		date, err := ParseDate(col(rec, "date"))
		if err != nil {
			res.Skipped++
			continue
		}
		name := col(rec, "name")
		if name == "" {
			name = core.Untitled
		}
		res.Rows = append(res.Rows, Row{
			Name:     name,
			Amount:   amount,
			Date:     date,
			Category: col(rec, "category"),
			Note:     col(rec, "note"),
		})
	}
	return res, nil
}

// ParseDate accepts D.M.YYYY and YYYY-MM-DD.
func ParseDate(s string) (core.Date, error) {
	if m := germanDateRe.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if !core.ValidDate(y, mo, d) {
			return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
		}
		return core.NewDate(y, time.Month(mo), d), nil
	}
	return core.ParseISODate(s)
}

// Write renders rows with a header line. Every field is quoted and amounts
// use a decimal comma.
func Write(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	writeLine(bw, Header)
	for _, r := range rows {
		writeLine(bw, []string{r.Name, r.Amount.CommaString(), r.Date.ISO(), r.Category, r.Note})
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func dropBlank(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		for _, f := range rec {
			if strings.TrimSpace(f) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
