// Package google exports expenses to a Google Sheets spreadsheet. Each
// expense owns one row, found by its ID in the last column, so re-exporting
// a changed expense updates the row in place.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ausgaben/internal/core"
	"ausgaben/internal/ports"
)

// Columns: date, name, amount, category, note, id.
const (
	firstCol = "A"
	lastCol  = "F"
)

var _ ports.ExpenseExporter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client authenticated with a service account.
// Extra options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Ausgaben"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Export writes the expense row and returns its A1 range.
func (c *Client) Export(ctx context.Context, e core.Expense, categoryName string) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		e.Date.ISO(),
		e.Name,
		e.Amount.Euros().InexactFloat64(),
		categoryName,
		e.Note,
		e.ID,
	}}}

	row, err := c.findRow(ctx, e.ID)
	if err != nil {
		return "", err
	}

	if row > 0 {
		rng := fmt.Sprintf("%s!%s%d:%s%d", c.sheetName, firstCol, row, lastCol, row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, firstCol, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// findRow returns the 1-based row holding id, or 0.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, lastCol, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}
