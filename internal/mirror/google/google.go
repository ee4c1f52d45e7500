// Package google mirrors reconciled grids into a Google Sheets spreadsheet,
// one sheet per year, using Service Account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"esgrec/internal/core"
	ports "esgrec/internal/mirror"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID string
	// Base sheet name without year (e.g. "Matrix"); the year is prefixed.
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.GridMirror = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing mirror spreadsheet id")
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Matrix"
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// PublishGrid replaces the year's sheet contents with the given grid. Blank
// cells are written as empty strings so the spreadsheet keeps the null/zero
// distinction visible.
func (c *Client) PublishGrid(ctx context.Context, companyID int64, year int, rows []core.GridRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetName := yearPrefixedName(c.sheetBase, year)

	clearRange := fmt.Sprintf("%s!A:Q", sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, headerRow())
	for _, row := range rows {
		values = append(values, sheetRow(companyID, row))
	}

	writeRange := fmt.Sprintf("%s!A1", sheetName)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	return nil
}

func headerRow() []any {
	header := []any{"Company", "Account ID", "Account", "Unit"}
	for _, slot := range core.MonthSlots {
		header = append(header, string(slot))
	}
	return append(header, "Total")
}

func sheetRow(companyID int64, row core.GridRow) []any {
	out := []any{companyID, int64(row.AccountID), row.AccountName, row.Unit}
	for _, cell := range row.Months {
		if cell.Valid {
			out = append(out, cell.Value)
		} else {
			out = append(out, "")
		}
	}
	return append(out, row.Total)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a
// 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
