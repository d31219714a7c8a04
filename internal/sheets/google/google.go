package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pairledger/internal/core"
	applog "pairledger/internal/log"
	ports "pairledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab the ledger is written to.
const DefaultSheetName = "Ledger"

var header = []any{"Date", "Description", "Category", "Paid by", "Split", "Amount", "A share", "B share"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.LedgerExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Ledger")
// Credentials: see newSheetsService.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"))
}

// New creates a Sheets client for one spreadsheet tab.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportLedger replaces the sheet's contents with the ledger.
func (c *Client) ExportLedger(ctx context.Context, l ports.Ledger) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:H", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", c.sheetName, err)
	}

	values := ledgerValues(l)
	rng := fmt.Sprintf("%s!A1:H%d", c.sheetName, len(values))
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpExport,
		applog.FieldHousehold, l.Household.ID,
		"rows", len(l.Entries),
		"range", rng)
	return rng, nil
}

// ledgerValues lays out the header, one row per entry, a blank row and the
// balance summary.
func ledgerValues(l ports.Ledger) [][]any {
	values := make([][]any, 0, len(l.Entries)+6)
	values = append(values, header)
	for _, e := range l.Entries {
		category := e.Category
		if category == "" {
			category = "Uncategorized"
		}
		values = append(values, []any{
			e.Date.String(),
			e.Description,
			category,
			string(e.PaidBy),
			string(e.SplitType),
			e.Amount.String(),
			core.FormatAmount(e.AAmount),
			core.FormatAmount(e.BAmount),
		})
	}

	b := l.Balance
	values = append(values,
		[]any{},
		[]any{"A paid", b.APaid.String(), "B paid", b.BPaid.String()},
		[]any{"A fair share", core.FormatAmount(b.AFairShare), "B fair share", core.FormatAmount(b.BFairShare)},
		[]any{"Net balance", core.FormatAmount(b.NetBalance), "Settled", b.SettlementsTotal.String()},
	)
	return values
}
