package sheets

import (
	"context"
	"time"

	"pairledger/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for outbound adapters.
type (
	// LedgerExporter writes a household ledger to an external spreadsheet.
	LedgerExporter interface {
		ExportLedger(ctx context.Context, l Ledger) (ref string, err error)
	}
)

// Ledger is a spreadsheet-ready view of a household: every expense with its
// fair shares, followed by the balance.
type Ledger struct {
	Household   core.Household
	Entries     []Entry
	Balance     core.Balance
	GeneratedAt time.Time
}

type Entry struct {
	Date        core.Date
	Description string
	Category    string
	PaidBy      core.Member
	SplitType   core.SplitType
	Amount      core.Money
	AAmount     decimal.Decimal
	BAmount     decimal.Decimal
}
