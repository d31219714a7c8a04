package memory

import (
	"context"
	"fmt"
	"sync"

	ports "pairledger/internal/sheets"
)

var _ ports.LedgerExporter = (*Store)(nil)

// Store keeps exported ledgers in memory. It stands in for Google Sheets in
// tests and when no spreadsheet is configured.
type Store struct {
	mu      sync.Mutex
	exports []ports.Ledger
}

func New() *Store {
	return &Store{}
}

// ExportLedger stores the ledger and returns a synthetic reference.
func (s *Store) ExportLedger(_ context.Context, l ports.Ledger) (string, error) {
	if l.Household.ID == "" {
		return "", fmt.Errorf("export ledger: missing household")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, l)
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exports returns a copy of every ledger exported so far.
func (s *Store) Exports() []ports.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Ledger(nil), s.exports...)
}
