package sheets

import "context"

// JournalWriter appends rows to the ledger journal tab.
type JournalWriter interface {
	// AppendRows adds rows after the last filled row and returns the range written.
	AppendRows(ctx context.Context, rows [][]any) (updatedRange string, err error)
	// EnsureHeader writes header into row 1 when the tab is empty.
	EnsureHeader(ctx context.Context, header []any) error
}
