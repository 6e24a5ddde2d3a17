package history

import "context"

// Column positions of a persisted row.
const (
	ColSymbol = iota
	ColName
	ColDate
	ColPrice
	ColMA5
	ColMA20
	ColMA60
	ColTimestamp
	NumColumns
)

// Table is a positional, append-friendly row store shared by every symbol.
// Row indexes are 0-based over the data rows, in stored order.
type Table interface {
	ReadRows(ctx context.Context) ([][]string, error)
	AppendRows(ctx context.Context, rows [][]string) error
	// OverwriteRows clears every data row and writes rows back in order.
	OverwriteRows(ctx context.Context, rows [][]string) error
	UpdateRow(ctx context.Context, index int, row []string) error
}
