package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsTable stores rows in one Google Sheets tab. Row 1 is a header; data
// starts at row 2 in columns A:H.
type SheetsTable struct {
	svc     *sheets.Service
	sheetID string
	tab     string
}

// NewSheetsTable authenticates with a service-account JSON blob.
func NewSheetsTable(ctx context.Context, credentialsJSON, sheetID, tab string, opts ...option.ClientOption) (*SheetsTable, error) {
	if credentialsJSON != "" {
		opts = append([]option.ClientOption{option.WithCredentialsJSON([]byte(credentialsJSON))}, opts...)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	log.Info().Str("sheet", sheetID).Str("tab", tab).Msg("google sheets store ready")
	return &SheetsTable{svc: svc, sheetID: sheetID, tab: tab}, nil
}

func (t *SheetsTable) dataRange() string { return t.tab + "!A2:H" }

func (t *SheetsTable) ReadRows(ctx context.Context) ([][]string, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.sheetID, t.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func (t *SheetsTable) AppendRows(ctx context.Context, rows [][]string) error {
	_, err := t.svc.Spreadsheets.Values.Append(t.sheetID, t.tab+"!A2", valueRange(rows)).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (t *SheetsTable) OverwriteRows(ctx context.Context, rows [][]string) error {
	if _, err := t.svc.Spreadsheets.Values.Clear(t.sheetID, t.dataRange(), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := t.svc.Spreadsheets.Values.Update(t.sheetID, t.tab+"!A2", valueRange(rows)).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (t *SheetsTable) UpdateRow(ctx context.Context, index int, row []string) error {
	rng := fmt.Sprintf("%s!A%d:H%d", t.tab, index+2, index+2)
	_, err := t.svc.Spreadsheets.Values.Update(t.sheetID, rng, valueRange([][]string{row})).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// cellString renders an unformatted cell. Numbers arrive as float64 and are
// printed without exponent or thousands separators.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func valueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	return &sheets.ValueRange{Values: values}
}
