package history

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"StockPulse/internal/model"
)

// Reasons a stored row is rejected on load.
var (
	errShortRow = errors.New("short_row")
	errBadDate  = errors.New("bad_date")
	errBadPrice = errors.New("bad_price")
)

// dateLayouts lists the renderings a spreadsheet may hand back for a day.
var dateLayouts = []string{model.DateLayout, "2006/1/2", "2006/01/02", "2006-1-2", "1/2/2006", "01/02/2006"}

// EncodeRecord renders a record into table column order.
func EncodeRecord(r model.Record) []string {
	row := make([]string, NumColumns)
	row[ColSymbol] = r.Symbol
	row[ColName] = r.Name
	row[ColDate] = r.Date
	row[ColPrice] = strconv.FormatFloat(r.Price, 'f', -1, 64)
	row[ColMA5] = formatMA(r.MA5)
	row[ColMA20] = formatMA(r.MA20)
	row[ColMA60] = formatMA(r.MA60)
	row[ColTimestamp] = r.Timestamp
	return row
}

// DecodeRow parses one stored row. Average columns that fail to parse are
// treated as empty; a bad date or price rejects the whole row.
func DecodeRow(row []string, loc *time.Location) (model.Record, error) {
	if len(row) <= ColPrice {
		return model.Record{}, errShortRow
	}
	day, err := parseDay(row[ColDate], loc)
	if err != nil {
		return model.Record{}, errBadDate
	}
	price, err := parseNumber(row[ColPrice])
	if err != nil || price <= 0 {
		return model.Record{}, errBadPrice
	}
	rec := model.Record{
		Symbol: strings.TrimSpace(row[ColSymbol]),
		Name:   cell(row, ColName),
		Date:   day.Format(model.DateLayout),
		Price:  price,
		MA5:    parseMA(cell(row, ColMA5)),
		MA20:   parseMA(cell(row, ColMA20)),
		MA60:   parseMA(cell(row, ColMA60)),
	}
	rec.Timestamp = cell(row, ColTimestamp)
	if rec.Timestamp == "" {
		rec.Timestamp = rec.Date
	}
	return rec, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		d, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseNumber accepts spreadsheet-formatted numbers such as "1,005.5".
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

func parseMA(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := parseNumber(s)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func formatMA(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
