package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"

	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/retry"
)

// ErrRateLimited is returned once the backoff budget for a throttled call is spent.
var ErrRateLimited = errors.New("store rate limited")

// Store is the HistoryStore: per-symbol view over a shared Table.
type Store struct {
	table    Table
	policy   retry.Policy
	metrics  *metrics.Recorder
	location *time.Location
}

// NewStore wraps a table. Throttled calls are retried per policy.
func NewStore(table Table, policy retry.Policy, m *metrics.Recorder, loc *time.Location) *Store {
	return &Store{table: table, policy: policy, metrics: m, location: loc}
}

// Load returns the symbol's valid points, ascending, one per day.
// Malformed rows are dropped and counted.
func (s *Store) Load(ctx context.Context, symbol string) (model.History, error) {
	recs, err := s.Records(ctx, symbol)
	if err != nil {
		return nil, err
	}
	h := make(model.History, 0, len(recs))
	for _, r := range recs {
		d, _ := time.ParseInLocation(model.DateLayout, r.Date, s.location)
		h = h.WithPoint(model.PricePoint{Date: d, Price: r.Price, Label: r.Timestamp})
	}
	sort.SliceStable(h, func(i, j int) bool { return h[i].Day() < h[j].Day() })
	return h, nil
}

// Records returns the symbol's valid rows in stored order.
func (s *Store) Records(ctx context.Context, symbol string) ([]model.Record, error) {
	rows, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Record
	for i, row := range rows {
		if rowSymbol(row) != symbol {
			continue
		}
		rec, err := DecodeRow(row, s.location)
		if err != nil {
			log.Warn().Str("symbol", symbol).Int("row", i).Str("reason", err.Error()).
				Strs("cells", row).Msg("dropping malformed history row")
			s.metrics.RowDropped(symbol, err.Error())
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append writes rec unless a row for the same symbol and date already
// exists. It reports whether a row was written.
func (s *Store) Append(ctx context.Context, rec model.Record) (bool, error) {
	rows, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	if s.find(rows, rec.Symbol, rec.Date) >= 0 {
		log.Info().Str("symbol", rec.Symbol).Str("date", rec.Date).Msg("history already has this day, skipping")
		return false, nil
	}
	err = s.call(ctx, "append", func() error {
		return s.table.AppendRows(ctx, [][]string{EncodeRecord(rec)})
	})
	if err != nil {
		return false, fmt.Errorf("append %s %s: %w", rec.Symbol, rec.Date, err)
	}
	s.metrics.RowWritten(rec.Symbol, "append")
	log.Info().Str("symbol", rec.Symbol).Str("date", rec.Date).Float64("price", rec.Price).Msg("history row appended")
	return true, nil
}

// AppendOrUpdate overwrites the row matching (symbol, date) in place, or
// appends when there is none.
func (s *Store) AppendOrUpdate(ctx context.Context, rec model.Record) error {
	rows, err := s.read(ctx)
	if err != nil {
		return err
	}
	row := EncodeRecord(rec)
	if idx := s.find(rows, rec.Symbol, rec.Date); idx >= 0 {
		err = s.call(ctx, "update", func() error { return s.table.UpdateRow(ctx, idx, row) })
		if err != nil {
			return fmt.Errorf("update %s %s: %w", rec.Symbol, rec.Date, err)
		}
		s.metrics.RowWritten(rec.Symbol, "update")
		return nil
	}
	err = s.call(ctx, "append", func() error { return s.table.AppendRows(ctx, [][]string{row}) })
	if err != nil {
		return fmt.Errorf("append %s %s: %w", rec.Symbol, rec.Date, err)
	}
	s.metrics.RowWritten(rec.Symbol, "append")
	return nil
}

// Trim keeps the symbol's keepDays newest rows by date and every row of
// other symbols, rewriting the table in its original order. Rows whose date
// cannot be parsed are removed first. It returns the number of rows removed.
func (s *Store) Trim(ctx context.Context, symbol string, keepDays int) (int, error) {
	rows, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	type dated struct {
		index int
		day   string
	}
	var own []dated
	for i, row := range rows {
		if rowSymbol(row) != symbol {
			continue
		}
		day := ""
		if len(row) > ColDate {
			if d, err := parseDay(row[ColDate], s.location); err == nil {
				day = d.Format(model.DateLayout)
			}
		}
		own = append(own, dated{index: i, day: day})
	}
	drop := len(own) - keepDays
	if drop <= 0 {
		return 0, nil
	}

	// Oldest first; unparsable dates sort as "" and go before everything.
	// Among equal days the earlier stored row goes first.
	sort.SliceStable(own, func(i, j int) bool { return own[i].day < own[j].day })
	removed := make(map[int]bool, drop)
	for _, d := range own[:drop] {
		removed[d.index] = true
	}

	kept := make([][]string, 0, len(rows)-drop)
	for i, row := range rows {
		if !removed[i] {
			kept = append(kept, row)
		}
	}
	err = s.call(ctx, "overwrite", func() error { return s.table.OverwriteRows(ctx, kept) })
	if err != nil {
		return 0, fmt.Errorf("trim %s: %w", symbol, err)
	}
	log.Info().Str("symbol", symbol).Int("removed", drop).Int("kept", keepDays).Msg("history trimmed")
	return drop, nil
}

func (s *Store) read(ctx context.Context) ([][]string, error) {
	var rows [][]string
	err := s.call(ctx, "read", func() error {
		var err error
		rows, err = s.table.ReadRows(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return rows, nil
}

// find returns the index of the first row for symbol on date, or -1.
func (s *Store) find(rows [][]string, symbol, date string) int {
	for i, row := range rows {
		if rowSymbol(row) != symbol || len(row) <= ColDate {
			continue
		}
		if d, err := parseDay(row[ColDate], s.location); err == nil && d.Format(model.DateLayout) == date {
			return i
		}
	}
	return -1
}

func (s *Store) call(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(ctx, s.policy, "history "+op, func(err error) bool {
		if !IsRateLimited(err) {
			return false
		}
		s.metrics.RateLimited(op)
		return true
	}, fn)
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

func rowSymbol(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[ColSymbol])
}

// IsRateLimited reports whether err is a throttling answer: HTTP 429, a
// quota error, or a busy local database.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"quota", "rate limit", "resource_exhausted", "database is locked", "sqlite_busy"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
