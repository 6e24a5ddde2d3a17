package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"StockPulse/internal/calculator"
	"StockPulse/internal/config"
	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
)

// Backfill fills missing or incomplete history rows for every symbol in
// paced batches, trims each symbol to the retention window and pushes a
// summary.
func (r *Runner) Backfill(ctx context.Context) []notifier.BackfillResult {
	start := time.Now()
	results := make([]notifier.BackfillResult, 0, len(r.Symbols))
	outcome := OutcomeDone
	for _, sym := range r.Symbols {
		if ctx.Err() != nil {
			outcome = OutcomeAborted
			break
		}
		res := r.backfillSymbol(ctx, sym)
		if res.Err != nil {
			log.Error().Err(res.Err).Str("symbol", sym.ID).Msg("backfill failed")
		}
		results = append(results, res)
	}
	r.Metrics.RunFinished("backfill", string(outcome), time.Since(start).Seconds())

	if len(results) > 0 {
		r.Pusher.Send(ctx, notifier.FormatBackfillSummary(results, time.Since(start)))
	}
	return results
}

func (r *Runner) backfillSymbol(ctx context.Context, sym config.Symbol) notifier.BackfillResult {
	res := notifier.BackfillResult{Symbol: sym.ID, Name: sym.DisplayName()}

	recs, err := r.Store.Records(ctx, sym.ID)
	if err != nil {
		res.Err = fmt.Errorf("read existing rows: %w", err)
		return res
	}
	stored := make(map[string][]model.Record, len(recs))
	for _, rec := range recs {
		stored[rec.Date] = append(stored[rec.Date], rec)
	}

	today := r.Source.Today()
	closes, err := r.Source.FetchRange(ctx, sym.ID, today.AddDate(0, 0, -r.Opts.BackfillDays), today.AddDate(0, 0, -1))
	if err != nil {
		res.Err = err
		return res
	}
	if len(closes) == 0 {
		log.Warn().Str("symbol", sym.ID).Msg("no daily closes to backfill from")
		return res
	}

	batch := r.Opts.BackfillBatch
	if batch <= 0 {
		batch = len(closes)
	}
	for from := 0; from < len(closes); from += batch {
		to := min(from+batch, len(closes))
		for i := from; i < to; i++ {
			p := closes[i]
			day := p.Day()
			if satisfied(stored[day], i+1) {
				continue
			}
			rec := model.Record{
				Symbol:    sym.ID,
				Name:      sym.DisplayName(),
				Date:      day,
				Price:     p.Price,
				Timestamp: day + " 00:00:00",
			}
			rec.MA5, rec.MA20, rec.MA60 = calculator.Averages(closes[:i+1])
			if err := r.Store.AppendOrUpdate(ctx, rec); err != nil {
				log.Error().Err(err).Str("symbol", sym.ID).Str("date", day).Msg("backfill write failed")
				continue
			}
			res.Written++
		}
		log.Info().Str("symbol", sym.ID).Int("from", from).Int("to", to).Int("written", res.Written).Msg("backfill batch done")

		if to < len(closes) && r.Opts.BackfillPause > 0 {
			select {
			case <-ctx.Done():
				res.Err = ctx.Err()
				return res
			case <-time.After(r.Opts.BackfillPause):
			}
		}
	}

	trimmed, err := r.Store.Trim(ctx, sym.ID, r.Opts.KeepDays)
	if err != nil {
		res.Err = fmt.Errorf("trim: %w", err)
		return res
	}
	res.Trimmed = trimmed
	return res
}

// satisfied reports whether one of the stored rows for a day already carries
// every average that n closes can supply. Early days of the window can never
// get MA60, so they count as done once MA5 and MA20 are in place.
func satisfied(rows []model.Record, n int) bool {
	for _, rec := range rows {
		if (n < 5 || rec.MA5 != nil) && (n < 20 || rec.MA20 != nil) && (n < 60 || rec.MA60 != nil) {
			return true
		}
	}
	return false
}
