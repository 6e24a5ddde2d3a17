package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"StockPulse/internal/calculator"
	"StockPulse/internal/config"
	"StockPulse/internal/history"
	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
	"StockPulse/internal/recorder"
	"StockPulse/internal/strategy"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAborted Outcome = "aborted"
)

// PriceSource is what the runner needs from the collector.
type PriceSource interface {
	Today() time.Time
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
	FetchPriorClose(ctx context.Context, symbol string) (*model.Quote, error)
	FetchHistory(ctx context.Context, symbol string, days int) (model.History, error)
	FetchRange(ctx context.Context, symbol string, from, to time.Time) (model.History, error)
	IsTradingDay(ctx context.Context, reference string) bool
}

// HistoryStore is what the runner needs from the persisted history.
type HistoryStore interface {
	Load(ctx context.Context, symbol string) (model.History, error)
	Records(ctx context.Context, symbol string) ([]model.Record, error)
	Append(ctx context.Context, rec model.Record) (bool, error)
	AppendOrUpdate(ctx context.Context, rec model.Record) error
	Trim(ctx context.Context, symbol string, keepDays int) (int, error)
}

// Pusher delivers a message to every configured channel.
type Pusher interface {
	Send(ctx context.Context, text string) int
}

// Options are the run-time knobs taken from config.
type Options struct {
	PriorCloseAt  int // minutes after midnight
	PostCloseAt   int
	Guard         bool
	GuardSymbol   string
	SeedDays      int
	KeepDays      int
	BackfillDays  int
	BackfillBatch int
	BackfillPause time.Duration
}

// OptionsFromConfig converts the loaded config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	prior, err := config.ClockAt(cfg.Session.PriorCloseAt)
	if err != nil {
		return Options{}, err
	}
	post, err := config.ClockAt(cfg.Session.PostCloseAt)
	if err != nil {
		return Options{}, err
	}
	return Options{
		PriorCloseAt:  prior,
		PostCloseAt:   post,
		Guard:         cfg.Guard.Enabled,
		GuardSymbol:   cfg.Guard.ReferenceSymbol,
		SeedDays:      cfg.Source.SeedDays,
		KeepDays:      cfg.Store.KeepDays,
		BackfillDays:  cfg.Backfill.Days,
		BackfillBatch: cfg.Backfill.BatchDays,
		BackfillPause: cfg.Backfill.Pause,
	}, nil
}

// Runner composes one pass over the watched symbols.
type Runner struct {
	Symbols  []config.Symbol
	Source   PriceSource
	Store    HistoryStore
	Advisor  strategy.Advisor
	Pusher   Pusher
	Recorder recorder.Recorder
	Metrics  *metrics.Recorder
	Location *time.Location
	Now      func() time.Time
	Opts     Options
}

// RunOnce fetches, evaluates and pushes every symbol in order. Per-symbol
// failures degrade to an "unavailable" push; only a closed market aborts.
func (r *Runner) RunOnce(ctx context.Context) Outcome {
	start := time.Now()
	now := r.Now().In(r.Location)
	session := SessionAt(now, r.Opts.PriorCloseAt, r.Opts.PostCloseAt)
	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Str("session", string(session)).Logger()

	if r.Opts.Guard && !r.Source.IsTradingDay(ctx, r.Opts.GuardSymbol) {
		logger.Info().Str("reference", r.Opts.GuardSymbol).Msg("market closed today, nothing to do")
		r.Metrics.RunFinished("run", string(OutcomeAborted), time.Since(start).Seconds())
		return OutcomeAborted
	}

	logger.Info().Int("symbols", len(r.Symbols)).Msg("run started")
	for _, sym := range r.Symbols {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("run cancelled")
			break
		}
		evt := r.runSymbol(ctx, sym, session, now)
		evt.RunID = runID
		if err := r.Recorder.RecordRun(evt); err != nil {
			logger.Error().Err(err).Str("symbol", sym.ID).Msg("record run event")
		}
	}

	r.Metrics.RunFinished("run", string(OutcomeDone), time.Since(start).Seconds())
	logger.Info().Dur("elapsed", time.Since(start)).Msg("run finished")
	return OutcomeDone
}

func (r *Runner) runSymbol(ctx context.Context, sym config.Symbol, session Session, now time.Time) *recorder.RunEvent {
	name := sym.DisplayName()
	evt := &recorder.RunEvent{Mode: "run", Session: string(session), Symbol: sym.ID, At: now}

	var (
		q   *model.Quote
		err error
	)
	if session == SessionPriorClose {
		q, err = r.Source.FetchPriorClose(ctx, sym.ID)
	} else {
		q, err = r.Source.FetchQuote(ctx, sym.ID)
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", sym.ID).Msg("no quote available")
		r.Metrics.QuoteUnavailable(sym.ID)
		evt.Delivered = r.Pusher.Send(ctx, notifier.FormatUnavailable(sym.ID, name, now))
		evt.Outcome = "unavailable"
		return evt
	}
	r.Metrics.QuoteServed(sym.ID, q.Source, q.Price)
	change := model.ComputeChange(q.PrevClose, q.Price)
	evt.Price, evt.PrevClose, evt.Source = q.Price, q.PrevClose, q.Source
	evt.ChangePct = change.PercentFloat()
	log.Info().Str("symbol", sym.ID).Str("source", q.Source).Float64("price", q.Price).
		Float64("prev_close", q.PrevClose).Str("change", change.Percent.StringFixed(2)).Msg("quote")

	if session == SessionPriorClose {
		evt.Delivered = r.Pusher.Send(ctx, notifier.FormatPriorCloseRecap(sym.ID, name, q, change, now))
		evt.Outcome = string(OutcomeDone)
		return evt
	}

	past := r.loadHistory(ctx, sym.ID)
	today := r.Source.Today()
	series := past
	if q.IsLatest {
		series = history.MergePoints(past, model.PricePoint{Date: today, Price: q.Price, Label: q.Label})
	}
	ind := calculator.Compute(lastYear(series, today))
	adv := r.Advisor.Advise(strategy.Input{
		Price:      q.Price,
		Prev:       q.PrevClose,
		ChangePct:  change.PercentFloat(),
		History:    series,
		Indicators: ind,
	})
	evt.Rule, evt.Action = adv.Rule, string(adv.Action)

	var todayClose *float64
	if session == SessionPostClose {
		todayClose, evt.Persisted = r.persistClose(ctx, sym, past, today, now)
	}

	evt.Delivered = r.Pusher.Send(ctx, notifier.FormatQuoteReport(notifier.Report{
		Symbol:     sym.ID,
		Name:       name,
		Quote:      q,
		Change:     change,
		Indicators: ind,
		Advice:     &adv,
		PostClose:  session == SessionPostClose,
		TodayClose: todayClose,
		Now:        now,
	}))
	evt.Outcome = string(OutcomeDone)
	return evt
}

// loadHistory merges the persisted rows with freshly fetched closes so the
// averages work even before the store is seeded. Only days before today are
// kept.
func (r *Runner) loadHistory(ctx context.Context, symbol string) model.History {
	stored, err := r.Store.Load(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("load stored history failed")
	}
	var fetched model.History
	if r.Opts.SeedDays > 0 {
		fetched, err = r.Source.FetchHistory(ctx, symbol, r.Opts.SeedDays)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("fetch seed history failed")
		}
	}
	merged := history.MergePoints(stored, fetched...)
	return merged.Before(r.Source.Today().Format(model.DateLayout))
}

// persistClose stores today's official close with its averages, then trims.
func (r *Runner) persistClose(ctx context.Context, sym config.Symbol, past model.History, today, now time.Time) (*float64, bool) {
	h, err := r.Source.FetchRange(ctx, sym.ID, today, today)
	if err != nil {
		log.Warn().Err(err).Str("symbol", sym.ID).Msg("fetch today's close failed")
		return nil, false
	}
	last, ok := h.Last()
	if !ok || last.Day() != today.Format(model.DateLayout) {
		log.Info().Str("symbol", sym.ID).Msg("today's close not published yet")
		return nil, false
	}
	closePrice := last.Price

	series := history.MergePoints(past, model.PricePoint{Date: today, Price: closePrice})
	rec := model.Record{
		Symbol:    sym.ID,
		Name:      sym.DisplayName(),
		Date:      today.Format(model.DateLayout),
		Price:     closePrice,
		Timestamp: now.Format(time.DateTime),
	}
	rec.MA5, rec.MA20, rec.MA60 = calculator.Averages(series)

	wrote, err := r.Store.Append(ctx, rec)
	if err != nil {
		log.Error().Err(err).Str("symbol", sym.ID).Msg("persist close failed")
		return &closePrice, false
	}
	if _, err := r.Store.Trim(ctx, sym.ID, r.Opts.KeepDays); err != nil {
		log.Error().Err(err).Str("symbol", sym.ID).Msg("trim history failed")
	}
	return &closePrice, wrote
}

// lastYear keeps the points dated within one year of today.
func lastYear(h model.History, today time.Time) model.History {
	cutoff := today.AddDate(-1, 0, 0).Format(model.DateLayout)
	for i, p := range h {
		if p.Day() >= cutoff {
			return h[i:]
		}
	}
	return nil
}
