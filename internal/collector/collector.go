package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"StockPulse/internal/cache"
	"StockPulse/internal/model"
	"StockPulse/internal/retry"
)

// Collector is the PriceSource: quotes through the chain, daily history and
// previous closes through the primary provider.
type Collector struct {
	Chain        *Chain
	Daily        Provider
	Cache        cache.BytesCache
	CacheTTL     time.Duration
	LookbackDays int
	Retries      int
}

// NewCollector creates a new Collector.
func NewCollector(chain *Chain, daily Provider, c cache.BytesCache, ttl time.Duration) *Collector {
	return &Collector{
		Chain:        chain,
		Daily:        daily,
		Cache:        c,
		CacheTTL:     ttl,
		LookbackDays: chain.LookbackDays,
		Retries:      chain.Retries,
	}
}

// Today returns midnight of the current day in the configured location.
func (c *Collector) Today() time.Time {
	return startOfDay(c.Chain.Now().In(c.Chain.Location))
}

// FetchQuote returns the current quote with PrevClose filled. When no prior
// close can be found, PrevClose equals Price so the change is zero.
func (c *Collector) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	q, err := c.Chain.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	today := c.Today()
	if !q.IsLatest {
		// the quote itself is a prior close; its baseline is the day before it
		if len(q.Label) >= len(model.DateLayout) {
			if d, err := time.ParseInLocation(model.DateLayout, q.Label[:len(model.DateLayout)], today.Location()); err == nil {
				today = d
			}
		}
	}
	if prev, ok := c.FetchPreviousClose(ctx, symbol, today); ok {
		q.PrevClose = prev
	} else {
		q.PrevClose = q.Price
	}
	return q, nil
}

// FetchPreviousClose looks back LookbackDays calendar days for the most recent
// close strictly before day.
func (c *Collector) FetchPreviousClose(ctx context.Context, symbol string, day time.Time) (float64, bool) {
	key := fmt.Sprintf("prevclose:%s:%s", symbol, day.Format(model.DateLayout))
	if c.Cache != nil {
		if b, ok, err := c.Cache.GetBytes(key); err == nil && ok {
			if v, err := strconv.ParseFloat(string(b), 64); err == nil {
				return v, true
			}
		}
	}

	h, err := c.daily(ctx, "previous close", symbol, day.AddDate(0, 0, -c.LookbackDays), day.AddDate(0, 0, -1))
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("previous close lookup failed")
		return 0, false
	}
	last, ok := h.Before(day.Format(model.DateLayout)).Last()
	if !ok {
		return 0, false
	}
	if c.Cache != nil {
		if err := c.Cache.SetBytes(key, []byte(strconv.FormatFloat(last.Price, 'f', -1, 64)), c.CacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return last.Price, true
}

// FetchHistory returns the last days calendar days of closes strictly before
// today from the primary provider.
func (c *Collector) FetchHistory(ctx context.Context, symbol string, days int) (model.History, error) {
	today := c.Today()
	h, err := c.daily(ctx, "history", symbol, today.AddDate(0, 0, -days), today.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	return h.Before(today.Format(model.DateLayout)), nil
}

// FetchRange returns daily closes between from and to inclusive.
func (c *Collector) FetchRange(ctx context.Context, symbol string, from, to time.Time) (model.History, error) {
	h, err := c.daily(ctx, "range", symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch range %s: %w", symbol, err)
	}
	return h, nil
}

// IsTradingDay probes the reference symbol for a close on the previous
// weekday; no data there means the market is treated as closed today.
// Upstream errors fail open.
func (c *Collector) IsTradingDay(ctx context.Context, reference string) bool {
	today := c.Today()
	if wd := today.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	probe := PreviousWeekday(today)
	h, err := c.Daily.FetchDaily(ctx, reference, probe, probe)
	if err != nil && !isNoData(err) {
		log.Warn().Err(err).Str("reference", reference).Msg("trading day probe failed, assuming open")
		return true
	}
	return len(h) > 0
}

// PreviousWeekday returns the closest Monday-Friday strictly before day.
func PreviousWeekday(day time.Time) time.Time {
	d := day.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// daily wraps FetchDaily with the fixed retry budget. An empty answer is an
// empty history, not an error.
func (c *Collector) daily(ctx context.Context, op, symbol string, from, to time.Time) (model.History, error) {
	var h model.History
	err := retry.Fixed(ctx, c.Retries, op, func() error {
		var err error
		h, err = c.Daily.FetchDaily(ctx, symbol, from, to)
		if isNoData(err) {
			h, err = nil, nil
		}
		return err
	})
	return h, err
}

// FetchPriorClose returns the most recent close strictly before today as a
// quote, with the close before it as PrevClose.
func (c *Collector) FetchPriorClose(ctx context.Context, symbol string) (*model.Quote, error) {
	today := c.Today()
	h, err := c.daily(ctx, "prior close", symbol, today.AddDate(0, 0, -c.LookbackDays), today.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrUnavailable)
	}
	h = h.Before(today.Format(model.DateLayout))
	last, ok := h.Last()
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrUnavailable)
	}
	q := &model.Quote{
		Symbol:    symbol,
		Price:     last.Price,
		PrevClose: last.Price,
		Label:     last.Day() + " 收盤",
		Source:    c.Daily.Name() + ":" + TierPriorClose,
		FetchedAt: c.Chain.Now().In(c.Chain.Location),
	}
	if len(h) >= 2 {
		q.PrevClose = h[len(h)-2].Price
	} else if prev, ok := c.FetchPreviousClose(ctx, symbol, last.Date); ok {
		q.PrevClose = prev
	}
	return q, nil
}
