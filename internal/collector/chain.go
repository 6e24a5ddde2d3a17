package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"StockPulse/internal/model"
	"StockPulse/internal/retry"
)

// ErrUnavailable means every tier of the chain failed.
var ErrUnavailable = errors.New("quote unavailable from every source")

// Tier kinds, in the order a default chain tries them.
const (
	TierLatest     = "latest"
	TierTodayClose = "today_close"
	TierPriorClose = "prior_close"
)

// Tier is one way of obtaining a price from one provider.
type Tier struct {
	Provider Provider
	Kind     string
}

// Source is the tag recorded on quotes served by this tier.
func (t Tier) Source() string { return t.Provider.Name() + ":" + t.Kind }

// Chain tries its tiers in order; the first success wins.
type Chain struct {
	Tiers        []Tier
	Retries      int
	LookbackDays int
	Location     *time.Location
	Now          func() time.Time
}

// ParseTiers resolves "provider:kind" specs against the known providers.
func ParseTiers(specs []string, providers map[string]Provider) ([]Tier, error) {
	tiers := make([]Tier, 0, len(specs))
	for _, spec := range specs {
		name, kind, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("tier %q: want provider:kind", spec)
		}
		p, ok := providers[name]
		if !ok {
			return nil, fmt.Errorf("tier %q: unknown provider %q", spec, name)
		}
		switch kind {
		case TierLatest, TierTodayClose, TierPriorClose:
		default:
			return nil, fmt.Errorf("tier %q: unknown kind %q", spec, kind)
		}
		tiers = append(tiers, Tier{Provider: p, Kind: kind})
	}
	return tiers, nil
}

// FetchQuote walks the tiers and returns the first usable price. PrevClose is
// left for the caller to fill.
func (c *Chain) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	now := c.Now().In(c.Location)
	for _, tier := range c.Tiers {
		var q *model.Quote
		err := retry.Fixed(ctx, c.Retries, tier.Source(), func() error {
			var err error
			q, err = c.fetchTier(ctx, tier, symbol, now)
			if errors.Is(err, ErrNoData) {
				return nil // empty answers are not worth retrying
			}
			return err
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil || q == nil {
			log.Info().Str("symbol", symbol).Str("tier", tier.Source()).Msg("tier yielded no quote, trying next")
			continue
		}
		q.Symbol = symbol
		q.Source = tier.Source()
		q.FetchedAt = now
		return q, nil
	}
	return nil, fmt.Errorf("%s: %w", symbol, ErrUnavailable)
}

func (c *Chain) fetchTier(ctx context.Context, tier Tier, symbol string, now time.Time) (*model.Quote, error) {
	today := startOfDay(now)
	switch tier.Kind {
	case TierLatest:
		tick, err := tier.Provider.FetchLatest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &model.Quote{Price: tick.Price, Label: tick.Label, IsLatest: true}, nil
	case TierTodayClose:
		h, err := tier.Provider.FetchDaily(ctx, symbol, today, today)
		if err != nil {
			return nil, err
		}
		last, ok := h.Last()
		if !ok || last.Day() != today.Format(model.DateLayout) {
			return nil, ErrNoData
		}
		return &model.Quote{Price: last.Price, Label: last.Day() + " 收盤", IsLatest: true}, nil
	case TierPriorClose:
		h, err := tier.Provider.FetchDaily(ctx, symbol, today.AddDate(0, 0, -c.LookbackDays), today.AddDate(0, 0, -1))
		if err != nil {
			return nil, err
		}
		h = h.Before(today.Format(model.DateLayout))
		last, ok := h.Last()
		if !ok {
			return nil, ErrNoData
		}
		return &model.Quote{Price: last.Price, Label: last.Day() + " 收盤", IsLatest: false}, nil
	}
	return nil, fmt.Errorf("unknown tier kind %q", tier.Kind)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
