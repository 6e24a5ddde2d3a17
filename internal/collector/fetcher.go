package collector

import (
	"context"
	"errors"
	"time"

	"StockPulse/internal/model"
)

// ErrNoData is returned when a provider answers but has nothing for the query.
var ErrNoData = errors.New("no data")

// Tick is the latest intraday trade reported by a provider.
type Tick struct {
	Price float64
	Label string
}

// Provider defines the capabilities of one market-data upstream.
type Provider interface {
	// FetchLatest returns the most recent intraday trade for today.
	FetchLatest(ctx context.Context, symbol string) (*Tick, error)
	// FetchDaily returns daily closes with from <= date <= to, ascending.
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) (model.History, error)
	Name() string
}
