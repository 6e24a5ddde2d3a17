package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	ProviderName string
	Latest       map[string]*Tick
	Daily        map[string]model.History
	Err          error
	Calls        int
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) FetchLatest(_ context.Context, symbol string) (*Tick, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if t, ok := m.Latest[symbol]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("mock latest %s: %w", symbol, ErrNoData)
}

func (m *MockProvider) FetchDaily(_ context.Context, symbol string, from, to time.Time) (model.History, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	fromDay, toDay := from.Format(model.DateLayout), to.Format(model.DateLayout)
	var out model.History
	for _, p := range m.Daily[symbol] {
		if d := p.Day(); d >= fromDay && d <= toDay {
			out = append(out, p)
		}
	}
	return out, nil
}

// GenerateMockHistory builds n consecutive weekday closes ending the weekday
// before end, starting at base and moving by step each day.
func GenerateMockHistory(end time.Time, n int, base, step float64) model.History {
	days := make([]time.Time, 0, n)
	d := end
	for len(days) < n {
		d = PreviousWeekday(d)
		days = append(days, d)
	}
	h := make(model.History, n)
	for i := range days {
		day := days[n-1-i]
		h[i] = model.PricePoint{Date: day, Price: base + float64(i)*step, Label: day.Format(model.DateLayout)}
	}
	return h
}

func isNoData(err error) bool {
	return err != nil && errors.Is(err, ErrNoData)
}
