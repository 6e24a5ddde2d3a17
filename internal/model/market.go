package model

import "time"

// DateLayout is the calendar-day format used in the store and in provider queries.
const DateLayout = "2006-01-02"

// PricePoint is one observed or closing price for a calendar day.
type PricePoint struct {
	Date  time.Time
	Price float64
	Label string // optional timestamp label, e.g. "2025-01-02 13:30:00"
}

// Day returns the point's date formatted as YYYY-MM-DD.
func (p PricePoint) Day() string {
	return p.Date.Format(DateLayout)
}

// History is an ascending-by-date series of points for one symbol.
// At most one point per calendar day.
type History []PricePoint

// Closes extracts the prices in order.
func (h History) Closes() []float64 {
	closes := make([]float64, len(h))
	for i, p := range h {
		closes[i] = p.Price
	}
	return closes
}

// Contains reports whether a point for the given day already exists.
func (h History) Contains(day string) bool {
	for _, p := range h {
		if p.Day() == day {
			return true
		}
	}
	return false
}

// Last returns the most recent point.
func (h History) Last() (PricePoint, bool) {
	if len(h) == 0 {
		return PricePoint{}, false
	}
	return h[len(h)-1], true
}

// Before returns the points strictly before the given day.
func (h History) Before(day string) History {
	out := make(History, 0, len(h))
	for _, p := range h {
		if p.Day() < day {
			out = append(out, p)
		}
	}
	return out
}

// WithPoint returns a copy of h with p appended, replacing an existing point
// for the same day.
func (h History) WithPoint(p PricePoint) History {
	out := make(History, 0, len(h)+1)
	for _, existing := range h {
		if existing.Day() != p.Day() {
			out = append(out, existing)
		}
	}
	return append(out, p)
}

// Quote is a transient price observation produced fresh each run.
type Quote struct {
	Symbol    string
	Price     float64
	PrevClose float64
	Label     string // observation time as reported upstream
	Source    string // "<provider>:<tier>"
	IsLatest  bool   // true for intraday ticks and same-day closes
	FetchedAt time.Time
}

// Record is one persisted row: a price point plus its precomputed averages.
type Record struct {
	Symbol    string
	Name      string
	Date      string
	Price     float64
	MA5       *float64
	MA20      *float64
	MA60      *float64
	Timestamp string
}

// Complete reports whether every average column is filled.
func (r Record) Complete() bool {
	return r.MA5 != nil && r.MA20 != nil && r.MA60 != nil
}
