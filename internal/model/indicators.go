package model

import "time"

// Trend is the 3-day directional label.
type Trend string

const (
	TrendDecline       Trend = "continuous-decline"
	TrendRise          Trend = "continuous-rise"
	TrendRebound       Trend = "rebound"
	TrendPullback      Trend = "pullback"
	TrendConsolidation Trend = "consolidation"
	TrendInsufficient  Trend = "insufficient-data"
)

// YearlyStats summarizes the retained history.
type YearlyStats struct {
	Max             float64
	Min             float64
	Mean            float64
	MaxDate         time.Time
	MinDate         time.Time
	PercentFromHigh float64
	PercentFromLow  float64
}

// Indicators holds everything derived from a History. A nil average means
// the history is shorter than its window.
type Indicators struct {
	MA5    *float64
	MA20   *float64
	MA60   *float64
	Trend  Trend
	Yearly *YearlyStats
}
