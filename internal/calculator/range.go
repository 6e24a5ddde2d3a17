package calculator

import "StockPulse/internal/model"

// MinYearlyPoints is the shortest history YearlyStats will summarize.
const MinYearlyPoints = 30

// YearlyStats scans the whole retained history for its extremes. The first
// occurrence wins when the max or min repeats. Returns nil for short histories.
func YearlyStats(history model.History, current float64) *model.YearlyStats {
	if len(history) < MinYearlyPoints {
		return nil
	}
	st := &model.YearlyStats{
		Max:     history[0].Price,
		Min:     history[0].Price,
		MaxDate: history[0].Date,
		MinDate: history[0].Date,
	}
	sum := 0.0
	for _, p := range history {
		sum += p.Price
		if p.Price > st.Max {
			st.Max = p.Price
			st.MaxDate = p.Date
		}
		if p.Price < st.Min {
			st.Min = p.Price
			st.MinDate = p.Date
		}
	}
	st.Mean = sum / float64(len(history))
	if st.Max > 0 {
		st.PercentFromHigh = (current - st.Max) / st.Max * 100
	}
	if st.Min > 0 {
		st.PercentFromLow = (current - st.Min) / st.Min * 100
	}
	return st
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) float64 {
	if high <= low {
		return 0.5
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
