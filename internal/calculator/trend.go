package calculator

import "StockPulse/internal/model"

// TrendWindow is the number of trailing prices ClassifyTrend inspects.
const TrendWindow = 3

// ClassifyTrend labels the last three prices [p0, p1, p2]. Equal adjacent
// prices fall through to consolidation.
func ClassifyTrend(history model.History) model.Trend {
	if len(history) < TrendWindow {
		return model.TrendInsufficient
	}
	n := len(history)
	p0, p1, p2 := history[n-3].Price, history[n-2].Price, history[n-1].Price
	switch {
	case p0 > p1 && p1 > p2:
		return model.TrendDecline
	case p0 < p1 && p1 < p2:
		return model.TrendRise
	case p0 > p1 && p1 < p2:
		return model.TrendRebound
	case p0 < p1 && p1 > p2:
		return model.TrendPullback
	default:
		return model.TrendConsolidation
	}
}
