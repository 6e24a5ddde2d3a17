package calculator

import "StockPulse/internal/model"

// Compute derives all indicators from a history whose last point is the
// current observation.
func Compute(history model.History) *model.Indicators {
	ind := &model.Indicators{Trend: ClassifyTrend(history)}
	ind.MA5, ind.MA20, ind.MA60 = Averages(history)
	if last, ok := history.Last(); ok {
		ind.Yearly = YearlyStats(history, last.Price)
	}
	return ind
}
