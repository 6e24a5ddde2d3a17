package calculator

import (
	"errors"

	"StockPulse/internal/model"
)

// ErrInsufficientData is returned when a window is longer than the series.
var ErrInsufficientData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the mean of the last window closes. ok is false when
// the history is shorter than window.
func MovingAverage(history model.History, window int) (value float64, ok bool) {
	v, err := CalculateSMA(history.Closes(), window)
	if err != nil {
		return 0, false
	}
	return v, true
}

// movingAveragePtr is MovingAverage with nil standing for "unavailable".
func movingAveragePtr(history model.History, window int) *float64 {
	if v, ok := MovingAverage(history, window); ok {
		return &v
	}
	return nil
}

// Averages returns MA5, MA20 and MA60 for the series.
func Averages(history model.History) (ma5, ma20, ma60 *float64) {
	return movingAveragePtr(history, 5), movingAveragePtr(history, 20), movingAveragePtr(history, 60)
}
