package calculator

import (
	"math"
	"testing"
	"time"

	"StockPulse/internal/model"
)

func series(prices ...float64) model.History {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := make(model.History, len(prices))
	for i, p := range prices {
		h[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Price: p}
	}
	return h
}

func ramp(n int, from, step float64) model.History {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = from + float64(i)*step
	}
	return series(prices...)
}

func TestMovingAverage_Unavailable(t *testing.T) {
	for _, window := range []int{5, 20, 60} {
		h := ramp(window-1, 100, 1)
		if v, ok := MovingAverage(h, window); ok {
			t.Errorf("window %d on %d points: expected unavailable, got %.2f", window, len(h), v)
		}
	}
	ma5, ma20, ma60 := Averages(ramp(4, 100, 1))
	if ma5 != nil || ma20 != nil || ma60 != nil {
		t.Error("expected all averages nil for 4 points")
	}
}

func TestMovingAverage_LastWindow(t *testing.T) {
	h := series(1, 2, 3, 4, 5, 6, 7)
	v, ok := MovingAverage(h, 5)
	if !ok {
		t.Fatal("expected MA5 to be available")
	}
	if v != 5 {
		t.Errorf("MA5 = %.2f, want 5", v)
	}
}

func TestCalculateSMA_InvalidPeriod(t *testing.T) {
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		prices []float64
		want   model.Trend
	}{
		{[]float64{100, 95, 90}, model.TrendDecline},
		{[]float64{90, 95, 100}, model.TrendRise},
		{[]float64{100, 90, 95}, model.TrendRebound},
		{[]float64{90, 100, 95}, model.TrendPullback},
		{[]float64{100, 100, 100}, model.TrendConsolidation},
		{[]float64{100, 100, 105}, model.TrendConsolidation},
		{[]float64{50, 100, 95, 90}, model.TrendDecline},
		{[]float64{100, 95}, model.TrendInsufficient},
		{nil, model.TrendInsufficient},
	}
	for _, tt := range tests {
		if got := ClassifyTrend(series(tt.prices...)); got != tt.want {
			t.Errorf("%v: got %s, want %s", tt.prices, got, tt.want)
		}
	}
}

func TestYearlyStats(t *testing.T) {
	if st := YearlyStats(ramp(29, 100, 1), 100); st != nil {
		t.Error("expected nil stats below 30 points")
	}

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100
	}
	prices[5] = 150
	prices[20] = 150 // later duplicate of the max
	prices[10] = 80
	h := series(prices...)

	st := YearlyStats(h, 120)
	if st == nil {
		t.Fatal("expected stats for 40 points")
	}
	if st.Max != 150 || st.Min != 80 {
		t.Errorf("max/min = %.0f/%.0f", st.Max, st.Min)
	}
	if !st.MaxDate.Equal(h[5].Date) {
		t.Errorf("max date should be first occurrence, got %s", st.MaxDate.Format(model.DateLayout))
	}
	if !st.MinDate.Equal(h[10].Date) {
		t.Errorf("min date = %s", st.MinDate.Format(model.DateLayout))
	}
	wantMean := (100.0*37 + 150 + 150 + 80) / 40
	if math.Abs(st.Mean-wantMean) > 1e-9 {
		t.Errorf("mean = %.4f, want %.4f", st.Mean, wantMean)
	}
	if math.Abs(st.PercentFromHigh-(-20)) > 1e-9 {
		t.Errorf("percent from high = %.2f", st.PercentFromHigh)
	}
	if math.Abs(st.PercentFromLow-50) > 1e-9 {
		t.Errorf("percent from low = %.2f", st.PercentFromLow)
	}
}

func TestRangePosition(t *testing.T) {
	if p := RangePosition(150, 200, 100); p != 0.5 {
		t.Errorf("got %.2f", p)
	}
	if p := RangePosition(300, 200, 100); p != 1 {
		t.Errorf("clamp high: got %.2f", p)
	}
	if p := RangePosition(100, 100, 100); p != 0.5 {
		t.Errorf("flat range: got %.2f", p)
	}
}

func TestCompute(t *testing.T) {
	ind := Compute(ramp(60, 100, 1))
	if ind.MA5 == nil || ind.MA20 == nil || ind.MA60 == nil {
		t.Fatal("expected all averages for 60 points")
	}
	if *ind.MA5 != 157 {
		t.Errorf("MA5 = %.2f, want 157", *ind.MA5)
	}
	if ind.Trend != model.TrendRise {
		t.Errorf("trend = %s", ind.Trend)
	}
	if ind.Yearly == nil || ind.Yearly.Max != 159 {
		t.Errorf("yearly = %+v", ind.Yearly)
	}
}
