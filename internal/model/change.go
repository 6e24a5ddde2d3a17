package model

import "github.com/shopspring/decimal"

// Change is the day-over-day move, rounded to two decimal places.
type Change struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// ComputeChange returns current-prev and its percentage of prev.
// A non-positive baseline is replaced by current, giving a zero change.
func ComputeChange(prev, current float64) Change {
	if prev <= 0 {
		prev = current
	}
	p := decimal.NewFromFloat(prev)
	c := decimal.NewFromFloat(current)
	amount := c.Sub(p)
	pct := decimal.Zero
	if !p.IsZero() {
		pct = amount.Div(p).Mul(decimal.NewFromInt(100))
	}
	return Change{Amount: amount.Round(2), Percent: pct.Round(2)}
}

// PercentFloat returns the percentage as float64 for threshold comparisons.
func (c Change) PercentFloat() float64 {
	f, _ := c.Percent.Float64()
	return f
}
