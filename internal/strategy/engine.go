package strategy

import (
	"fmt"

	"StockPulse/internal/model"
)

// Mode names accepted by New.
const (
	ModeTable     = "table"
	ModeThreshold = "threshold"
)

// Input is everything an Advisor looks at for one symbol.
type Input struct {
	Price      float64
	Prev       float64 // previous trading day close
	ChangePct  float64
	History    model.History // ends with the current observation
	Indicators *model.Indicators
}

// Advisor maps a price and its indicators to a recommendation.
type Advisor interface {
	Advise(in Input) model.Advice
	Name() string
}

// New returns the advisor for the configured mode.
func New(mode string) (Advisor, error) {
	switch mode {
	case "", ModeTable:
		return NewTableAdvisor(), nil
	case ModeThreshold:
		return NewThresholdAdvisor(), nil
	default:
		return nil, fmt.Errorf("unknown advisory mode %q", mode)
	}
}

// TableAdvisor evaluates DefaultRules top to bottom; the first match wins.
type TableAdvisor struct {
	Rules []Rule
}

// NewTableAdvisor creates an advisor over DefaultRules.
func NewTableAdvisor() *TableAdvisor {
	return &TableAdvisor{Rules: DefaultRules}
}

func (a *TableAdvisor) Name() string { return ModeTable }

// Advise returns the advice of the first matching rule.
func (a *TableAdvisor) Advise(in Input) model.Advice {
	if in.Indicators == nil {
		in.Indicators = &model.Indicators{Trend: model.TrendInsufficient}
	}
	for _, r := range a.Rules {
		if r.Match(in) {
			return r.Advise(in)
		}
	}
	return fallback(in)
}
