package strategy

import "StockPulse/internal/model"

// Bands defines the percent-change variant, checked in order.
var Bands = []struct {
	Match  func(pct float64) bool
	Advice model.Advice
}{
	{func(p float64) bool { return p <= -3 }, model.Advice{Rule: "drop-3", Action: model.ActionAccumulate, Message: "重挫逾3%，可考慮分批低接"}},
	{func(p float64) bool { return p <= -2 }, model.Advice{Rule: "drop-2", Action: model.ActionWait, Message: "跌幅達2%，留意支撐是否守住"}},
	{func(p float64) bool { return p <= -1 }, model.Advice{Rule: "drop-1", Action: model.ActionWait, Message: "小幅下跌，持續觀察"}},
	{func(p float64) bool { return p >= 3 }, model.Advice{Rule: "gain-3", Action: model.ActionReduce, Message: "大漲逾3%，可考慮部分獲利了結"}},
	{func(p float64) bool { return p >= 2 }, model.Advice{Rule: "gain-2", Action: model.ActionHold, Message: "漲幅達2%，續抱但勿追高"}},
	{func(p float64) bool { return p >= 1 }, model.Advice{Rule: "gain-1", Action: model.ActionHold, Message: "小幅上漲，續抱"}},
}

// ThresholdAdvisor maps the day-over-day percent change straight to a canned message.
type ThresholdAdvisor struct{}

func NewThresholdAdvisor() *ThresholdAdvisor { return &ThresholdAdvisor{} }

func (a *ThresholdAdvisor) Name() string { return ModeThreshold }

func (a *ThresholdAdvisor) Advise(in Input) model.Advice {
	for _, b := range Bands {
		if b.Match(in.ChangePct) {
			return b.Advice
		}
	}
	return model.Advice{Rule: "flat", Action: model.ActionWait, Message: "股價持平，靜觀其變"}
}
