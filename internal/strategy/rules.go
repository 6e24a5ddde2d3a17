package strategy

import (
	"fmt"

	"StockPulse/internal/model"
)

// Rule is one row of the decision table.
type Rule struct {
	Name   string
	Match  func(in Input) bool
	Advise func(in Input) model.Advice
}

// overextension is how far above MA5 a rising price may run before warning.
const overextension = 0.05

// DefaultRules is the ordered decision table.
var DefaultRules = []Rule{
	{
		Name: "bullish-alignment-rebound",
		Match: func(in Input) bool {
			t := in.Indicators.Trend
			return bullishAlignment(in) && (t == model.TrendRebound || t == model.TrendRise)
		},
		// A plain rise also lands here, so the overextension warning of
		// continuous-rise is carried on this branch as well.
		Advise: func(in Input) model.Advice {
			adv := model.Advice{Rule: "bullish-alignment-rebound", Action: model.ActionStrongBuy,
				Message: "多頭排列且止跌回升，強力買進訊號"}
			adv.Warning = overextended(in)
			return adv
		},
	},
	{
		Name: "ma20-breakout",
		Match: func(in Input) bool {
			ma20, ok := get(in.Indicators.MA20)
			return ok && in.Prev > 0 && in.Prev <= ma20 && in.Price > ma20
		},
		Advise: static("ma20-breakout", model.ActionAccumulate, "帶量突破20日均線，可分批佈局"),
	},
	{
		Name: "rebound-above-ma5",
		Match: func(in Input) bool {
			ma5, ok := get(in.Indicators.MA5)
			return ok && in.Indicators.Trend == model.TrendRebound && in.Price > ma5
		},
		Advise: static("rebound-above-ma5", model.ActionAccumulate, "跌深反彈站上5日均線，可小量加碼"),
	},
	{
		Name:  "continuous-decline",
		Match: func(in Input) bool { return in.Indicators.Trend == model.TrendDecline },
		Advise: func(in Input) model.Advice {
			if ma20, ok := get(in.Indicators.MA20); ok && in.Price < ma20 {
				return model.Advice{Rule: "continuous-decline-below-ma20", Action: model.ActionWait,
					Message: "連續下跌且位於20日均線之下，暫勿接刀"}
			}
			return model.Advice{Rule: "continuous-decline", Action: model.ActionWait,
				Message: "連續下跌，觀望等待止穩"}
		},
	},
	{
		Name:   "bearish-alignment",
		Match:  bearishAlignment,
		Advise: static("bearish-alignment", model.ActionAvoid, "空頭排列，避免進場"),
	},
	{
		Name: "ma20-breakdown",
		Match: func(in Input) bool {
			ma20, ok := get(in.Indicators.MA20)
			return ok && in.Prev > 0 && in.Prev >= ma20 && in.Price < ma20
		},
		Advise: static("ma20-breakdown", model.ActionReduce, "跌破20日均線，建議減碼或停損"),
	},
	{
		Name: "pullback-below-ma5",
		Match: func(in Input) bool {
			ma5, ok := get(in.Indicators.MA5)
			return ok && in.Indicators.Trend == model.TrendPullback && in.Price < ma5
		},
		Advise: static("pullback-below-ma5", model.ActionReduce, "漲多拉回跌破5日均線，建議減碼"),
	},
	{
		Name: "short-mid-bullish",
		Match: func(in Input) bool {
			ma5, ok5 := get(in.Indicators.MA5)
			ma20, ok20 := get(in.Indicators.MA20)
			return ok5 && ok20 && in.Price > ma5 && ma5 > ma20
		},
		Advise: static("short-mid-bullish", model.ActionHold, "短中期均線多頭排列，續抱"),
	},
	{
		Name:  "continuous-rise",
		Match: func(in Input) bool { return in.Indicators.Trend == model.TrendRise },
		Advise: func(in Input) model.Advice {
			adv := model.Advice{Rule: "continuous-rise", Action: model.ActionHold, Message: "連續上漲，續抱"}
			adv.Warning = overextended(in)
			return adv
		},
	},
}

// overextended returns a warning when the price runs more than 5% above MA5.
func overextended(in Input) string {
	ma5, ok := get(in.Indicators.MA5)
	if !ok || ma5 <= 0 || in.Price <= ma5*(1+overextension) {
		return ""
	}
	return fmt.Sprintf("⚠️ 股價高於5日均線 %.1f%%，留意追高風險", (in.Price-ma5)/ma5*100)
}

func fallback(_ Input) model.Advice {
	return model.Advice{Rule: "consolidation", Action: model.ActionWait, Message: "盤整格局，觀望"}
}

// bullishAlignment: price > MA5 > MA20 > MA60.
func bullishAlignment(in Input) bool {
	ma5, ok5 := get(in.Indicators.MA5)
	ma20, ok20 := get(in.Indicators.MA20)
	ma60, ok60 := get(in.Indicators.MA60)
	return ok5 && ok20 && ok60 && in.Price > ma5 && ma5 > ma20 && ma20 > ma60
}

// bearishAlignment: price < MA5 < MA20 < MA60.
func bearishAlignment(in Input) bool {
	ma5, ok5 := get(in.Indicators.MA5)
	ma20, ok20 := get(in.Indicators.MA20)
	ma60, ok60 := get(in.Indicators.MA60)
	return ok5 && ok20 && ok60 && in.Price < ma5 && ma5 < ma20 && ma20 < ma60
}

func get(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func static(rule string, action model.Action, msg string) func(Input) model.Advice {
	return func(Input) model.Advice {
		return model.Advice{Rule: rule, Action: action, Message: msg}
	}
}
