package notifier

import (
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
)

const divider = "━━━━━━━━━━━━━━"

// Report is everything the quote message shows for one symbol.
type Report struct {
	Symbol     string
	Name       string
	Quote      *model.Quote
	Change     model.Change
	Indicators *model.Indicators
	Advice     *model.Advice
	PostClose  bool
	TodayClose *float64 // official close, post-close runs only
	Now        time.Time
}

var trendNames = map[model.Trend]string{
	model.TrendDecline:       "連續下跌",
	model.TrendRise:          "連續上漲",
	model.TrendRebound:       "止跌反彈",
	model.TrendPullback:      "漲多回檔",
	model.TrendConsolidation: "盤整",
	model.TrendInsufficient:  "資料不足",
}

var providerNames = map[string]string{
	"finmind": "FinMind",
	"yahoo":   "Yahoo Finance",
}

// FormatQuoteReport renders the intraday or post-close message.
func FormatQuoteReport(r Report) string {
	var b strings.Builder

	title := "盤中快訊"
	if r.PostClose {
		title = "價格監控"
	}
	fmt.Fprintf(&b, "【%s %s %s】\n", r.Symbol, r.Name, title)
	fmt.Fprintf(&b, "時間：%s\n", r.Now.Format(time.DateTime))
	b.WriteString(divider + "\n")

	q := r.Quote
	if q.Label != "" {
		fmt.Fprintf(&b, "最新成交：%s\n", q.Label)
	}
	fmt.Fprintf(&b, "現價：%.2f 元\n", q.Price)
	fmt.Fprintf(&b, "昨收：%.2f 元\n", q.PrevClose)
	fmt.Fprintf(&b, "漲跌：%s\n", FormatChange(r.Change))

	if ind := r.Indicators; ind != nil {
		b.WriteString(maLine("5日均線", ind.MA5))
		b.WriteString(maLine("20日均線", ind.MA20))
		b.WriteString(maLine("60日均線", ind.MA60))
		fmt.Fprintf(&b, "近三日走勢：%s\n", trendNames[ind.Trend])
		if y := ind.Yearly; y != nil {
			fmt.Fprintf(&b, "一年高點：%.2f（%s，距高點 %+.2f%%）\n", y.Max, y.MaxDate.Format(model.DateLayout), y.PercentFromHigh)
			fmt.Fprintf(&b, "一年低點：%.2f（%s，距低點 %+.2f%%）\n", y.Min, y.MinDate.Format(model.DateLayout), y.PercentFromLow)
			fmt.Fprintf(&b, "一年均價：%.2f｜區間位置：%.0f%%\n", y.Mean, calculator.RangePosition(q.Price, y.Max, y.Min)*100)
		}
	}

	if a := r.Advice; a != nil {
		b.WriteString(divider + "\n")
		fmt.Fprintf(&b, "建議：%s\n", a.Message)
		if a.Warning != "" {
			fmt.Fprintf(&b, "⚠️ %s\n", a.Warning)
		}
	}

	if r.TodayClose != nil {
		fmt.Fprintf(&b, "今日收盤：%.2f 元\n", *r.TodayClose)
	}
	b.WriteString(sourceLine(q.Source))
	return b.String()
}

// FormatPriorCloseRecap renders the recap pushed between the close and the
// official settlement.
func FormatPriorCloseRecap(symbol, name string, q *model.Quote, change model.Change, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【%s %s 收盤回顧】\n", symbol, name)
	fmt.Fprintf(&b, "時間：%s\n", now.Format(time.DateTime))
	b.WriteString(divider + "\n")
	if q.Label != "" {
		fmt.Fprintf(&b, "資料時間：%s\n", q.Label)
	}
	fmt.Fprintf(&b, "收盤價：%.2f 元\n", q.Price)
	fmt.Fprintf(&b, "前一日收盤：%.2f 元\n", q.PrevClose)
	fmt.Fprintf(&b, "漲跌：%s\n", FormatChange(change))
	b.WriteString(sourceLine(q.Source))
	return b.String()
}

// FormatUnavailable is pushed when every price source failed.
func FormatUnavailable(symbol, name string, now time.Time) string {
	return fmt.Sprintf("【%s %s 價格監控】\n%s\n⚠️ 無法取得股價", symbol, name, now.Format(time.DateTime))
}

// BackfillResult summarizes one symbol of a backfill run.
type BackfillResult struct {
	Symbol  string
	Name    string
	Written int
	Trimmed int
	Err     error
}

// FormatBackfillSummary renders the end-of-backfill report.
func FormatBackfillSummary(results []BackfillResult, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("【歷史資料補齊】\n")
	b.WriteString(divider + "\n")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(&b, "%s %s：失敗（%v）\n", r.Symbol, r.Name, r.Err)
			continue
		}
		fmt.Fprintf(&b, "%s %s：寫入 %d 筆，刪除 %d 筆\n", r.Symbol, r.Name, r.Written, r.Trimmed)
	}
	fmt.Fprintf(&b, "耗時：%s", elapsed.Round(time.Second))
	return b.String()
}

// FormatChange renders "+3.00（+3.00%）".
func FormatChange(c model.Change) string {
	return fmt.Sprintf("%s（%s%%）", signed(c.Amount.StringFixed(2)), signed(c.Percent.StringFixed(2)))
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

func maLine(label string, v *float64) string {
	if v == nil {
		return label + "：無資料\n"
	}
	return fmt.Sprintf("%s：%.2f\n", label, *v)
}

func sourceLine(source string) string {
	provider, _, _ := strings.Cut(source, ":")
	name, ok := providerNames[provider]
	if !ok {
		name = provider
	}
	return "※ 資料來源：" + name
}
