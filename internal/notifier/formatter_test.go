package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/model"
)

var now = time.Date(2025, 1, 9, 14, 5, 0, 0, time.FixedZone("CST", 8*3600))

func f(v float64) *float64 { return &v }

func TestFormatQuoteReportPostClose(t *testing.T) {
	q := &model.Quote{Price: 103, PrevClose: 100, Label: "2025-01-09 13:30:00", Source: "finmind:latest"}
	msg := FormatQuoteReport(Report{
		Symbol:     "2330",
		Name:       "台積電",
		Quote:      q,
		Change:     model.ComputeChange(q.PrevClose, q.Price),
		Indicators: &model.Indicators{MA5: f(101.2), MA20: f(98), Trend: model.TrendRebound},
		Advice:     &model.Advice{Message: "多頭排列且止跌反彈", Warning: "短線乖離過大"},
		PostClose:  true,
		TodayClose: f(103),
		Now:        now,
	})

	for _, want := range []string{
		"【2330 台積電 價格監控】",
		"時間：2025-01-09 14:05:00",
		"現價：103.00 元",
		"昨收：100.00 元",
		"漲跌：+3.00（+3.00%）",
		"5日均線：101.20",
		"60日均線：無資料",
		"近三日走勢：止跌反彈",
		"建議：多頭排列且止跌反彈",
		"⚠️ 短線乖離過大",
		"今日收盤：103.00 元",
		"※ 資料來源：FinMind",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatQuoteReportIntradayYearly(t *testing.T) {
	q := &model.Quote{Price: 90, PrevClose: 100, Source: "yahoo:latest"}
	y := &model.YearlyStats{Max: 120, Min: 80, Mean: 100, MaxDate: now.AddDate(0, -3, 0), MinDate: now.AddDate(0, -9, 0),
		PercentFromHigh: -25, PercentFromLow: 12.5}
	msg := FormatQuoteReport(Report{
		Symbol: "2409", Name: "友達", Quote: q,
		Change:     model.ComputeChange(100, 90),
		Indicators: &model.Indicators{Trend: model.TrendDecline, Yearly: y},
		Now:        now,
	})

	for _, want := range []string{"盤中快訊", "漲跌：-10.00（-10.00%）", "距高點 -25.00%", "區間位置：25%", "Yahoo Finance"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "今日收盤") {
		t.Error("intraday message should not carry today's close")
	}
}

func TestFormatChangeZero(t *testing.T) {
	if got := FormatChange(model.ComputeChange(0, 103)); got != "+0.00（+0.00%）" {
		t.Errorf("got %q", got)
	}
}

func TestFormatUnavailable(t *testing.T) {
	msg := FormatUnavailable("2330", "台積電", now)
	if !strings.HasSuffix(msg, "⚠️ 無法取得股價") || !strings.Contains(msg, "2330 台積電") {
		t.Errorf("got %q", msg)
	}
}

func TestFormatPriorCloseRecap(t *testing.T) {
	q := &model.Quote{Price: 1005, PrevClose: 1000, Label: "2025-01-08 收盤", Source: "finmind:prior_close"}
	msg := FormatPriorCloseRecap("2330", "台積電", q, model.ComputeChange(1000, 1005), now)
	for _, want := range []string{"收盤回顧", "收盤價：1005.00 元", "+5.00（+0.50%）"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatBackfillSummary(t *testing.T) {
	msg := FormatBackfillSummary([]BackfillResult{
		{Symbol: "2330", Name: "台積電", Written: 12, Trimmed: 3},
		{Symbol: "2409", Name: "友達", Err: errors.New("quota")},
	}, 90*time.Second)
	for _, want := range []string{"寫入 12 筆，刪除 3 筆", "友達：失敗（quota）", "耗時：1m30s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
