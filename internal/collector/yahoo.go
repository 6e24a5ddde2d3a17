package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"StockPulse/internal/model"
)

// YahooFetcher implements Provider using the Yahoo Finance chart API.
// It is the alternate provider of last resort.
type YahooFetcher struct {
	BaseURL  string
	Suffix   string // appended to bare numeric TWSE codes, e.g. ".TW"
	Client   *http.Client
	Location *time.Location
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, suffix, proxyURL string, loc *time.Location) *YahooFetcher {
	return &YahooFetcher{
		BaseURL:  baseURL,
		Suffix:   suffix,
		Client:   newHTTPClient(proxyURL, 30*time.Second),
		Location: loc,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if strings.Contains(symbol, ".") || strings.HasPrefix(symbol, "^") {
		return symbol
	}
	return symbol + f.Suffix
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, params url.Values) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	return &chart, nil
}

func (f *YahooFetcher) FetchLatest(ctx context.Context, symbol string) (*Tick, error) {
	chart, err := f.fetchChart(ctx, symbol, url.Values{"interval": {"1m"}, "range": {"1d"}})
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	label := time.Unix(meta.RegularMarketTime, 0).In(f.Location).Format(time.DateTime)
	return &Tick{Price: meta.RegularMarketPrice, Label: label}, nil
}

func (f *YahooFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (model.History, error) {
	params := url.Values{
		"interval": {"1d"},
		"period1":  {fmt.Sprint(from.Unix())},
		"period2":  {fmt.Sprint(to.AddDate(0, 0, 1).Unix())},
	}
	chart, err := f.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	closes := result.Indicators.Quote[0].Close

	fromDay, toDay := from.Format(model.DateLayout), to.Format(model.DateLayout)
	h := make(model.History, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue // skip null bars (holidays etc.)
		}
		t := time.Unix(ts, 0).In(f.Location)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, f.Location)
		if d := day.Format(model.DateLayout); d < fromDay || d > toDay {
			continue
		}
		h = h.WithPoint(model.PricePoint{Date: day, Price: *closes[i], Label: day.Format(model.DateLayout)})
	}
	sort.Slice(h, func(i, j int) bool { return h[i].Date.Before(h[j].Date) })
	return h, nil
}
