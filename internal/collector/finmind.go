package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"StockPulse/internal/model"
)

const (
	finmindDatasetDaily = "TaiwanStockPrice"
	finmindDatasetTick  = "TaiwanStockPriceTick"
)

// FinMindFetcher implements Provider using the FinMind v4 data API.
type FinMindFetcher struct {
	BaseURL  string
	Token    string
	Client   *http.Client
	Location *time.Location
	Now      func() time.Time
}

// NewFinMindFetcher creates a fetcher with optional proxy support.
func NewFinMindFetcher(baseURL, token, proxyURL string, timeout time.Duration, loc *time.Location) *FinMindFetcher {
	return &FinMindFetcher{
		BaseURL:  baseURL,
		Token:    token,
		Client:   newHTTPClient(proxyURL, timeout),
		Location: loc,
		Now:      time.Now,
	}
}

func (f *FinMindFetcher) Name() string { return "finmind" }

type finmindResponse struct {
	Msg    string          `json:"msg"`
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type finmindDaily struct {
	Date    string  `json:"date"`
	StockID string  `json:"stock_id"`
	Open    float64 `json:"open"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Close   float64 `json:"close"`
}

type finmindTick struct {
	Date      string  `json:"date"`
	StockID   string  `json:"stock_id"`
	DealPrice float64 `json:"deal_price"`
	Volume    float64 `json:"volume"`
	Time      string  `json:"Time"`
}

func (f *FinMindFetcher) FetchLatest(ctx context.Context, symbol string) (*Tick, error) {
	today := f.Now().In(f.Location).Format(model.DateLayout)
	var ticks []finmindTick
	if err := f.query(ctx, finmindDatasetTick, symbol, today, "", &ticks); err != nil {
		return nil, err
	}
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i].DealPrice > 0 {
			t := ticks[i]
			return &Tick{Price: t.DealPrice, Label: fmt.Sprintf("%s %s", t.Date, t.Time)}, nil
		}
	}
	return nil, fmt.Errorf("finmind tick %s: %w", symbol, ErrNoData)
}

func (f *FinMindFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (model.History, error) {
	var rows []finmindDaily
	err := f.query(ctx, finmindDatasetDaily, symbol, from.Format(model.DateLayout), to.Format(model.DateLayout), &rows)
	if err != nil {
		return nil, err
	}
	h := make(model.History, 0, len(rows))
	for _, r := range rows {
		if r.Close <= 0 {
			continue // suspended / no trade
		}
		d, err := time.ParseInLocation(model.DateLayout, r.Date, f.Location)
		if err != nil {
			continue
		}
		h = append(h, model.PricePoint{Date: d, Price: r.Close, Label: r.Date})
	}
	sort.Slice(h, func(i, j int) bool { return h[i].Date.Before(h[j].Date) })
	return h, nil
}

func (f *FinMindFetcher) query(ctx context.Context, dataset, symbol, start, end string, dest any) error {
	q := url.Values{}
	q.Set("dataset", dataset)
	q.Set("data_id", symbol)
	q.Set("start_date", start)
	if end != "" {
		q.Set("end_date", end)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("finmind %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("finmind read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finmind %s: status %d, body: %s", dataset, resp.StatusCode, string(body))
	}

	var env finmindResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("finmind decode: %w", err)
	}
	if env.Status != 0 && env.Status != http.StatusOK {
		return fmt.Errorf("finmind %s: api status %d: %s", dataset, env.Status, env.Msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" || string(env.Data) == "[]" {
		return fmt.Errorf("finmind %s %s: %w", dataset, symbol, ErrNoData)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("finmind decode data: %w", err)
	}
	return nil
}
