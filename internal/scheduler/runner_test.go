package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/collector"
	"StockPulse/internal/config"
	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/recorder"
	"StockPulse/internal/strategy"
)

var taipei = time.FixedZone("CST", 8*3600)

func at(hh, mm int) time.Time { return time.Date(2025, 1, 9, hh, mm, 0, 0, taipei) }

var today = time.Date(2025, 1, 9, 0, 0, 0, 0, taipei)

type fakeSource struct {
	quote      *model.Quote
	prior      *model.Quote
	past       model.History
	todayClose *float64
	open       bool
	quoteCalls int
}

func (f *fakeSource) Today() time.Time { return today }

func (f *fakeSource) FetchQuote(context.Context, string) (*model.Quote, error) {
	f.quoteCalls++
	if f.quote == nil {
		return nil, collector.ErrUnavailable
	}
	q := *f.quote
	return &q, nil
}

func (f *fakeSource) FetchPriorClose(context.Context, string) (*model.Quote, error) {
	if f.prior == nil {
		return nil, collector.ErrUnavailable
	}
	return f.prior, nil
}

func (f *fakeSource) FetchHistory(context.Context, string, int) (model.History, error) {
	return f.past, nil
}

func (f *fakeSource) FetchRange(_ context.Context, _ string, from, to time.Time) (model.History, error) {
	var out model.History
	for _, p := range f.past {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	if f.todayClose != nil && !today.Before(from) && !today.After(to) {
		out = append(out, model.PricePoint{Date: today, Price: *f.todayClose})
	}
	return out, nil
}

func (f *fakeSource) IsTradingDay(context.Context, string) bool { return f.open }

type fakeStore struct {
	recs    []model.Record
	appends int
	updates int
	trimmed []int
	loadErr error
}

func (s *fakeStore) Load(_ context.Context, symbol string) (model.History, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var h model.History
	for _, r := range s.recs {
		if r.Symbol == symbol {
			d, _ := time.ParseInLocation(model.DateLayout, r.Date, taipei)
			h = append(h, model.PricePoint{Date: d, Price: r.Price})
		}
	}
	return h, nil
}

func (s *fakeStore) Records(_ context.Context, symbol string) ([]model.Record, error) {
	var out []model.Record
	for _, r := range s.recs {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Append(_ context.Context, rec model.Record) (bool, error) {
	for _, r := range s.recs {
		if r.Symbol == rec.Symbol && r.Date == rec.Date {
			return false, nil
		}
	}
	s.recs = append(s.recs, rec)
	s.appends++
	return true, nil
}

func (s *fakeStore) AppendOrUpdate(_ context.Context, rec model.Record) error {
	for i, r := range s.recs {
		if r.Symbol == rec.Symbol && r.Date == rec.Date {
			s.recs[i] = rec
			s.updates++
			return nil
		}
	}
	s.recs = append(s.recs, rec)
	s.appends++
	return nil
}

func (s *fakeStore) Trim(_ context.Context, _ string, keep int) (int, error) {
	s.trimmed = append(s.trimmed, keep)
	return 0, nil
}

type fakePusher struct{ sent []string }

func (p *fakePusher) Send(_ context.Context, text string) int {
	p.sent = append(p.sent, text)
	return 1
}

type memRecorder struct{ events []*recorder.RunEvent }

func (m *memRecorder) RecordRun(e *recorder.RunEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) Close() error { return nil }

// rising builds n weekday closes ending yesterday, 40, 41, ... upward.
func rising(n int) model.History {
	return collector.GenerateMockHistory(today, n, 40, 1)
}

func newRunner(src *fakeSource, store *fakeStore, now time.Time) (*Runner, *fakePusher, *memRecorder) {
	p := &fakePusher{}
	rec := &memRecorder{}
	return &Runner{
		Symbols:  []config.Symbol{{ID: "2330", Name: "台積電"}},
		Source:   src,
		Store:    store,
		Advisor:  strategy.NewTableAdvisor(),
		Pusher:   p,
		Recorder: rec,
		Metrics:  metrics.New(),
		Location: taipei,
		Now:      func() time.Time { return now },
		Opts: Options{
			PriorCloseAt: 13*60 + 30, PostCloseAt: 14 * 60,
			GuardSymbol: "2330", SeedDays: 120, KeepDays: 400,
			BackfillDays: 365, BackfillBatch: 10,
		},
	}, p, rec
}

func TestSessionAt(t *testing.T) {
	tests := []struct {
		now  time.Time
		want Session
	}{
		{at(9, 0), SessionIntraday},
		{at(13, 29), SessionIntraday},
		{at(13, 30), SessionPriorClose},
		{at(13, 59), SessionPriorClose},
		{at(14, 0), SessionPostClose},
		{at(18, 0), SessionPostClose},
	}
	for _, tt := range tests {
		if got := SessionAt(tt.now, 13*60+30, 14*60); got != tt.want {
			t.Errorf("SessionAt(%s) = %s, want %s", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestRunOnceIntradayDoesNotPersist(t *testing.T) {
	src := &fakeSource{
		quote: &model.Quote{Price: 103, PrevClose: 100, Source: "finmind:latest", IsLatest: true},
		past:  rising(60),
	}
	store := &fakeStore{}
	r, p, rec := newRunner(src, store, at(10, 0))

	if out := r.RunOnce(context.Background()); out != OutcomeDone {
		t.Fatalf("outcome = %s", out)
	}
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "盤中快訊") {
		t.Fatalf("pushed %q", p.sent)
	}
	if !strings.Contains(p.sent[0], "漲跌：+3.00（+3.00%）") {
		t.Errorf("change line missing:\n%s", p.sent[0])
	}
	if store.appends != 0 {
		t.Error("intraday run must not persist")
	}
	if len(rec.events) != 1 || rec.events[0].RunID == "" || rec.events[0].Rule == "" {
		t.Errorf("run events = %+v", rec.events)
	}
}

func TestRunOncePostClosePersists(t *testing.T) {
	closePrice := 103.0
	src := &fakeSource{
		quote:      &model.Quote{Price: 103, PrevClose: 100, Source: "finmind:latest", IsLatest: true},
		past:       rising(60),
		todayClose: &closePrice,
	}
	store := &fakeStore{}
	r, p, rec := newRunner(src, store, at(14, 10))

	r.RunOnce(context.Background())
	if store.appends != 1 {
		t.Fatalf("appends = %d, want 1", store.appends)
	}
	got := store.recs[0]
	if got.Date != "2025-01-09" || got.Price != 103 || !got.Complete() {
		t.Errorf("persisted %+v", got)
	}
	if len(store.trimmed) != 1 || store.trimmed[0] != 400 {
		t.Errorf("trim calls = %v", store.trimmed)
	}
	if !strings.Contains(p.sent[0], "今日收盤：103.00 元") || !strings.Contains(p.sent[0], "價格監控") {
		t.Errorf("message:\n%s", p.sent[0])
	}
	if !rec.events[0].Persisted {
		t.Error("event should be marked persisted")
	}

	// second run the same day is a no-op for the store
	r.RunOnce(context.Background())
	if store.appends != 1 {
		t.Errorf("appends after rerun = %d, want 1", store.appends)
	}
}

func TestRunOncePriorCloseRecap(t *testing.T) {
	src := &fakeSource{prior: &model.Quote{Price: 1005, PrevClose: 1000, Label: "2025-01-08 收盤", Source: "finmind:prior_close"}}
	r, p, _ := newRunner(src, &fakeStore{}, at(13, 40))

	r.RunOnce(context.Background())
	if src.quoteCalls != 0 {
		t.Error("recap session should not fetch a live quote")
	}
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "收盤回顧") {
		t.Errorf("pushed %q", p.sent)
	}
}

func TestRunOnceUnavailable(t *testing.T) {
	r, p, rec := newRunner(&fakeSource{}, &fakeStore{}, at(10, 0))

	if out := r.RunOnce(context.Background()); out != OutcomeDone {
		t.Fatalf("outcome = %s", out)
	}
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "無法取得股價") {
		t.Errorf("pushed %q", p.sent)
	}
	if rec.events[0].Outcome != "unavailable" {
		t.Errorf("outcome = %q", rec.events[0].Outcome)
	}
}

func TestRunOnceHolidayAborts(t *testing.T) {
	src := &fakeSource{quote: &model.Quote{Price: 1}}
	r, p, _ := newRunner(src, &fakeStore{}, at(10, 0))
	r.Opts.Guard = true

	if out := r.RunOnce(context.Background()); out != OutcomeAborted {
		t.Errorf("outcome = %s, want aborted", out)
	}
	if len(p.sent) != 0 || src.quoteCalls != 0 {
		t.Error("aborted run must not fetch or push")
	}
}

func TestRunOnceStoreFailureDegrades(t *testing.T) {
	src := &fakeSource{quote: &model.Quote{Price: 103, PrevClose: 100, IsLatest: true}}
	r, p, _ := newRunner(src, &fakeStore{loadErr: errors.New("quota")}, at(10, 0))

	r.RunOnce(context.Background())
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "5日均線：無資料") {
		t.Errorf("expected degraded report, got %q", p.sent)
	}
}

func TestBackfillFillsMissingAndIncomplete(t *testing.T) {
	past := rising(80)
	ma := 1.0
	store := &fakeStore{recs: []model.Record{
		// complete row: left alone
		{Symbol: "2330", Date: past[70].Day(), Price: past[70].Price, MA5: &ma, MA20: &ma, MA60: &ma},
		// incomplete row: rewritten with averages
		{Symbol: "2330", Date: past[75].Day(), Price: past[75].Price},
	}}
	r, p, _ := newRunner(&fakeSource{past: past}, store, at(20, 0))

	results := r.Backfill(context.Background())
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Written != 79 {
		t.Errorf("written = %d, want 79", results[0].Written)
	}
	if store.updates != 1 || store.appends != 78 {
		t.Errorf("updates=%d appends=%d", store.updates, store.appends)
	}
	for _, rec := range store.recs {
		if rec.Date == past[75].Day() && !rec.Complete() {
			t.Error("incomplete row not completed")
		}
		if rec.Date == past[3].Day() && rec.MA5 != nil {
			t.Error("fourth day cannot have MA5")
		}
	}
	if len(store.trimmed) != 1 {
		t.Error("backfill should trim afterwards")
	}
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "寫入 79 筆") {
		t.Errorf("summary = %q", p.sent)
	}
}

func TestBackfillSkipsEarlyRowsWithAllReachableAverages(t *testing.T) {
	past := rising(80)
	ma := 1.0
	store := &fakeStore{recs: []model.Record{
		// eleventh close: only MA5 is reachable, so this row is done
		{Symbol: "2330", Date: past[10].Day(), Price: past[10].Price, MA5: &ma},
		// thirtieth close: MA20 is reachable but missing
		{Symbol: "2330", Date: past[29].Day(), Price: past[29].Price, MA5: &ma},
	}}
	r, _, _ := newRunner(&fakeSource{past: past}, store, at(20, 0))

	first := r.Backfill(context.Background())
	if first[0].Written != 79 || store.updates != 1 {
		t.Errorf("first pass written=%d updates=%d, want 79 and 1", first[0].Written, store.updates)
	}

	second := r.Backfill(context.Background())
	if second[0].Err != nil || second[0].Written != 0 {
		t.Errorf("second pass written=%d err=%v, want nothing rewritten", second[0].Written, second[0].Err)
	}
}

func TestBackfillPauseHonoursCancel(t *testing.T) {
	r, _, _ := newRunner(&fakeSource{past: rising(30)}, &fakeStore{}, at(20, 0))
	r.Opts.BackfillPause = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		res := r.Backfill(ctx)
		if len(res) != 1 || !errors.Is(res[0].Err, context.Canceled) {
			t.Errorf("results = %+v", res)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backfill did not stop on cancel")
	}
}
