package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()
	r.RowDropped("2330", "price")
	r.RowDropped("2330", "price")
	r.PushFailed("line")

	if got := testutil.ToFloat64(r.rowsDropped.WithLabelValues("2330", "price")); got != 2 {
		t.Errorf("rows dropped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.pushFailures.WithLabelValues("line")); got != 1 {
		t.Errorf("push failures = %v, want 1", got)
	}
}

func TestRecorder_Push(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.QuoteServed("2330", "finmind:latest", 600)
	if err := r.Push(srv.URL, "stockpulse"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if hits == 0 {
		t.Error("expected pushgateway to be called")
	}
	if err := r.Push("", "stockpulse"); err != nil {
		t.Errorf("empty url should be a no-op, got %v", err)
	}
}
