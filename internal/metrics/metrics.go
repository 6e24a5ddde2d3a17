package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder holds the job's counters on a private registry so a batch run can
// push them to a Pushgateway.
type Recorder struct {
	reg *prometheus.Registry

	rowsDropped   *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
	quoteSource   *prometheus.CounterVec
	quoteMissing  *prometheus.CounterVec
	pushFailures  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	runDuration   prometheus.Histogram
	rateLimitHits *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_history_rows_dropped_total",
			Help: "Persisted rows skipped because they could not be parsed",
		}, []string{"symbol", "reason"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_history_rows_written_total",
			Help: "Rows appended or overwritten in the history store",
		}, []string{"symbol", "op"}),
		quoteSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_quote_source_total",
			Help: "Quotes served, by provider tier",
		}, []string{"symbol", "source"}),
		quoteMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_quote_unavailable_total",
			Help: "Runs where every provider tier failed",
		}, []string{"symbol"}),
		pushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_push_failures_total",
			Help: "Failed chat pushes",
		}, []string{"channel"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_runs_total",
			Help: "Runs by outcome",
		}, []string{"mode", "outcome"}),
		lastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockpulse_last_price",
			Help: "Last observed price per symbol",
		}, []string{"symbol"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_run_duration_seconds",
			Help:    "Wall time of one run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
		}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_store_rate_limited_total",
			Help: "Store calls throttled by the backend",
		}, []string{"op"}),
	}
	r.reg.MustRegister(r.rowsDropped, r.rowsWritten, r.quoteSource, r.quoteMissing,
		r.pushFailures, r.runsTotal, r.lastPrice, r.runDuration, r.rateLimitHits)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) RowDropped(symbol, reason string) {
	r.rowsDropped.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) RowWritten(symbol, op string) {
	r.rowsWritten.WithLabelValues(symbol, op).Inc()
}

func (r *Recorder) QuoteServed(symbol, source string, price float64) {
	r.quoteSource.WithLabelValues(symbol, source).Inc()
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) QuoteUnavailable(symbol string) {
	r.quoteMissing.WithLabelValues(symbol).Inc()
}

func (r *Recorder) PushFailed(channel string) {
	r.pushFailures.WithLabelValues(channel).Inc()
}

func (r *Recorder) RateLimited(op string) {
	r.rateLimitHits.WithLabelValues(op).Inc()
}

func (r *Recorder) RunFinished(mode, outcome string, seconds float64) {
	r.runsTotal.WithLabelValues(mode, outcome).Inc()
	r.runDuration.Observe(seconds)
}

// Push sends every collected metric to a Pushgateway under the given job.
func (r *Recorder) Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.reg).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
