package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// Submission branches, used as the "branch" label of transactions created.
const (
	BranchPlain       = "plain"
	BranchInstallment = "installment"
	BranchRecurrence  = "recurrence"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	transactionsCreated *prometheus.CounterVec
	storageErrors       *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_created_total",
				Help: "Transaction rows materialized, by submission branch.",
			},
			[]string{"branch"},
		),
		storageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_storage_errors_total",
				Help: "Total storage failures by operation.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// AddTransactionsCreated counts n rows created by a submission branch.
func (m *Metrics) AddTransactionsCreated(branch string, n int) {
	m.transactionsCreated.WithLabelValues(branch).Add(float64(n))
}

// IncrStorageError increments the storage error counter.
func (m *Metrics) IncrStorageError(op string) {
	m.storageErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetLedgerSnapshot returns the counters served by GET /v1/metrics/ledger.
func (m *Metrics) GetLedgerSnapshot() *domain.LedgerMetrics {
	// Prometheus counters expose cumulative values.
	success := getCounterValue(m.requestsTotal, "success")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := success + errorCount

	var hits, misses float64
	for _, c := range []string{"accounts", "categories", "payees", "payment_methods"} {
		hits += getCounterValue(m.cacheHits, c)
		misses += getCounterValue(m.cacheMisses, c)
	}

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	created := make(map[string]int64, 3)
	for _, b := range []string{BranchPlain, BranchInstallment, BranchRecurrence} {
		created[b] = int64(getCounterValue(m.transactionsCreated, b))
	}

	return &domain.LedgerMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		TransactionsCreated: created,
		StorageErrors:       int64(sumCounter(m.storageErrors)),
		CacheHitRate:        cacheHitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
