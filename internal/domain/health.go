package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	TotalRequests       int64            `json:"totalRequests"`
	ErrorRate           float64          `json:"errorRate"`
	TransactionsCreated map[string]int64 `json:"transactionsCreated"`
	StorageErrors       int64            `json:"storageErrors"`
	CacheHitRate        float64          `json:"cacheHitRate"`
}
