// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xns-resolver/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Metadata metrics
	MetadataFetches *prometheus.CounterVec
	GatewayFailures *prometheus.CounterVec
	FetchesInFlight prometheus.Gauge
	ThrottlePauses  prometheus.Counter

	// Resolver metrics
	CacheLookups       *prometheus.CounterVec
	Resolutions        *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	ReverseLookups     prometheus.Counter
	ReverseDomains     prometheus.Histogram
	Enrichments        *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "xns_resolver"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_call_latency_seconds",
			Help:      "XRPL RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed XRPL RPC calls by method and error kind",
		}, []string{"method", "kind"}),

		MetadataFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "fetches_total",
			Help:      "Total number of metadata fetches by URI scheme and outcome",
		}, []string{"scheme", "outcome"}),
		GatewayFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "gateway_failures_total",
			Help:      "Total number of failed IPFS gateway attempts",
		}, []string{"gateway"}),
		FetchesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "fetches_in_flight",
			Help:      "Number of metadata fetches currently holding a limiter slot",
		}),
		ThrottlePauses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "throttle_pauses_total",
			Help:      "Total number of throttle pauses taken while scanning tokens",
		}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "cache_lookups_total",
			Help:      "Total number of resolution cache lookups by result",
		}, []string{"result"}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of domain resolutions by status",
		}, []string{"status"}),
		ResolutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "Domain resolution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		ReverseLookups: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "reverse_lookups_total",
			Help:      "Total number of reverse lookups",
		}),
		ReverseDomains: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "reverse_lookup_domains",
			Help:      "Number of domains returned per reverse lookup",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		Enrichments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "enrichments_total",
			Help:      "Total number of profile enrichment attempts by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// ErrorKind maps an error to a low-cardinality label value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrRPC):
		return "rpc"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrMetadata):
		return "metadata"
	case errors.Is(err, domain.ErrDomainNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// RecordRPCCall records RPC call latency and, on failure, the error kind.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method, ErrorKind(err)).Inc()
	}
}

// RecordMetadataFetch records a metadata fetch for a URI scheme.
func RecordMetadataFetch(scheme string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
	}
	DefaultMetrics.MetadataFetches.WithLabelValues(scheme, outcome).Inc()
}

// RecordGatewayFailure increments the failure counter for a gateway base URL.
func RecordGatewayFailure(gateway string) {
	DefaultMetrics.GatewayFailures.WithLabelValues(gateway).Inc()
}

// IncFetchInFlight marks a limiter slot as taken.
func IncFetchInFlight() {
	DefaultMetrics.FetchesInFlight.Inc()
}

// DecFetchInFlight marks a limiter slot as released.
func DecFetchInFlight() {
	DefaultMetrics.FetchesInFlight.Dec()
}

// RecordThrottlePause increments the throttle pause counter.
func RecordThrottlePause() {
	DefaultMetrics.ThrottlePauses.Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordResolution records a finished resolution.
func RecordResolution(status string, durationSeconds float64) {
	DefaultMetrics.Resolutions.WithLabelValues(status).Inc()
	DefaultMetrics.ResolutionDuration.Observe(durationSeconds)
}

// RecordReverseLookup records a reverse lookup and how many domains it found.
func RecordReverseLookup(domains int) {
	DefaultMetrics.ReverseLookups.Inc()
	DefaultMetrics.ReverseDomains.Observe(float64(domains))
}

// RecordEnrichment records a profile enrichment attempt.
func RecordEnrichment(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	DefaultMetrics.Enrichments.WithLabelValues(outcome).Inc()
}
