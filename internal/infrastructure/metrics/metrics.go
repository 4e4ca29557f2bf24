package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"paymenow.backend/internal/domain/entities"
)

const namespace = "paymenow"

var (
	// Registry holds the ledger's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Transfers by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "compensations_total",
			Help:      "Compensating balance adjustments by step and result.",
		},
		[]string{"step", "result"},
	)

	settlementCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "rpc_duration_seconds",
			Help:      "Duration of settlement network calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"method", "success"},
	)

	reconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "records_total",
			Help:      "Stale pending transfers handled by the sweep, by result.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		transfers,
		compensations,
		settlementCalls,
		reconciled,
		notifications,
		prometheus.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if path == "/metrics" {
			return
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTransfer counts one transfer attempt. outcome is the resulting status or error kind.
func RecordTransfer(kind entities.TransactionKind, outcome string) {
	transfers.WithLabelValues(string(kind), outcome).Inc()
}

// RecordCompensation counts one compensating adjustment
func RecordCompensation(step string, ok bool) {
	result := "applied"
	if !ok {
		result = "failed"
	}
	compensations.WithLabelValues(step, result).Inc()
}

// RecordSettlementCall observes one RPC round trip to the settlement network
func RecordSettlementCall(method string, duration time.Duration, success bool) {
	settlementCalls.WithLabelValues(method, strconv.FormatBool(success)).Observe(duration.Seconds())
}

// RecordReconcile adds a sweep's report to the counters
func RecordReconcile(report entities.ReconcileReport) {
	reconciled.WithLabelValues("completed").Add(float64(report.Completed))
	reconciled.WithLabelValues("failed").Add(float64(report.Failed))
	reconciled.WithLabelValues("pending").Add(float64(report.Pending))
	reconciled.WithLabelValues("error").Add(float64(report.Errors))
}

// RecordNotification counts one delivery result: delivered, failed or dropped
func RecordNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}
