package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	blindMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blind_matches_total",
			Help: "Blind-date queue joins labeled by outcome",
		},
		[]string{"result"},
	)
	blindSessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blind_session_transitions_total",
			Help: "Blind-date session status transitions",
		},
		[]string{"from", "to"},
	)
	ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Wallet operations labeled by operation and result",
		},
		[]string{"op", "result"},
	)
	likeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "like_transitions_total",
			Help: "Like status transitions labeled by target status",
		},
		[]string{"to"},
	)
	ledgerCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Compensation steps executed after a failed paid transition",
		},
		[]string{"step"},
	)
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func RecordMatch(result string) {
	blindMatchesTotal.WithLabelValues(orUnknown(result)).Inc()
}

func RecordSessionTransition(from, to string) {
	blindSessionTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordSessionTransitions adds n transitions at once, for bulk sweeps.
func RecordSessionTransitions(from, to string, n int64) {
	if n <= 0 {
		return
	}
	blindSessionTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Add(float64(n))
}

func RecordLedgerOperation(op, result string) {
	ledgerOperationsTotal.WithLabelValues(orUnknown(op), orUnknown(result)).Inc()
}

func RecordLikeTransition(to string) {
	likeTransitionsTotal.WithLabelValues(orUnknown(to)).Inc()
}

func RecordCompensation(step string) {
	ledgerCompensationsTotal.WithLabelValues(orUnknown(step)).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
