package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wholesale_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})

	externalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_external_calls_total",
		Help: "Calls to the bank gateway, the linking network and the mailer",
	}, []string{"service", "operation", "outcome"})

	externalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wholesale_external_call_duration_seconds",
		Help:    "External call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
	}, []string{"service", "operation"})

	effects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_effects_total",
		Help: "Post-commit side effects by outcome",
	}, []string{"effect", "outcome"})

	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_settlement_checks_total",
		Help: "Transfer settlement checks by resulting state",
	}, []string{"state"})
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveExternal records one call to an external service that started at start.
func ObserveExternal(service, operation string, start time.Time, err error) {
	externalCalls.WithLabelValues(service, operation, outcome(err)).Inc()
	externalLatency.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

func ObserveEffect(effect string, err error) {
	effects.WithLabelValues(effect, outcome(err)).Inc()
}

func ObserveSettlement(state string) {
	settlements.WithLabelValues(state).Inc()
}

// Middleware counts requests per chi route pattern so path parameters do not
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
