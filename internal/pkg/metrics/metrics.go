package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	cycleOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_cycle_operations_total",
			Help: "Compute and settle operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	cycleOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payroll_cycle_operation_duration_seconds",
			Help:    "Duration of compute and settle operations.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	runsComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payroll_runs_computed_total",
		Help: "Payroll runs written by compute operations.",
	})

	repaymentsPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_repayments_posted_total",
			Help: "Repayment postings written by settlement.",
		},
		[]string{"debt_type"},
	)

	repaymentAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_repayment_amount_total",
			Help: "Sum of posted repayment amounts.",
		},
		[]string{"debt_type"},
	)
)

var registerOnce sync.Once

// Init registers collectors in the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			cycleOperations, cycleOperationDuration, runsComputed,
			repaymentsPosted, repaymentAmount,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycleOperation records the outcome and duration of compute/settle.
func ObserveCycleOperation(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	cycleOperations.WithLabelValues(operation, outcome).Inc()
	cycleOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func AddRunsComputed(n int) {
	runsComputed.Add(float64(n))
}

func ObserveRepayment(debtType string, amount decimal.Decimal) {
	repaymentsPosted.WithLabelValues(debtType).Inc()
	repaymentAmount.WithLabelValues(debtType).Add(amount.InexactFloat64())
}

// Instrument measures request count, latency and in-flight requests,
// labelled by the chi route pattern so path parameters do not explode
// cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind Instrument.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
