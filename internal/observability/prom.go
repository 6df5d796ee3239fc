package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// ledger RPC
	RPCDuration    *prometheus.HistogramVec
	RPCErrorsTotal *prometheus.CounterVec

	// confirmation poller
	PollAttemptsTotal  *prometheus.CounterVec
	PollAttemptsPerRun prometheus.Histogram
	PollOutcomesTotal  *prometheus.CounterVec

	// DB (activity log)
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "suiticket",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "suiticket",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "suiticket",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "suiticket",
				Subsystem: "rpc",
				Name:      "call_duration_seconds",
				Help:      "Ledger JSON-RPC latency by method.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "status"},
		),
		RPCErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "suiticket",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Ledger JSON-RPC errors by method and class.",
			},
			[]string{"method", "class"},
		),
		PollAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "suiticket",
				Subsystem: "poller",
				Name:      "attempts_total",
				Help:      "Transaction lookups issued by the confirmation poller.",
			},
			[]string{"result"}, // result=ok|error
		),
		PollAttemptsPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "suiticket",
				Subsystem: "poller",
				Name:      "attempt_number",
				Help:      "Attempt number at which each lookup was issued.",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
			},
		),
		PollOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "suiticket",
				Subsystem: "poller",
				Name:      "outcomes_total",
				Help:      "Terminal poller states.",
			},
			[]string{"outcome"}, // outcome=succeeded|exhausted|not_found|canceled
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "suiticket",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "suiticket",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.RPCDuration, p.RPCErrorsTotal,
		p.PollAttemptsTotal, p.PollAttemptsPerRun, p.PollOutcomesTotal,
		p.DbQueryDuration, p.DbErrorsTotal,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
