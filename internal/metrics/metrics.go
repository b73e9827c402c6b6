// Package metrics exposes the monitor's Prometheus collectors.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	fetches        *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	staleDiscarded prometheus.Counter
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_fetches_total",
				Help: "Monitor payload fetches by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_fetch_duration_seconds",
				Help:    "Time spent loading a monitor payload.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		staleDiscarded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "monitor_poll_stale_discarded_total",
				Help: "Poll results dropped because a newer request had been issued.",
			},
		),
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_requests_total",
				Help: "Requests served by transport, method and status code.",
			},
			[]string{"transport", "method", "code"},
		),
		requestLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_request_duration_seconds",
				Help:    "Request latency by transport and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "method"},
		),
	}
}

// ObserveFetch records one monitor payload load.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(source, outcome).Inc()
	m.fetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

// StaleDiscarded counts a poll result that lost the race to a newer request.
func (m *Metrics) StaleDiscarded() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

func (m *Metrics) observeRequest(transport, method, code string, d time.Duration) {
	m.requests.WithLabelValues(transport, method, code).Inc()
	m.requestLatency.WithLabelValues(transport, method).Observe(d.Seconds())
}

// GinMiddleware records HTTP requests by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.observeRequest("http", route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// UnaryServerInterceptor records gRPC calls by full method name.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if m != nil {
			m.observeRequest("grpc", info.FullMethod, status.Code(err).String(), time.Since(start))
		}
		return resp, err
	}
}
