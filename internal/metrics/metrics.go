// Package metrics exposes Prometheus counters for the session lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ResultOK = "ok"

// Recorder is what the services and the auth gate report to. result is
// ResultOK or an error kind.
type Recorder interface {
	RecordLogin(result string)
	RecordRefresh(result string)
	RecordLogout()
	RecordAuthGate(result string)
}

type Collector struct {
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logouts     prometheus.Counter
	gate        *prometheus.CounterVec
	httpStatus  *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubeauth_login_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubeauth_refresh_total",
			Help: "Refresh token exchanges by result",
		}, []string{"result"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubeauth_logout_total",
			Help: "Completed logouts",
		}),
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubeauth_auth_gate_total",
			Help: "Protected request authentications by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubeauth_http_requests_total",
			Help: "HTTP responses by route and status code",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubeauth_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(c.logins, c.refreshes, c.logouts, c.gate, c.httpStatus, c.httpLatency)
	return c
}

func (c *Collector) RecordLogin(result string)    { c.logins.WithLabelValues(result).Inc() }
func (c *Collector) RecordRefresh(result string)  { c.refreshes.WithLabelValues(result).Inc() }
func (c *Collector) RecordLogout()                { c.logouts.Inc() }
func (c *Collector) RecordAuthGate(result string) { c.gate.WithLabelValues(result).Inc() }

// Middleware records status and latency per matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpStatus.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string)    {}
func (Nop) RecordRefresh(string)  {}
func (Nop) RecordLogout()         {}
func (Nop) RecordAuthGate(string) {}
