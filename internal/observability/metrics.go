package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes
const (
	LoginCreated      = "created"
	LoginReturning    = "returning"
	LoginInvalidToken = "invalid_token"
	LoginDomainDenied = "domain_denied"
	LoginError        = "error"
)

// Session rejection reasons
const (
	RejectMissing        = "missing"
	RejectInvalid        = "invalid"
	RejectUnknownAccount = "unknown_account"
)

// MetricsCollector is the recording surface used by handlers and middleware
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordSessionRejection(reason string)
	ObserveHTTPRequest(method string, status int, duration time.Duration)
}

// Collector records metrics into Prometheus
type Collector struct {
	logins            *prometheus.CounterVec
	sessionRejections *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_gateway_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		sessionRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_gateway_session_rejections_total",
			Help: "Requests rejected by the session middleware, by reason",
		}, []string{"reason"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identity_gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		c.logins,
		c.sessionRejections,
		c.requestDuration,
	)

	return c
}

// RecordLogin counts a login attempt
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordSessionRejection counts a rejected session
func (c *Collector) RecordSessionRejection(reason string) {
	c.sessionRejections.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest records the latency of one request
func (c *Collector) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector discards everything. Used when metrics are disabled.
type NopCollector struct{}

func (NopCollector) RecordLogin(string) {}
func (NopCollector) RecordSessionRejection(string) {}
func (NopCollector) ObserveHTTPRequest(string, int, time.Duration) {}
