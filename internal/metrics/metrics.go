// Package metrics exposes Prometheus counters for logins, session validation
// and rate limiting.
//
// A nil *Metrics is valid and records nothing, so services and tests can skip
// metrics entirely.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session validation outcomes.
const (
	OutcomeValid   = "valid"
	OutcomeRenewed = "renewed"
	OutcomeExpired = "expired"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
)

// Login results.
const (
	LoginCreated  = "created"
	LoginExisting = "existing"
	LoginRejected = "rejected"
	LoginFailed   = "failed"
)

// Metrics holds the application counters and the registry that serves them.
type Metrics struct {
	registry           *prometheus.Registry
	logins             *prometheus.CounterVec
	sessionValidations *prometheus.CounterVec
	rateLimited        prometheus.Counter
}

// New creates the collectors on a private registry, alongside the standard Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "GitHub login callbacks by result.",
		}, []string{"result"}),
		sessionValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_validations_total",
			Help: "Session token validations by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected with 429.",
		}),
	}
	reg.MustRegister(m.logins, m.sessionValidations, m.rateLimited)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Login counts a login callback by result (LoginCreated, LoginExisting, ...).
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// SessionValidated counts a session token validation by outcome.
func (m *Metrics) SessionValidated(outcome string) {
	if m == nil {
		return
	}
	m.sessionValidations.WithLabelValues(outcome).Inc()
}

// RateLimited counts a request rejected with 429.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
