// Package metrics exposes Prometheus instrumentation for the daemon: run
// outcomes, run durations, authentication attempts, and OTP wait time.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors on a private registry so tests can create
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	authAttempts *prometheus.CounterVec
	otpWait      prometheus.Histogram
}

// New creates a registry with all keepr collectors plus the standard Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepr_runs_total",
			Help: "Job runs by job name and outcome.",
		}, []string{"job", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keepr_run_duration_seconds",
			Help:    "Wall-clock duration of job runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~17m
		}, []string{"job"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepr_auth_attempts_total",
			Help: "Authentication strategy attempts by outcome.",
		}, []string{"strategy", "outcome"}),
		otpWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keepr_otp_wait_seconds",
			Help:    "Time spent waiting for OTP codes.",
			Buckets: prometheus.LinearBuckets(5, 15, 9), // 5s .. 125s
		}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.authAttempts,
		m.otpWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records one job run outcome.
func (m *Metrics) ObserveRun(job, status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// ObserveAuthAttempt records one strategy attempt.
func (m *Metrics) ObserveAuthAttempt(strategy string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.authAttempts.WithLabelValues(strategy, outcome).Inc()
}

// ObserveOTPWait records how long an OTP retrieval took.
func (m *Metrics) ObserveOTPWait(d time.Duration) {
	m.otpWait.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
