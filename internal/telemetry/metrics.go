package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/logingate"
)

// Login attempt results recorded on LoginAttemptsTotal.
const (
	LoginResultSuccess = "success"
	LoginResultFailure = "failure"
	LoginResultError   = "error"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Login metrics
	LoginAttemptsTotal metric.Int64Counter

	// Session metrics
	SessionsCreatedTotal   metric.Int64Counter
	SessionsDestroyedTotal metric.Int64Counter
	SessionsExpiredTotal   metric.Int64Counter
	SessionStoreErrors     metric.Int64Counter

	// Gate metrics
	GateRedirectsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"logingate.login.attempts.total",
		metric.WithDescription("Total number of login form submissions by result"),
		metric.WithUnit("{attempt}"),
	)

	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"logingate.sessions.created.total",
		metric.WithDescription("Total number of sessions issued after a successful login"),
		metric.WithUnit("{session}"),
	)

	m.SessionsDestroyedTotal, _ = meter.Int64Counter(
		"logingate.sessions.destroyed.total",
		metric.WithDescription("Total number of sessions deleted by logout or re-login"),
		metric.WithUnit("{session}"),
	)

	m.SessionsExpiredTotal, _ = meter.Int64Counter(
		"logingate.sessions.expired.total",
		metric.WithDescription("Total number of expired sessions removed by the cleaner"),
		metric.WithUnit("{session}"),
	)

	m.SessionStoreErrors, _ = meter.Int64Counter(
		"logingate.sessions.store_errors.total",
		metric.WithDescription("Total number of session store failures"),
		metric.WithUnit("{error}"),
	)

	m.GateRedirectsTotal, _ = meter.Int64Counter(
		"logingate.gate.redirects.total",
		metric.WithDescription("Total number of gated requests redirected to the login page"),
		metric.WithUnit("{redirect}"),
	)

	return m
}

// RecordLoginAttempt counts a login attempt with the given result.
func (m *Metrics) RecordLoginAttempt(ctx context.Context, result string) {
	m.LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordGateRedirect counts a gate redirect with the reason it was issued.
func (m *Metrics) RecordGateRedirect(ctx context.Context, reason string) {
	m.GateRedirectsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
