// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	historyRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossms_supply_history_total",
		Help: "Supply history rows written by action",
	}, []string{"action"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossms_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	passwordResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ossms_password_reset_total",
		Help: "Password reset flow events by stage",
	}, []string{"stage"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ossms_command_duration_seconds",
		Help:    "Command handling duration",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"command"})
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Password reset stages.
const (
	ResetIssued       = "issued"
	ResetUnknownEmail = "unknown_email"
	ResetNotifyFailed = "notify_failed"
	ResetConsumed     = "consumed"
	ResetRejected     = "rejected"
)

// HistoryWritten counts a history row for action.
func HistoryWritten(action string) {
	historyRows.WithLabelValues(action).Inc()
}

// LoginAttempt counts a login attempt.
func LoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// PasswordReset counts a step of the password reset flow.
func PasswordReset(stage string) {
	passwordResets.WithLabelValues(stage).Inc()
}

// ObserveCommand records how long a command took. Use with defer:
//
//	defer metrics.ObserveCommand("create_supply", time.Now())
func ObserveCommand(command string, start time.Time) {
	commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}
