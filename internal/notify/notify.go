// Package notify delivers password reset messages.
//
// The transport is chosen from the environment at every send: with
// OSSMS_AMQP_URL (or RABBITMQ_URL) set, messages are published to RabbitMQ;
// without it, outside production, the reset link is only logged.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"
)

// PasswordReset is the message sent when a user asks to reset a password.
type PasswordReset struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrNotConfigured is returned in production when no transport is set.
var ErrNotConfigured = errors.New("notification transport not configured")

// Environment variables holding the broker URL, in lookup order.
var urlEnvVars = []string{"OSSMS_AMQP_URL", "RABBITMQ_URL"}

// LogNotifier writes the reset link to the log instead of delivering it.
type LogNotifier struct{}

// SendPasswordReset implements the notifier contract.
func (LogNotifier) SendPasswordReset(_ context.Context, msg PasswordReset) error {
	if msg.ResetURL == "" {
		slog.Warn("password reset token not delivered, logging only",
			"email", msg.Email, "token", msg.Token, "expires_at", msg.ExpiresAt)
		return nil
	}
	slog.Warn("password reset link not delivered, logging only",
		"email", msg.Email, "url", msg.ResetURL, "expires_at", msg.ExpiresAt)
	return nil
}

// EnvNotifier picks a transport from the environment on every send.
type EnvNotifier struct {
	AppEnv string
	Queue  string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// SendPasswordReset implements the notifier contract.
func (n *EnvNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	url := n.brokerURL()
	if url == "" {
		if IsProduction(n.AppEnv) {
			return ErrNotConfigured
		}
		return LogNotifier{}.SendPasswordReset(ctx, msg)
	}
	return (&AMQPNotifier{URL: url, Queue: n.Queue}).SendPasswordReset(ctx, msg)
}

func (n *EnvNotifier) brokerURL() string {
	getenv := n.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, key := range urlEnvVars {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// IsProduction reports whether env names a production deployment.
func IsProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	}
	return false
}
