// Package logger wraps slog with the domain logging helpers the engagement
// loops use. Development gets text output at debug level, everything else
// gets JSON.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger for structured logging.
type Logger struct {
	*slog.Logger
}

// New builds a logger for the given environment.
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// HTTPRequest logs a completed request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DispatchOutcome logs the result of dispatching a scheduled contact.
func (l *Logger) DispatchOutcome(contactID, leadID, channel, outcome string) {
	l.Info("dispatch_outcome",
		slog.String("contact_id", contactID),
		slog.String("lead_id", leadID),
		slog.String("channel", channel),
		slog.String("outcome", outcome),
	)
}

// DispatchError logs a failed dispatch attempt.
func (l *Logger) DispatchError(contactID, leadID, channel string, err error) {
	l.Error("dispatch_error",
		slog.String("contact_id", contactID),
		slog.String("lead_id", leadID),
		slog.String("channel", channel),
		slog.String("error", err.Error()),
	)
}

// GuardDecision logs a calendar/quota guard verdict for a candidate action.
func (l *Logger) GuardDecision(leadID, channel, verdict, reason string) {
	l.Info("guard_decision",
		slog.String("lead_id", leadID),
		slog.String("channel", channel),
		slog.String("verdict", verdict),
		slog.String("reason", reason),
	)
}

// DatabaseError logs a failed repository operation.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs a throttled client.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
