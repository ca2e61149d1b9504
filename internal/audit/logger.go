// Package audit records account mutations as events on the event bus.
package audit

import (
	"context"

	"go.uber.org/zap"

	"user-account-service/internal/telemetry"
	"user-account-service/internal/telemetry/domain"
)

// Source is the source field of every event written by the account service.
const Source = "user-account-service"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, eventType, userID, actor string, metadata map[string]string)
}

// Logger implements AuditLogger by emitting events asynchronously.
type Logger struct {
	emitter     telemetry.EventEmitter
	ipExtractor IPExtractor
	logger      *zap.Logger
}

// NewLogger returns an AuditLogger that publishes to emitter and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". A nil emitter disables auditing.
func NewLogger(emitter telemetry.EventEmitter, ipExtractor IPExtractor, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{emitter: emitter, ipExtractor: ipExtractor, logger: logger}
}

// LogEvent publishes one audit event. metadata is copied; the caller may reuse it.
func (l *Logger) LogEvent(ctx context.Context, eventType, userID, actor string, metadata map[string]string) {
	if l == nil || l.emitter == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	event := domain.NewEvent(eventType, userID, actor)
	event.Source = Source
	event.Metadata = make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		event.Metadata[k] = v
	}
	event.Metadata["ip"] = ip
	telemetry.EmitAsync(l.emitter, event, l.logger)
}
