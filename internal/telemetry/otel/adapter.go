package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"user-account-service/internal/telemetry"
	"user-account-service/internal/telemetry/domain"
)

const instrumentationName = "user-account-service"

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName + "/events")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the event to an OTel log record and emits it. The body is the event's metadata as JSON.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	e.logger.Emit(ctx, toRecord(event))
	return nil
}

func toRecord(event *domain.Event) otellog.Record {
	rec := otellog.Record{}
	rec.SetSeverity(otellog.SeverityInfo)
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if len(event.Metadata) > 0 {
		if b, err := json.Marshal(event.Metadata); err == nil {
			rec.SetBody(otellog.StringValue(string(b)))
		}
	}
	attrs := []otellog.KeyValue{otellog.String("event_id", event.ID), otellog.String("event_type", event.Type)}
	if event.UserID != "" {
		attrs = append(attrs, otellog.String("user_id", event.UserID))
	}
	if event.Actor != "" {
		attrs = append(attrs, otellog.String("actor", event.Actor))
	}
	if event.Source != "" {
		attrs = append(attrs, otellog.String("source", event.Source))
	}
	rec.AddAttributes(attrs...)
	return rec
}
