package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"member-auth-service/internal/event"
)

// logEmitter is the subset of otellog.Logger the adapter needs.
type logEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an event.Emitter that sends auth events as OTel log
// records via the given LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) event.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("member-auth.events")}
}

// NewEventEmitterWithLogger wires the adapter to an arbitrary log sink. Used in tests.
func NewEventEmitterWithLogger(logger logEmitter) event.Emitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, event.AuthEvent) error { return nil }

type otelEmitter struct {
	logger logEmitter
}

// Emit converts the auth event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, ev event.AuthEvent) error {
	rec := otellog.Record{}
	if !ev.CreatedAt.IsZero() {
		rec.SetTimestamp(ev.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if len(ev.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(ev.Metadata))
	}
	if ev.EventID != "" {
		rec.AddAttributes(otellog.String("event_id", ev.EventID))
	}
	if ev.MemberID != "" {
		rec.AddAttributes(otellog.String("member_id", ev.MemberID))
	}
	if ev.EventType != "" {
		rec.AddAttributes(otellog.String("event_type", ev.EventType))
	}
	if ev.Source != "" {
		rec.AddAttributes(otellog.String("source", ev.Source))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
