// Package broadcast fans real-time events out to websocket clients, either
// directly through the in-process hub or through a relay shared by every replica.
package broadcast

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/trace"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/ws"
)

// Broadcaster publishes an event on a named channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, event any) error
}

// Deliver broadcasts and logs a failure instead of returning it. Persisted
// writes never depend on real-time delivery.
func Deliver(ctx context.Context, b Broadcaster, channel string, event any) {
	if b == nil {
		return
	}
	if err := b.Broadcast(ctx, channel, event); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		ev := logging.Ctx(ctx).Warn().Err(err).Str("channel", channel)
		if sc := span.SpanContext(); sc.HasTraceID() {
			ev = ev.Str("trace_id", sc.TraceID().String())
		}
		ev.Msg("broadcast failed")
	}
}

// Local delivers to the websocket clients of this process only.
type Local struct {
	hub *ws.Hub
}

func NewLocal(hub *ws.Hub) *Local {
	return &Local{hub: hub}
}

func (l *Local) Broadcast(ctx context.Context, channel string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	delivered := l.hub.Publish(channel, payload)
	logging.Ctx(ctx).Debug().Str("channel", channel).Int("delivered", delivered).Msg("broadcast local")
	return nil
}
