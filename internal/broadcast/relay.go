package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/ws"
)

// Transport moves serialized events between replicas.
type Transport interface {
	Name() string
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(deliver func(channel string, payload []byte)) error
	Close() error
}

// BreakerSettings configures the circuit breaker around a transport.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// PublishTimeout bounds a single transport publish.
	PublishTimeout time.Duration
}

// Relay publishes through a Transport and feeds everything the transport
// delivers into the local hub, so each replica serves its own clients.
type Relay struct {
	transport      Transport
	hub            *ws.Hub
	breaker        *gobreaker.CircuitBreaker[struct{}]
	publishTimeout time.Duration
}

// NewRelay subscribes the hub to the transport.
func NewRelay(transport Transport, hub *ws.Hub, settings BreakerSettings) (*Relay, error) {
	name := "broadcast-" + transport.Name()
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	observability.SetBreakerState(name, 0)
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			observability.SetBreakerState(name, breakerStateValue(to))
		},
	})

	r := &Relay{
		transport:      transport,
		hub:            hub,
		breaker:        breaker,
		publishTimeout: settings.PublishTimeout,
	}
	if err := transport.Subscribe(r.deliver); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", transport.Name(), err)
	}
	return r, nil
}

func (r *Relay) deliver(channel string, payload []byte) {
	r.hub.Publish(channel, payload)
}

// Broadcast publishes through the breaker. When the relay fails the event is
// still delivered to this replica's clients and the error is returned.
func (r *Relay) Broadcast(ctx context.Context, channel string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = r.breaker.Execute(func() (struct{}, error) {
		publishCtx := ctx
		if r.publishTimeout > 0 {
			var cancel context.CancelFunc
			publishCtx, cancel = context.WithTimeout(ctx, r.publishTimeout)
			defer cancel()
		}
		return struct{}{}, r.transport.Publish(publishCtx, channel, payload)
	})
	if err != nil {
		observability.IncBroadcastFailure(r.transport.Name())
		r.hub.Publish(channel, payload)
		return fmt.Errorf("relay %s: %w", r.transport.Name(), err)
	}
	return nil
}

// State reports the breaker state for diagnostics.
func (r *Relay) State() string {
	return r.breaker.State().String()
}

func (r *Relay) Close() error {
	return r.transport.Close()
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
