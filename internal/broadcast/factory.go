package broadcast

import (
	"fmt"

	"marketplace-chat/internal/config"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/ws"
)

// New builds the broadcaster for the configured driver. The returned close
// function releases relay connections.
func New(cfg config.RealtimeConfig, amqpCfg config.AMQPConfig, hub *ws.Hub) (Broadcaster, func() error, error) {
	var (
		transport Transport
		err       error
	)
	switch cfg.Driver {
	case config.DriverLocal, "":
		logging.Info().Str("driver", config.DriverLocal).Msg("realtime broadcaster ready")
		return NewLocal(hub), func() error { return nil }, nil
	case config.DriverAMQP:
		transport, err = NewAMQPTransport(amqpCfg.URL, amqpCfg.RealtimeExchange)
	case config.DriverNATS:
		transport, err = NewNATSTransport(cfg.NATSURL, cfg.SubjectPrefix)
	default:
		return nil, nil, fmt.Errorf("unknown realtime driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	relay, err := NewRelay(transport, hub, BreakerSettings{
		FailureThreshold: cfg.BreakerThreshold,
		Timeout:          cfg.BreakerTimeout,
		PublishTimeout:   cfg.WriteTimeout,
	})
	if err != nil {
		_ = transport.Close()
		return nil, nil, err
	}
	logging.Info().Str("driver", cfg.Driver).Msg("realtime broadcaster ready")
	return relay, relay.Close, nil
}
