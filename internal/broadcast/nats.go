package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"marketplace-chat/internal/logging"
)

// NATSTransport relays over core NATS subjects "<prefix>.<channel>".
type NATSTransport struct {
	nc     *nats.Conn
	prefix string
	sub    *nats.Subscription
}

func NewNATSTransport(url, prefix string) (*NATSTransport, error) {
	nc, err := nats.Connect(url,
		nats.Name("marketplace-chat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = "realtime"
	}
	return &NATSTransport{nc: nc, prefix: prefix}, nil
}

func (t *NATSTransport) Name() string { return "nats" }

func (t *NATSTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.nc.Publish(t.prefix+"."+channel, payload)
}

func (t *NATSTransport) Subscribe(deliver func(channel string, payload []byte)) error {
	prefix := t.prefix + "."
	sub, err := t.nc.Subscribe(prefix+">", func(m *nats.Msg) {
		deliver(strings.TrimPrefix(m.Subject, prefix), m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", prefix, err)
	}
	t.sub = sub
	return t.nc.Flush()
}

func (t *NATSTransport) Close() error {
	if t.sub != nil {
		_ = t.sub.Unsubscribe()
	}
	t.nc.Close()
	return nil
}
