package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"marketplace-chat/internal/logging"
)

// Delivery is a consumed message reduced to what subscribers need.
type Delivery struct {
	RoutingKey string
	Body       []byte
}

// Subscription is an exclusive queue bound to a topic exchange.
type Subscription struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	done chan struct{}
}

// Subscribe binds a server-named exclusive queue to exchange with bindingKey
// and calls handle for every delivery until Close.
func Subscribe(amqpURL, exchange, bindingKey string, handle func(Delivery)) (*Subscription, error) {
	conn, ch, err := dialExchange(amqpURL, exchange)
	if err != nil {
		return nil, fmt.Errorf("dial exchange %s: %w", exchange, err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	sub := &Subscription{conn: conn, ch: ch, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for d := range deliveries {
			handle(Delivery{RoutingKey: d.RoutingKey, Body: d.Body})
		}
		logging.Info().Str("exchange", exchange).Str("queue", q.Name).Msg("rabbitmq subscription closed")
	}()

	logging.Info().Str("exchange", exchange).Str("queue", q.Name).Str("binding", bindingKey).Msg("rabbitmq subscribed")
	return sub, nil
}

// Close stops consuming and waits for the delivery loop to exit.
func (s *Subscription) Close() error {
	_ = s.ch.Close()
	err := s.conn.Close()
	<-s.done
	return err
}
