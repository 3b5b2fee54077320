package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"marketplace-chat/internal/rabbitmq"
)

// AMQPTransport relays over a RabbitMQ topic exchange. The routing key is the
// channel name and every replica binds its own exclusive queue with "#".
type AMQPTransport struct {
	url       string
	exchange  string
	publisher rabbitmq.Publisher

	mu  sync.Mutex
	sub *rabbitmq.Subscription
}

func NewAMQPTransport(url, exchange string) (*AMQPTransport, error) {
	publisher := rabbitmq.NewPublisher(url, exchange)
	if rabbitmq.PublisherMode(publisher) != "amqp" {
		return nil, errors.New("amqp relay unavailable: " + rabbitmq.PublisherNoopReason(publisher))
	}
	return &AMQPTransport{url: url, exchange: exchange, publisher: publisher}, nil
}

func (t *AMQPTransport) Name() string { return "amqp" }

func (t *AMQPTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.publisher.Publish(ctx, channel, json.RawMessage(payload), nil)
}

func (t *AMQPTransport) Subscribe(deliver func(channel string, payload []byte)) error {
	sub, err := rabbitmq.Subscribe(t.url, t.exchange, "#", func(d rabbitmq.Delivery) {
		deliver(d.RoutingKey, d.Body)
	})
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	return nil
}

func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	return errors.Join(err, t.publisher.Close())
}
