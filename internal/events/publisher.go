// Package events publishes completed orders to an AMQP queue.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/wire"
)

// DefaultQueue receives completed orders when no queue is configured.
const DefaultQueue = "pos.orders.completed"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends every completed order as a persistent JSON message.
type Publisher struct {
	mu    sync.Mutex
	ch    Channel
	queue string
	close  func() error
	closed func() bool
	lg     *zap.Logger
}

var _ order.Notifier = (*Publisher)(nil)

// NewPublisher creates a Publisher over an open channel. The queue must
// already exist.
func NewPublisher(ch Channel, queue string, lg *zap.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Publisher{
		ch:    ch,
		queue: queue,
		close:  func() error { return nil },
		closed: func() bool { return false },
		lg:     lg,
	}
}

// Dial connects to the broker at url, declares a durable queue and returns a
// Publisher owning the connection.
func Dial(url, queue string, lg *zap.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare queue %q", queue)
	}

	p := NewPublisher(ch, queue, lg)
	p.closed = conn.IsClosed
	p.close = func() error {
		chErr := ch.Close()
		connErr := conn.Close()
		if chErr != nil && !errors.Is(chErr, amqp.ErrClosed) {
			return errors.Wrap(chErr, "close channel")
		}
		if connErr != nil && !errors.Is(connErr, amqp.ErrClosed) {
			return errors.Wrap(connErr, "close connection")
		}
		return nil
	}
	return p, nil
}

// Publish sends o to the queue.
func (p *Publisher) Publish(ctx context.Context, o *order.Order) error {
	body := wire.Marshal(func(e *jx.Encoder) {
		wire.EncodeOrder(e, o)
	})

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    o.ID,
			Timestamp:    o.Timestamp,
			Type:         "order.completed",
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publish order %s", o.ID)
	}

	p.lg.Debug("Published order",
		zap.String("order_id", o.ID),
		zap.String("till_id", o.TillID),
		zap.String("queue", p.queue),
	)
	return nil
}

// Close releases the channel and connection opened by Dial.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.close()
}

// IsClosed reports whether the broker connection is gone.
func (p *Publisher) IsClosed() bool {
	return p.closed()
}
