// Package events publishes reservation transitions to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"appointment-booking-api/internal/reservation"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

var ErrQueueFull = errors.New("event queue full")

type sendFunc func(ctx context.Context, msg amqp.Publishing) error

// Publisher sends each event to a topic exchange with the event type as the
// routing key. Publish only enqueues; a single goroutine drains the queue so a
// slow broker never holds up a request.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *slog.Logger

	send  sendFunc
	queue chan amqp.Publishing
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

var _ reservation.Publisher = (*Publisher)(nil)

func NewPublisher(url, exchange string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange %s: %w", exchange, err)
	}
	log.Info("rabbitmq connected", "exchange", exchange)

	send := func(ctx context.Context, msg amqp.Publishing) error {
		return ch.PublishWithContext(ctx, exchange, msg.Type, false, false, msg)
	}
	p := newPublisher(send, queueSize, log)
	p.conn, p.channel = conn, ch
	return p, nil
}

func newPublisher(send sendFunc, size int, log *slog.Logger) *Publisher {
	p := &Publisher{
		log:   log,
		send:  send,
		queue: make(chan amqp.Publishing, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues ev for delivery. It fails with ErrQueueFull rather than
// wait when the broker has fallen behind.
func (p *Publisher) Publish(_ context.Context, ev reservation.Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	select {
	case <-p.stop:
		return fmt.Errorf("rabbitmq publish %s: publisher closed", ev.Type)
	default:
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, ErrQueueFull)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		select {
		case msg := <-p.queue:
			p.deliver(msg)
		case <-p.stop:
			// flush what was accepted before Close
			for {
				select {
				case msg := <-p.queue:
					p.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(msg amqp.Publishing) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.send(ctx, msg); err != nil {
		p.log.Warn("event publish failed", "type", msg.Type, "id", msg.MessageId, "error", err)
	}
}

func message(ev reservation.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		MessageId:    fmt.Sprintf("%s:%d", ev.AppointmentID, ev.Version),
		Body:         body,
	}, nil
}

// Close flushes queued events and then closes the broker connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() { close(p.stop) })
	<-p.done
	if p.channel == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
