// Package broker publishes order change events to RabbitMQ for consumers
// outside this process.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/canteen-pickup/api/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Exchange is the topic exchange order events are published to.
	Exchange = "canteen_orders"

	publishTimeout = 2 * time.Second

	// queueSize bounds events waiting for the broker; further events are dropped.
	queueSize = 256
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends each event to Exchange with routing key "<event type>",
// e.g. "order.created". Notify only queues; one goroutine drains the queue
// into the channel. Failures are logged and dropped; consumers treat events
// as hints and re-read state.
type Publisher struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch channel

	queue chan events.Event
	done  chan struct{}

	// state guards closed so Notify never sends on a closed queue.
	state  sync.RWMutex
	closed bool
}

func newPublisher(conn *amqp.Connection, ch channel) *Publisher {
	p := &Publisher{
		conn:  conn,
		ch:    ch,
		queue: make(chan events.Event, queueSize),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for e := range p.queue {
		if err := p.Publish(context.Background(), e); err != nil {
			log.Printf("WARNING: publish %s for order %s: %v", e.Type, e.OrderID, err)
		}
	}
}

// Dial connects to url and declares the exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return newPublisher(conn, ch), nil
}

// Notify queues e for publishing. It never blocks; when the queue is full or
// the publisher is closed the event is dropped.
func (p *Publisher) Notify(ctx context.Context, e events.Event) {
	p.state.RLock()
	defer p.state.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		log.Printf("WARNING: broker queue full, dropping %s for order %s", e.Type, e.OrderID)
	}
}

// Publish sends e as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(
		pctx,
		Exchange,
		e.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close stops accepting events, publishes what is already queued, then closes
// the channel and connection.
func (p *Publisher) Close() error {
	p.state.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.state.Unlock()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
