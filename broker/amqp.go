// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package broker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultDialAttempts bounds startup connection retries. RabbitMQ may
	// come up after the services during a rollout.
	DefaultDialAttempts = 5
	// DefaultDialBackoff is the initial wait between dial attempts.
	DefaultDialBackoff = 2 * time.Second
	// DefaultRedialAttempts bounds mid-run reconnects on a dropped
	// consumer connection before the delivery channel is closed for good.
	DefaultRedialAttempts = 10
)

// AMQPConfig configures the RabbitMQ broker connection.
type AMQPConfig struct {
	// URL is the amqp:// connection string, credentials included.
	URL string
	// DialAttempts bounds connection retries (default 5).
	DialAttempts int
	// DialBackoff is the initial inter-attempt wait, doubled per attempt
	// with jitter (default 2s).
	DialBackoff time.Duration
	// RedialAttempts bounds consumer reconnects after a dropped
	// connection (default 10).
	RedialAttempts int
}

func (c *AMQPConfig) withDefaults() AMQPConfig {
	out := *c
	if out.DialAttempts <= 0 {
		out.DialAttempts = DefaultDialAttempts
	}
	if out.DialBackoff <= 0 {
		out.DialBackoff = DefaultDialBackoff
	}
	if out.RedialAttempts <= 0 {
		out.RedialAttempts = DefaultRedialAttempts
	}
	return out
}

// AMQPBroker is the RabbitMQ-backed Broker used in cluster deployments.
type AMQPBroker struct {
	cfg AMQPConfig

	mu     sync.Mutex
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	closed bool
}

// NewAMQPBroker dials RabbitMQ with bounded retry and returns a connected
// broker. Callers should treat an error here as fatal at startup.
func NewAMQPBroker(cfg AMQPConfig) (*AMQPBroker, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, NewBrokerError("dial", "broker URL is required", nil)
	}

	b := &AMQPBroker{cfg: cfg}
	conn, err := dialWithRetry(cfg)
	if err != nil {
		return nil, err
	}
	b.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, NewBrokerError("dial", "open publisher channel", err)
	}
	b.pubCh = ch
	return b, nil
}

func dialWithRetry(cfg AMQPConfig) (*amqp.Connection, error) {
	var lastErr error
	backoff := cfg.DialBackoff
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < cfg.DialAttempts {
			time.Sleep(jittered(backoff))
			backoff *= 2
		}
	}
	return nil, NewBrokerError("dial",
		fmt.Sprintf("connect after %d attempts", cfg.DialAttempts), lastErr)
}

// jittered spreads sleeps by up to 20% to avoid thundering-herd redials
// across the worker fleet.
func jittered(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/5+1))
}

// DeclareTopology declares the exchange, dead-letter exchange, queues,
// and bindings. Declarations are idempotent on the server.
func (b *AMQPBroker) DeclareTopology(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.pubCh

	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		return NewBrokerError("declare", "exchange "+Exchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return NewBrokerError("declare", "exchange "+DeadLetterExchange, err)
	}

	// The job queue dead-letters rejected deliveries so a poison job can
	// never wedge the worker pool.
	jobArgs := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterRoutingKey,
	}
	if _, err := ch.QueueDeclare(JobQueue, true, false, false, false, jobArgs); err != nil {
		return NewBrokerError("declare", "queue "+JobQueue, err)
	}
	for _, q := range []string{ResultQueue, OrchestratorResultQueue, DeadLetterQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return NewBrokerError("declare", "queue "+q, err)
		}
	}

	bindings := []struct {
		queue, key, exchange string
	}{
		{JobQueue, JobRoutingKey, Exchange},
		{ResultQueue, ResultRoutingKey, Exchange},
		{OrchestratorResultQueue, ResultRoutingKey, Exchange},
		{DeadLetterQueue, DeadLetterRoutingKey, Exchange},
		{DeadLetterQueue, DeadLetterRoutingKey, DeadLetterExchange},
	}
	for _, bind := range bindings {
		if err := ch.QueueBind(bind.queue, bind.key, bind.exchange, false, nil); err != nil {
			return NewBrokerError("declare",
				fmt.Sprintf("bind %s to %s via %s", bind.queue, bind.exchange, bind.key), err)
		}
	}
	return nil
}

// Publish sends a persistent JSON message to the risk exchange.
func (b *AMQPBroker) Publish(ctx context.Context, routingKey string, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return NewBrokerError("publish", "broker closed", nil)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         msg.Body,
	}
	if len(msg.Headers) > 0 {
		pub.Headers = amqp.Table(msg.Headers)
	}
	if err := b.pubCh.PublishWithContext(ctx, Exchange, routingKey, false, false, pub); err != nil {
		return NewBrokerError("publish", "routing key "+routingKey, err)
	}
	return nil
}

// Consume delivers messages from the named queue with the given prefetch.
// On a dropped connection it redials with exponential backoff up to the
// configured attempt budget, then closes the returned channel.
func (b *AMQPBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	if prefetch <= 0 {
		prefetch = 1
	}

	deliveries, err := b.openConsumer(queue, prefetch)
	if err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	go b.consumeLoop(ctx, queue, prefetch, deliveries, out)
	return out, nil
}

func (b *AMQPBroker) openConsumer(queue string, prefetch int) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	conn := b.conn
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, NewBrokerError("consume", "broker closed", nil)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, NewBrokerError("consume", "open channel for "+queue, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, NewBrokerError("consume", "set prefetch for "+queue, err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, NewBrokerError("consume", "consume "+queue, err)
	}
	return deliveries, nil
}

func (b *AMQPBroker) consumeLoop(ctx context.Context, queue string, prefetch int, deliveries <-chan amqp.Delivery, out chan<- Delivery) {
	defer close(out)
	redials := 0
	backoff := b.cfg.DialBackoff

	for {
		for d := range deliveries {
			headers := map[string]interface{}(d.Headers)
			select {
			case out <- Delivery{
				Body:        d.Body,
				RoutingKey:  d.RoutingKey,
				Headers:     headers,
				Redelivered: d.Redelivered,
				Acker:       &amqpAcker{d: d},
			}:
			case <-ctx.Done():
				return
			}
		}

		// Delivery channel closed: connection or channel dropped.
		if ctx.Err() != nil {
			return
		}
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return
		}

		redials++
		if redials > b.cfg.RedialAttempts {
			return
		}
		time.Sleep(jittered(backoff))
		if backoff < time.Minute {
			backoff *= 2
		}

		if err := b.redial(); err != nil {
			continue
		}
		next, err := b.openConsumer(queue, prefetch)
		if err != nil {
			continue
		}
		deliveries = next
		backoff = b.cfg.DialBackoff
	}
}

// redial replaces the underlying connection if it is no longer usable.
func (b *AMQPBroker) redial() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return NewBrokerError("redial", "broker closed", nil)
	}
	if b.conn != nil && !b.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(b.cfg.URL)
	if err != nil {
		return NewBrokerError("redial", "reconnect", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return NewBrokerError("redial", "reopen publisher channel", err)
	}
	b.conn = conn
	b.pubCh = ch
	return nil
}

// Close shuts the connection down.
func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

type amqpAcker struct {
	d amqp.Delivery
}

func (a *amqpAcker) Ack() error {
	return a.d.Ack(false)
}

func (a *amqpAcker) Nack(requeue bool) error {
	return a.d.Nack(false, requeue)
}
