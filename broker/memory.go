// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package broker

import (
	"context"
	"sync"
	"sync/atomic"
)

const memQueueCapacity = 4096

// MemoryBroker is an in-process Broker with the same routing, prefetch,
// and dead-letter semantics as the AMQP implementation. Used by tests and
// by local single-binary mode.
type MemoryBroker struct {
	mu       sync.RWMutex
	queues   map[string]chan queuedMessage
	bindings map[string][]string
	// deadLetterTo maps a queue to the queue its rejected deliveries are
	// routed to. Only risk.jobs dead-letters in the platform topology.
	deadLetterTo map[string]string
	declared     bool
	closed       chan struct{}
	closeOnce    sync.Once
}

type queuedMessage struct {
	body       []byte
	routingKey string
	headers    map[string]interface{}
	redeliver  bool
}

// NewMemoryBroker creates an undeclared in-memory broker. Call
// DeclareTopology before publishing or consuming.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues:       make(map[string]chan queuedMessage),
		bindings:     make(map[string][]string),
		deadLetterTo: make(map[string]string),
		closed:       make(chan struct{}),
	}
}

// DeclareTopology creates the platform queues and bindings.
func (b *MemoryBroker) DeclareTopology(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declared {
		return nil
	}
	for _, q := range []string{JobQueue, ResultQueue, OrchestratorResultQueue, DeadLetterQueue} {
		b.queues[q] = make(chan queuedMessage, memQueueCapacity)
	}
	b.bindings[JobRoutingKey] = []string{JobQueue}
	b.bindings[ResultRoutingKey] = []string{ResultQueue, OrchestratorResultQueue}
	b.bindings[DeadLetterRoutingKey] = []string{DeadLetterQueue}
	b.deadLetterTo[JobQueue] = DeadLetterQueue
	b.declared = true
	return nil
}

// Publish routes a message to every queue bound to the routing key.
func (b *MemoryBroker) Publish(ctx context.Context, routingKey string, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.declared {
		return NewBrokerError("publish", "topology not declared", nil)
	}
	select {
	case <-b.closed:
		return NewBrokerError("publish", "broker closed", nil)
	default:
	}
	queues, ok := b.bindings[routingKey]
	if !ok {
		return NewBrokerError("publish", "no queue bound to routing key "+routingKey, nil)
	}
	for _, name := range queues {
		qm := queuedMessage{body: msg.Body, routingKey: routingKey, headers: msg.Headers}
		select {
		case b.queues[name] <- qm:
		case <-ctx.Done():
			return NewBrokerError("publish", "context cancelled", ctx.Err())
		}
	}
	return nil
}

// Consume delivers messages from the named queue. Prefetch bounds the
// number of unsettled deliveries outstanding at once.
func (b *MemoryBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	b.mu.RLock()
	q, ok := b.queues[queue]
	b.mu.RUnlock()
	if !ok {
		return nil, NewBrokerError("consume", "unknown queue "+queue, nil)
	}
	if prefetch <= 0 {
		prefetch = 1
	}

	out := make(chan Delivery)
	slots := make(chan struct{}, prefetch)

	go func() {
		defer close(out)
		for {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			case <-b.closed:
				return
			}
			select {
			case qm := <-q:
				d := Delivery{
					Body:        qm.body,
					RoutingKey:  qm.routingKey,
					Headers:     qm.headers,
					Redelivered: qm.redeliver,
					Acker: &memAcker{
						broker:  b,
						queue:   queue,
						msg:     qm,
						release: func() { <-slots },
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				case <-b.closed:
					return
				}
			case <-ctx.Done():
				return
			case <-b.closed:
				return
			}
		}
	}()
	return out, nil
}

// Depth reports the number of messages waiting in a queue. Test helper;
// the production equivalent is the queue-depth metric KEDA scales on.
func (b *MemoryBroker) Depth(queue string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.queues[queue]
	if !ok {
		return 0
	}
	return len(q)
}

// Close shuts the broker down. Outstanding unsettled deliveries are lost,
// mirroring an AMQP connection drop.
func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

type memAcker struct {
	broker  *MemoryBroker
	queue   string
	msg     queuedMessage
	settled atomic.Bool
	release func()
}

func (a *memAcker) Ack() error {
	if !a.settled.CompareAndSwap(false, true) {
		return NewBrokerError("ack", "delivery already settled", nil)
	}
	a.release()
	return nil
}

func (a *memAcker) Nack(requeue bool) error {
	if !a.settled.CompareAndSwap(false, true) {
		return NewBrokerError("nack", "delivery already settled", nil)
	}
	defer a.release()

	a.broker.mu.RLock()
	defer a.broker.mu.RUnlock()
	select {
	case <-a.broker.closed:
		return nil
	default:
	}

	if requeue {
		qm := a.msg
		qm.redeliver = true
		select {
		case a.broker.queues[a.queue] <- qm:
		default:
			return NewBrokerError("nack", "queue full on requeue", nil)
		}
		return nil
	}

	// Rejected without requeue: route through the dead-letter binding.
	dlq, ok := a.broker.deadLetterTo[a.queue]
	if !ok {
		return nil
	}
	qm := a.msg
	qm.routingKey = DeadLetterRoutingKey
	select {
	case a.broker.queues[dlq] <- qm:
	default:
		return NewBrokerError("nack", "dead-letter queue full", nil)
	}
	return nil
}
