package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ owns the single broker connection and channel of the process. Both
// the publish and consume paths go through it; nothing else dials the broker.
// Connect and Disconnect are idempotent, and a watch goroutine re-dials at a
// fixed interval after unexpected connection loss so transient partitions heal
// without operator intervention.
type RabbitMQ struct {
	uri              string
	dialTimeout      time.Duration
	recoveryInterval time.Duration
	logger           logging.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewRabbitMQ(uri string, dialTimeout, recoveryInterval time.Duration, logger logging.Logger) *RabbitMQ {
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	if recoveryInterval <= 0 {
		recoveryInterval = 5 * time.Second
	}

	return &RabbitMQ{
		uri:              uri,
		dialTimeout:      dialTimeout,
		recoveryInterval: recoveryInterval,
		logger:           logger,
	}
}

// Connect establishes the connection, opens the channel and declares the audit
// exchanges. It is a no-op when a healthy connection already exists.
func (r *RabbitMQ) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectLocked()
}

func (r *RabbitMQ) connectLocked() error {
	if r.healthyLocked() {
		return nil
	}

	// DefaultDial bounds both the TCP dial and the AMQP handshake; without it
	// a broker that accepts the connection but stalls the handshake would hold
	// the mutex for the library's 30s default, stalling every publisher.
	conn, err := amqp.DialConfig(r.uri, amqp.Config{
		Dial: amqp.DefaultDial(r.dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		AuditExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-delete
		false,         // internal
		false,         // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", AuditExchange, err)
	}

	if err := ch.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", DeadLetterExchange, err)
	}

	r.conn = conn
	r.ch = ch
	r.closed = false

	go r.watch(conn)

	r.logger.Info(logging.RabbitMQ, logging.Startup, "connected to RabbitMQ", nil)
	return nil
}

func (r *RabbitMQ) healthyLocked() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

// watch re-dials after an unexpected connection close. A nil close reason
// means Disconnect was called and recovery must not kick in.
func (r *RabbitMQ) watch(conn *amqp.Connection) {
	reason := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if reason == nil {
		return
	}

	r.logger.Warn(logging.RabbitMQ, logging.Recovery, "connection lost, recovering", map[logging.ExtraKey]any{
		logging.ErrorMessage: reason.Error(),
	})

	for {
		time.Sleep(r.recoveryInterval)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}

		err := r.connectLocked()
		r.mu.Unlock()

		if err == nil {
			return
		}

		r.logger.Warn(logging.RabbitMQ, logging.Recovery, "recovery attempt failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

// Disconnect tears the connection down and disables recovery. Safe to call
// multiple times.
func (r *RabbitMQ) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.ch != nil {
		r.ch.Close()
		r.ch = nil
	}
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Channel returns the shared channel, lazily reconnecting when a health check
// finds the connection closed.
func (r *RabbitMQ) Channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthyLocked() {
		if err := r.connectLocked(); err != nil {
			return nil, err
		}
	}

	return r.ch, nil
}

// Publish sends a persistent message to the audit exchange.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, body []byte) error {
	ch, err := r.Channel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		AuditExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// DeclareTopology declares the durable work queue with its catch-all binding
// and the dead-letter queue. Rejected messages (requeue=false) are routed to
// the dead-letter exchange by the broker, so poison messages are retained
// instead of dropped.
func (r *RabbitMQ) DeclareTopology() error {
	ch, err := r.Channel()
	if err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
	}

	q, err := ch.QueueDeclare(
		AuditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		args,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AuditQueue, err)
	}

	if err := ch.QueueBind(q.Name, AuditBindingPattern, AuditExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", AuditQueue, err)
	}

	dq, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", DeadLetterQueue, err)
	}

	if err := ch.QueueBind(dq.Name, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", DeadLetterQueue, err)
	}

	return nil
}

// Consume opens a manual-acknowledgment subscription on the audit queue with a
// bounded prefetch.
func (r *RabbitMQ) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := r.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		AuditQueue, // queue
		"",         // consumer tag
		false,      // auto-ack: acknowledgment is explicit
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", AuditQueue, err)
	}

	return deliveries, nil
}
