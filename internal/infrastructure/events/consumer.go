package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/infrastructure/messaging"
	"github.com/calima-dev/audixa/internal/infrastructure/metrics"
	"github.com/rabbitmq/amqp091-go"
)

type consumerState int

const (
	stateConnecting consumerState = iota
	stateSubscribed
	stateBackingOff
	stateStopped
)

type ConsumerOptions struct {
	Prefetch       int
	MaxDeliveries  int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Consumer drains the audit queue indefinitely, turning each delivery into a
// persisted record with explicit acknowledgment. Two failure layers coexist:
// the broker client recovers its own connection at a fixed interval, while the
// consumer supervises the subscription itself, reconnecting with capped
// exponential backoff when the delivery stream dies for any other reason.
type Consumer struct {
	rabbitmq *messaging.RabbitMQ
	repo     domain.AuditLogRepository
	logger   logging.Logger
	metrics  *metrics.Metrics
	opts     ConsumerOptions
	attempts *deliveryTracker
}

func NewConsumer(rabbitmq *messaging.RabbitMQ, repo domain.AuditLogRepository, logger logging.Logger, m *metrics.Metrics, opts ConsumerOptions) *Consumer {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}

	return &Consumer{
		rabbitmq: rabbitmq,
		repo:     repo,
		logger:   logger,
		metrics:  m,
		opts:     opts,
		attempts: newDeliveryTracker(),
	}
}

// Run blocks until ctx is canceled. Cancellation is the clean-shutdown signal:
// the consumer disconnects and returns nil. Every other failure sends the
// state machine through backing-off and back to connecting.
func (c *Consumer) Run(ctx context.Context) error {
	state := stateConnecting
	backoff := c.opts.BackoffInitial

	var deliveries <-chan amqp091.Delivery

	for state != stateStopped {
		if ctx.Err() != nil {
			state = stateStopped
			break
		}

		switch state {
		case stateConnecting:
			ch, err := c.subscribe()
			if err != nil {
				c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to subscribe", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
					logging.Queue:        messaging.AuditQueue,
				})
				state = stateBackingOff
				break
			}

			deliveries = ch
			backoff = c.opts.BackoffInitial
			state = stateSubscribed

			c.logger.Info(logging.RabbitMQ, logging.Consume, "listening for audit events", map[logging.ExtraKey]any{
				logging.Queue: messaging.AuditQueue,
			})

		case stateSubscribed:
			state = c.drain(ctx, deliveries)

		case stateBackingOff:
			c.metrics.ConsumerReconnects.Inc()

			select {
			case <-ctx.Done():
				state = stateStopped
			case <-time.After(backoff):
				backoff *= 2
				if backoff > c.opts.BackoffMax {
					backoff = c.opts.BackoffMax
				}
				state = stateConnecting
			}
		}
	}

	c.rabbitmq.Disconnect()
	c.logger.Info(logging.RabbitMQ, logging.Shutdown, "audit consumer stopped", nil)
	return nil
}

func (c *Consumer) subscribe() (<-chan amqp091.Delivery, error) {
	if err := c.rabbitmq.Connect(); err != nil {
		return nil, err
	}
	if err := c.rabbitmq.DeclareTopology(); err != nil {
		return nil, err
	}
	return c.rabbitmq.Consume(c.opts.Prefetch)
}

// drain processes deliveries one at a time until the channel closes (broker or
// channel failure, handled by reconnecting) or the context is canceled.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp091.Delivery) consumerState {
	for {
		select {
		case <-ctx.Done():
			return stateStopped
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn(logging.RabbitMQ, logging.Consume, "delivery stream closed", nil)
				return stateBackingOff
			}
			c.handle(ctx, d)
		}
	}
}

// handle runs the per-message state machine: parsed, validated, persisted.
// A message that cannot parse or fails schema validation can never become
// valid by retrying, so it is rejected without requeue and the broker
// dead-letters it. A store failure is assumed transient and the message is
// requeued for redelivery, until the attempt threshold routes it to the
// dead-letter queue instead.
//
// No idempotency key is attached to events, so a redelivery that races a
// successful write can produce a duplicate record. Accepted trade-off: audit
// trails are additive, and duplicates are detectable rather than corrupting.
func (c *Consumer) handle(ctx context.Context, d amqp091.Delivery) {
	c.metrics.EventsConsumed.Inc()

	var event domain.AuditEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.discard(d, "invalid JSON payload", err.Error())
		return
	}

	if errs := event.Validate(); len(errs) > 0 {
		c.discard(d, "audit event failed validation", strings.Join(errs, ", "))
		return
	}

	record := domain.NewAuditLog(event)

	if err := c.repo.Insert(ctx, record); err != nil {
		c.retryOrDeadLetter(d, err)
		return
	}

	c.attempts.forget(d.Body)
	c.metrics.EventsPersisted.Inc()

	if err := d.Ack(false); err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to ack delivery", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	c.logger.Info(logging.Audit, logging.Persistence, "audit log saved", map[logging.ExtraKey]any{
		logging.RecordID:   record.ID,
		logging.RoutingKey: d.RoutingKey,
	})
}

func (c *Consumer) discard(d amqp091.Delivery, msg, detail string) {
	c.metrics.EventsDiscarded.Inc()

	c.logger.Error(logging.Audit, logging.Consume, msg, map[logging.ExtraKey]any{
		logging.ErrorMessage: detail,
		logging.RoutingKey:   d.RoutingKey,
	})

	// requeue=false: the broker routes the rejection to the dead-letter queue
	if err := d.Nack(false, false); err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to nack delivery", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (c *Consumer) retryOrDeadLetter(d amqp091.Delivery, cause error) {
	n := c.attempts.bump(d.Body)

	if n >= c.opts.MaxDeliveries {
		c.attempts.forget(d.Body)
		c.metrics.EventsDeadLettered.Inc()

		c.logger.Error(logging.Audit, logging.Persistence, "store failure persisted across redeliveries, dead-lettering", map[logging.ExtraKey]any{
			logging.ErrorMessage: cause.Error(),
			logging.RoutingKey:   d.RoutingKey,
			logging.Deliveries:   n,
		})

		if err := d.Nack(false, false); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to nack delivery", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		return
	}

	c.metrics.EventsRequeued.Inc()

	c.logger.Warn(logging.Audit, logging.Persistence, "failed to save audit log, requeueing", map[logging.ExtraKey]any{
		logging.ErrorMessage: cause.Error(),
		logging.RoutingKey:   d.RoutingKey,
		logging.Deliveries:   n,
	})

	if err := d.Nack(false, true); err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to nack delivery", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
